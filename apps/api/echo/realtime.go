package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/realtime"
	"github.com/trezcool/masomo/core/user"
)

type realtimeApi struct {
	hub      *realtime.Hub
	svc      *user.Service
	validate *validator.Validate
}

func registerRealtimeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := realtimeApi{
		hub:      deps.Hub,
		svc:      deps.UserSvc,
		validate: deps.Validate,
	}

	// the hub authenticates upgrades itself
	g.GET("/ws", echo.WrapHandler(api.hub))

	rg := g.Group("/realtime", jwt, adminMiddleware())
	rg.POST("/notify", api.notify)
}

func (api *realtimeApi) notify(ctx echo.Context) error {
	var data NotifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotifyRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if _, err := api.svc.GetByID(ctx.Request().Context(), data.UserID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	delivered := api.hub.Notify(data.UserID, data.Data)
	return ctx.JSON(http.StatusOK, NotifyResponse{Delivered: delivered})
}

type (
	NotifyRequest struct {
		UserID string          `json:"user_id" validate:"required"`
		Data   json.RawMessage `json:"data" validate:"jsonvalue"`
	}

	NotifyResponse struct {
		Delivered int `json:"delivered"`
	}
)
