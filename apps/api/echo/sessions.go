package echoapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/realtime"
	"github.com/trezcool/masomo/core/user"
)

const (
	tokenCookieName = "masomo_token"
	tokenQueryParam = "token"
)

// SessionResolver authenticates websocket upgrades with the same JWT the REST API issues.
// Users are cached for a short while so reconnect storms do not hit the store.
type SessionResolver struct {
	secretKey string
	svc       *user.Service
	users     *expirable.LRU[string, user.User]
	lookups   singleflight.Group
}

var _ realtime.SessionResolver = (*SessionResolver)(nil)

func NewSessionResolver(conf *core.Config, svc *user.Service) *SessionResolver {
	size := conf.Realtime.SessionCacheSize
	if size <= 0 {
		size = 1024
	}
	return &SessionResolver{
		secretKey: conf.SecretKey,
		svc:       svc,
		users:     expirable.NewLRU[string, user.User](size, nil, conf.Realtime.SessionCacheTTL),
	}
}

// tokenFromRequest looks for the token in the Authorization header, the session cookie, then the query string.
func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := r.Cookie(tokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(tokenQueryParam)
}

func (sr *SessionResolver) ResolveSession(r *http.Request) (realtime.Session, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return realtime.Session{}, realtime.ErrNoSession
	}
	claims, err := ParseToken(raw, sr.secretKey)
	if err != nil {
		return realtime.Session{}, errors.Wrap(realtime.ErrNoSession, err.Error())
	}

	usr, err := sr.user(r.Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return realtime.Session{}, errors.Wrap(realtime.ErrNoSession, "unknown user")
		}
		return realtime.Session{}, errors.Wrap(err, "finding session user")
	}
	if !usr.IsActive {
		return realtime.Session{}, errors.Wrap(realtime.ErrNoSession, "account deactivated")
	}
	return realtime.Session{UserID: usr.ID, Username: usr.Username}, nil
}

func (sr *SessionResolver) user(ctx context.Context, id string) (user.User, error) {
	if usr, ok := sr.users.Get(id); ok {
		return usr, nil
	}
	v, err, _ := sr.lookups.Do(id, func() (interface{}, error) {
		usr, err := sr.svc.GetByID(ctx, id)
		if err != nil {
			return user.User{}, err
		}
		sr.users.Add(id, usr)
		return usr, nil
	})
	if err != nil {
		return user.User{}, err
	}
	return v.(user.User), nil
}

// Forget drops the cached user so the next upgrade reads it from the store again.
func (sr *SessionResolver) Forget(userID string) {
	sr.users.Remove(userID)
}
