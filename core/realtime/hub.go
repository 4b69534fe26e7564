package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
)

// Session is the identity an upgrade request was authenticated as.
type Session struct {
	UserID   string
	Username string
}

// SessionResolver authenticates an upgrade request.
// It returns ErrNoSession when the request carries no valid session; any other error is a server fault.
type SessionResolver interface {
	ResolveSession(r *http.Request) (Session, error)
}

type SessionResolverFunc func(r *http.Request) (Session, error)

func (f SessionResolverFunc) ResolveSession(r *http.Request) (Session, error) { return f(r) }

type Options struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBufferSize int
	// AllowedOrigins lists the origins allowed to upgrade; "*" allows any.
	// When empty only same-origin requests are accepted.
	AllowedOrigins []string
}

func DefaultOptions() Options {
	return Options{
		PingInterval:   30 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBufferSize: 256,
	}
}

func OptionsFromConfig(conf core.RealtimeConfig) Options {
	opts := DefaultOptions()
	if conf.PingInterval > 0 {
		opts.PingInterval = conf.PingInterval
	}
	if conf.WriteWait > 0 {
		opts.WriteWait = conf.WriteWait
	}
	if conf.MaxMessageSize > 0 {
		opts.MaxMessageSize = conf.MaxMessageSize
	}
	if conf.SendBufferSize > 0 {
		opts.SendBufferSize = conf.SendBufferSize
	}
	opts.AllowedOrigins = conf.AllowedOrigins
	return opts
}

// Hub admits websocket sessions and relays messages between users.
type Hub struct {
	resolver SessionResolver
	validate *validator.Validate
	logger   core.Logger
	opts     Options
	obs      observers

	upgrader websocket.Upgrader
	registry *Registry
	router   *Router
	monitor  *Monitor

	closing atomic.Bool
	serving sync.WaitGroup
}

var _ http.Handler = (*Hub)(nil)

func NewHub(resolver SessionResolver, validate *validator.Validate, logger core.Logger, opts Options, obs ...Observer) *Hub {
	h := &Hub{
		resolver: resolver,
		validate: validate,
		logger:   logger,
		opts:     opts,
		obs:      obs,
		registry: NewRegistry(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	h.router = NewRouter(h, validate, logger, obs...)
	h.monitor = NewMonitor(h.registry, opts.PingInterval, func(c *Connection) {
		h.logger.Debug("realtime: terminated unresponsive connection", map[string]interface{}{"conn": c.ID(), "user": c.UserID()})
		h.obs.emit(Event{Type: EventDisconnected, ConnID: c.ID(), UserID: c.UserID(), Reason: ReasonLiveness})
	})
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

func (h *Hub) Registry() *Registry { return h.registry }
func (h *Hub) Monitor() *Monitor   { return h.monitor }
func (h *Hub) Router() *Router     { return h.router }

// ServeHTTP authenticates the request, upgrades it and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closing.Load() {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	sess, err := h.resolve(r)
	if err != nil {
		w.Header().Set("Connection", "close")
		if errors.Is(err, ErrNoSession) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("realtime: resolving session", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Debug("realtime: upgrade failed", err, map[string]interface{}{"user": sess.UserID})
		return
	}

	h.Serve(h.Admit(sess, ws))
}

func (h *Hub) resolve(r *http.Request) (sess Session, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("session resolver panic: %v", rec)
		}
	}()
	sess, err = h.resolver.ResolveSession(r)
	if err == nil && sess.UserID == "" {
		err = ErrNoSession
	}
	return sess, err
}

// Admit registers an upgraded transport as a live connection of sess.
func (h *Hub) Admit(sess Session, transport Transport) *Connection {
	c := newConnection(sess.UserID, transport, h.opts.SendBufferSize, h.opts.WriteWait)
	h.registry.Add(c)
	h.logger.Debug("realtime: connection admitted", map[string]interface{}{"conn": c.ID(), "user": c.UserID()})
	h.obs.emit(Event{Type: EventConnected, ConnID: c.ID(), UserID: c.UserID()})
	return c
}

// Serve reads c until it closes, dispatching each message in receipt order.
func (h *Hub) Serve(c *Connection) {
	h.serving.Add(1)
	defer h.serving.Done()
	defer h.disconnect(c)

	t := c.transport
	if h.opts.MaxMessageSize > 0 {
		t.SetReadLimit(h.opts.MaxMessageSize)
	}
	t.SetPongHandler(func(string) error {
		c.markAlive()
		return nil
	})

	for {
		msgType, raw, err := t.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && !c.Closed() {
				h.logger.Debug("realtime: read failed", err, map[string]interface{}{"conn": c.ID()})
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		msg, err := ParseInbound(raw, h.validate)
		if err != nil {
			h.router.drop(c, "", ReasonMalformed, err)
			continue
		}
		h.router.Dispatch(c, msg)
	}
}

func (h *Hub) disconnect(c *Connection) {
	c.Terminate()
	if !h.registry.Remove(c) {
		return
	}
	reason := ReasonClosed
	if h.closing.Load() {
		reason = ReasonShutdown
	}
	h.logger.Debug("realtime: connection closed", map[string]interface{}{"conn": c.ID(), "user": c.UserID()})
	h.obs.emit(Event{Type: EventDisconnected, ConnID: c.ID(), UserID: c.UserID(), Reason: reason})
}

// Broadcast sends msg to every open connection of msg.TargetUserID and
// returns the number of connections it was queued on.
func (h *Hub) Broadcast(msg OutboundMessage) int {
	conns := h.registry.ForUser(msg.TargetUserID)
	if len(conns) == 0 {
		return 0
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(fmt.Sprintf("realtime: encoding %s", msg.Type), err)
		return 0
	}

	var sent int
	for _, c := range conns {
		switch err := c.Send(payload); {
		case err == nil:
			sent++
		case errors.Is(err, ErrSendBufferFull):
			h.logger.Warn("realtime: send buffer full, message dropped", map[string]interface{}{"conn": c.ID(), "user": c.UserID(), "kind": string(msg.Type)})
			h.obs.emit(Event{Type: EventSendDropped, ConnID: c.ID(), UserID: c.UserID(), Kind: msg.Type, Reason: ReasonBufferFull, Err: err})
		default:
			// closing connections are skipped
		}
	}
	return sent
}

// Notify delivers a server-originated notification to userID.
func (h *Hub) Notify(userID string, data interface{}) int {
	return h.Broadcast(OutboundMessage{Type: KindNotification, TargetUserID: userID, Data: data})
}

// Run runs the liveness monitor until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.monitor.Run(ctx)
}

// Shutdown stops admitting connections, closes the live ones and waits for them to finish.
// Connections still open when ctx is done are terminated.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.closing.Store(true)
	for _, c := range h.registry.Snapshot() {
		c.Close()
	}

	finished := make(chan struct{})
	go func() {
		h.serving.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		for _, c := range h.registry.Snapshot() {
			c.Terminate()
		}
		return errors.Wrap(ctx.Err(), "realtime shutdown")
	}
}
