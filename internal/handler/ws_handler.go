package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/middleware"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/response"
	"github.com/chhs/grades-backend/internal/service"
	ws "github.com/chhs/grades-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// sessionCheckInterval bounds how long an idle stream outlives its ended session.
var sessionCheckInterval = 30 * time.Second

// WSHandler pushes grade change events to connected dashboards.
type WSHandler struct {
	events   *service.GradeEvents
	sessions middleware.SessionChecker
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. sessions is consulted for the life of
// each stream, not only at upgrade time.
func NewWSHandler(events *service.GradeEvents, sessions middleware.SessionChecker, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		events:   events,
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

type streamAction int

const (
	streamSkip streamAction = iota
	streamSend
	streamEnd
)

// sessionLive reports whether the stream's session is still registered.
// Registry failures end the stream as well.
func (h *WSHandler) sessionLive(ctx context.Context, sess model.SessionContext) bool {
	err := h.sessions.CheckSession(ctx, sess.SessionID)
	if err == nil {
		return true
	}
	if !errors.Is(err, service.ErrSessionEnded) {
		h.log.Error().Err(err).Str("session_id", sess.SessionID).Msg("Session registry check failed")
	}
	return false
}

// route decides what happens to one published payload.
func (h *WSHandler) route(ctx context.Context, sess model.SessionContext, payload string) (model.GradeChangedEvent, streamAction) {
	ev, err := service.DecodeEvent(payload)
	if err != nil {
		h.log.Warn().Err(err).Msg("Undecodable grade event")
		return ev, streamSkip
	}
	if !service.EventVisible(sess, ev) {
		return ev, streamSkip
	}
	if !h.sessionLive(ctx, sess) {
		return ev, streamEnd
	}
	return ev, streamSend
}

// GradeStream godoc
// WS /ws/v1/grades/stream?token=...
// Streams grade_changed events visible to the session so dashboards can refresh.
func (h *WSHandler) GradeStream(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sub := h.events.Subscribe(ctx)
	defer sub.Close()

	wsLog := h.log.With().
		Str("session_id", sess.SessionID).
		Str("role", string(sess.Role)).
		Logger()
	wsLog.Info().Msg("Dashboard connected")

	if err := ws.WriteTyped(conn, ws.SubscribedResponse{
		Event: ws.EventSubscribed,
		Role:  sess.Role,
		Scope: scopeLabel(sess),
	}); err != nil {
		return
	}

	// The reader goroutine only forwards pings; all writes happen below.
	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	endStream := func() {
		wsLog.Info().Msg("Session ended, closing stream")
		_ = ws.WriteError(conn, "session ended")
	}

	ticker := time.NewTicker(sessionCheckInterval)
	defer ticker.Stop()

	events := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Dashboard disconnected")
			return
		case <-ticker.C:
			if !h.sessionLive(ctx, sess) {
				endStream()
				return
			}
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case msg, open := <-events:
			if !open {
				return
			}
			ev, action := h.route(ctx, sess, msg.Payload)
			switch action {
			case streamSkip:
				continue
			case streamEnd:
				endStream()
				return
			}
			if err := ws.WriteTyped(conn, ws.GradeChangedResponse{Event: ws.EventGradeChanged, Data: ev}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing stream")
				return
			}
		}
	}
}

func scopeLabel(sess model.SessionContext) string {
	switch {
	case sess.Role == model.RoleAdmin:
		return "all"
	case sess.Role.IsTeacher():
		return sess.Email
	default:
		return sess.StudentName
	}
}
