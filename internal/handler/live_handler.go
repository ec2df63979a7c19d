package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/middleware"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
	ws "github.com/stemsi/tooltrack-backend/internal/websocket"
)

const (
	livePingInterval = 30 * time.Second
	livePongWait     = 2 * livePingInterval
	liveReadLimit    = 4096
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// LiveHandler pushes tool movements to dashboard clients over WebSocket.
type LiveHandler struct {
	bus      *service.EventBus
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(bus *service.EventBus, log zerolog.Logger, allowedOrigins []string) *LiveHandler {
	return &LiveHandler{
		bus:      bus,
		log:      log.With().Str("component", "live_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// DashboardStream godoc
// WS /ws/v1/dashboard/live?token=...
// Relays every issue and return as a "movement" event.
func (h *LiveHandler) DashboardStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before upgrading so a Redis failure can still be reported as JSON.
	events, closeSub, err := h.bus.Subscribe(ctx)
	if err != nil {
		failFromError(c, err)
		return
	}
	defer closeSub()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("user_id", claims.UserID).Logger()
	wsLog.Info().Msg("dashboard client connected")

	pongs := make(chan struct{}, 1)
	go h.readLoop(conn, cancel, pongs, wsLog)

	if err := ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady}); err != nil {
		return
	}

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("dashboard client disconnected")
			return

		case payload, ok := <-events:
			if !ok {
				return
			}
			msg := ws.MovementResponse{Event: ws.EventMovement, Data: json.RawMessage(payload)}
			if err := ws.WriteTyped(conn, msg); err != nil {
				wsLog.Debug().Err(err).Msg("write movement failed")
				return
			}

		case <-pongs:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}

		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// readLoop owns the read side. Client "ping" actions are answered through
// pongs so only the stream loop ever writes to conn.
func (h *LiveHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc, pongs chan<- struct{}, log zerolog.Logger) {
	defer cancel()

	conn.SetReadLimit(liveReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		var msg ws.RequestEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("unexpected close")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))

		if msg.Action == ws.ActionPing {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}
