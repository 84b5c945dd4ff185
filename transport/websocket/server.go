package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/presenter"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
)

const (
	actionState = "series:state"
	actionError = "error"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// Message - envelope of everything sent over the socket.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type seriesGetter interface {
	GetSeries(ctx context.Context, sessionID string) (*entity.Series, error)
}

type subscriber interface {
	Subscribe(ctx context.Context, seriesID string) (<-chan []byte, func(), error)
}

// Server - streams the caller's series view after every committed change.
type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	series     seriesGetter
	subscriber subscriber
}

func New(logger *slog.Logger, series seriesGetter, subscriber subscriber) *Server {
	return &Server{
		logger: logger.With("component", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		series:     series,
		subscriber: subscriber,
	}
}

// Register - mounts /ws on a group that already resolves the session.
func (that *Server) Register(group *echo.Group) {
	group.GET("/ws", that.Serve)
}

// Serve - upgrades the request and pushes the current view, then every update.
func (that *Server) Serve(ctx echo.Context) error {
	sessionID := rest.SessionID(ctx)
	log := that.logger.With("method", "Serve", "session", sessionID)

	conn, err := that.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader has already written an error response
		log.Debug("failed to upgrade connection", "error", err)
		return nil
	}
	defer conn.Close()

	streamCtx, cancel := context.WithCancel(ctx.Request().Context())
	defer cancel()

	updates, unsubscribe, err := that.subscriber.Subscribe(streamCtx, sessionID)
	if err != nil {
		log.Error("failed to subscribe", "error", err)
		_ = that.write(conn, Message{Action: actionError, Payload: errorPayload("updates are unavailable")})
		return nil
	}
	defer unsubscribe()

	series, err := that.series.GetSeries(streamCtx, sessionID)
	if err != nil {
		log.Error("failed to get series", "error", err)
		_ = that.write(conn, Message{Action: actionError, Payload: errorPayload("failed to load the game")})
		return nil
	}

	if err = that.sendState(conn, presenter.Project(series)); err != nil {
		log.Debug("failed to send initial state", "error", err)
		return nil
	}

	go that.readPump(conn, cancel)

	log.Info("subscriber connected")
	that.writePump(streamCtx, conn, updates)
	log.Info("subscriber disconnected")

	return nil
}

// readPump - drains client frames so pongs and close frames are seen. Clients send nothing else.
func (that *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (that *Server) writePump(ctx context.Context, conn *websocket.Conn, updates <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case payload, ok := <-updates:
			if !ok {
				return
			}
			if err := that.write(conn, Message{Action: actionState, Payload: payload}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (that *Server) sendState(conn *websocket.Conn, state *presenter.ClientState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	return that.write(conn, Message{Action: actionState, Payload: payload})
}

func (that *Server) write(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func errorPayload(message string) json.RawMessage {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return payload
}
