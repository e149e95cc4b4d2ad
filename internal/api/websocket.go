package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"ev-telemetry-dashboard/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSMessage is the JSON envelope exchanged over /api/v1/ws.
type WSMessage struct {
	Type      string            `json:"type"`
	Config    json.RawMessage   `json:"config,omitempty"`
	Dashboard *models.Dashboard `json:"dashboard,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// handleWebSocket recomputes the dashboard once per "configure" message.
// Messages are handled in arrival order on the connection goroutine, so a
// newer configuration is only computed after the previous reply is sent.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade writes its own handshake headers.
	w.Header().Del("Content-Type")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "err", err)
			}
			return
		}

		var cmd WSMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendWS(conn, WSMessage{Type: "error", Error: "invalid message format"})
			continue
		}

		switch cmd.Type {
		case "configure":
			cfg, err := decodeConfig(cmd.Config, s.defaults)
			if err != nil {
				s.sendWS(conn, WSMessage{Type: "error", Error: err.Error()})
				continue
			}
			entry, err := s.current()
			if err != nil {
				s.sendWS(conn, WSMessage{Type: "error", Error: err.Error()})
				continue
			}
			d := s.build(entry, cfg, windowFromConfig(cfg))
			if !s.sendWS(conn, WSMessage{Type: "dashboard", Dashboard: d}) {
				return
			}
		case "ping":
			if !s.sendWS(conn, WSMessage{Type: "pong"}) {
				return
			}
		default:
			s.sendWS(conn, WSMessage{Type: "error", Error: "unknown command: " + cmd.Type})
		}
	}
}

func windowFromConfig(cfg models.DashboardConfig) windowParams {
	if cfg.Window == nil {
		return windowParams{}
	}
	start, end := cfg.Window.Start, cfg.Window.End
	return windowParams{start: &start, end: &end}
}

func (s *Server) sendWS(conn *websocket.Conn, m WSMessage) bool {
	resp, err := json.Marshal(m)
	if err != nil {
		slog.Error("failed to encode websocket message", "err", err)
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
		slog.Warn("websocket write failed", "err", err)
		return false
	}
	return true
}
