package panel

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	panelsvc "github.com/zhouzirui/z-panel/backend/internal/service/panel"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// Outbound frame names that have no streaming counterpart.
const (
	eventSummary      = "summary"
	eventSessionEnded = "session-ended"
)

type inboundMessage struct {
	Type             string   `json:"type"`
	SessionID        string   `json:"session_id"`
	TemplateID       string   `json:"panel_config_id"`
	PersonaIDs       []string `json:"persona_ids"`
	IncludeModerator bool     `json:"include_moderator"`
	Message          string   `json:"message"`
	Skip             []string `json:"skip_personas"`
}

type outgoingMessage struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleWebSocket 处理 WebSocket 连接：每条入站消息驱动一次操作，事件逐帧推送。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.logger.Info("panel websocket connected", zap.String("remote", r.RemoteAddr))

	// 当前连接绑定的会话，continue/summarize/end 可省略 session_id。
	var current string
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("panel websocket read error", zap.Error(err))
			}
			return
		}

		if msg.SessionID == "" {
			msg.SessionID = current
		}
		if id, ok := h.handleMessage(ctx, conn, msg); !ok {
			return
		} else if id != "" {
			current = id
		}

		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	}
}

// handleMessage 返回本次操作涉及的会话 id；ok 为 false 表示连接已不可写。
func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, msg inboundMessage) (sessionID string, ok bool) {
	switch msg.Type {
	case "start":
		return h.relay(conn, h.svc.StartStream(ctx, panelsvc.StartRequest{
			TemplateID:       msg.TemplateID,
			PersonaIDs:       msg.PersonaIDs,
			IncludeModerator: msg.IncludeModerator,
			Message:          msg.Message,
			Skip:             msg.Skip,
		}))
	case "continue":
		return h.relay(conn, h.svc.ContinueStream(ctx, msg.SessionID, msg.Message, msg.Skip))
	case "summarize":
		summary, found, err := h.svc.Summarize(ctx, msg.SessionID)
		switch {
		case !found:
			err = panelsvc.ErrSessionNotFound
		case err == nil:
			return msg.SessionID, h.write(conn, outgoingMessage{
				Event:     eventSummary,
				SessionID: msg.SessionID,
				Data:      newSummaryResponse(msg.SessionID, summary),
			})
		}
		return "", h.writeError(conn, msg.SessionID, err)
	case "end":
		report, found, err := h.svc.End(ctx, msg.SessionID)
		if !found {
			return "", h.writeError(conn, msg.SessionID, panelsvc.ErrSessionNotFound)
		}
		if err != nil {
			return "", h.writeError(conn, msg.SessionID, err)
		}
		return "", h.write(conn, outgoingMessage{Event: eventSessionEnded, SessionID: msg.SessionID, Data: report})
	default:
		return "", h.writeError(conn, msg.SessionID, errors.New("unsupported message type: "+msg.Type))
	}
}

// relay 逐帧转发事件流；写失败即停止迭代，未完成的轮次被中止。
func (h *Handler) relay(conn *websocket.Conn, events iter.Seq[panelsvc.Event]) (string, bool) {
	var sessionID string
	for ev := range events {
		if ev.SessionID != "" && ev.Name != panelsvc.EventError {
			sessionID = ev.SessionID
		}
		if !h.writeEvent(conn, ev) {
			return sessionID, false
		}
	}
	return sessionID, true
}

func (h *Handler) writeEvent(conn *websocket.Conn, ev panelsvc.Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode panel event", zap.String("event", ev.Name), zap.Error(err))
		return true
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Info("panel websocket write failed", zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) write(conn *websocket.Conn, msg outgoingMessage) bool {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Info("panel websocket write failed", zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) writeError(conn *websocket.Conn, sessionID string, err error) bool {
	return h.write(conn, outgoingMessage{Event: panelsvc.EventError, SessionID: sessionID, Error: err.Error()})
}

// pingLoop 定期发送 ping；WriteControl 可与数据帧并发写。
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
