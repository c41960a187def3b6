package panel

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	model "github.com/zhouzirui/z-panel/backend/internal/model/panel"
	panelsvc "github.com/zhouzirui/z-panel/backend/internal/service/panel"
	"github.com/zhouzirui/z-panel/backend/pkg/utils"
)

// Handler 圆桌讨论的 HTTP 处理器
type Handler struct {
	svc      *panelsvc.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建圆桌处理器
func New(svc *panelsvc.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册圆桌相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/panel", func(pr chi.Router) {
		pr.Get("/configs", h.handleListConfigs)
		pr.Post("/start", h.handleStart)
		pr.Post("/continue", h.handleContinue)
		pr.Post("/summarize", h.handleSummarize)
		pr.Post("/end", h.handleEnd)
		pr.Get("/ws", h.handleWebSocket)
	})
}

type startRequest struct {
	panelsvc.StartRequest
	Stream bool `json:"stream"`
}

type continueRequest struct {
	SessionID string   `json:"session_id"`
	Message   string   `json:"message"`
	Skip      []string `json:"skip_personas"`
	Stream    bool     `json:"stream"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type configsResponse struct {
	Templates []model.Template `json:"panel_configs"`
	Moderator model.Moderator  `json:"moderator"`
}

type continueResponse struct {
	SessionID string `json:"session_id"`
	panelsvc.TurnResult
}

type summaryResponse struct {
	SessionID        string         `json:"session_id"`
	Summary          string         `json:"summary"`
	KeyInsights      []string       `json:"key_insights"`
	CreditedPersonas []string       `json:"credited_personas"`
	Moderator        model.Response `json:"moderator"`
}

type endResponse struct {
	SessionID string `json:"session_id"`
	Ended     bool   `json:"ended"`
	panelsvc.EndReport
}

func newSummaryResponse(sessionID string, s panelsvc.Summary) summaryResponse {
	return summaryResponse{
		SessionID:        sessionID,
		Summary:          s.Text,
		KeyInsights:      s.KeyInsights,
		CreditedPersonas: s.References,
		Moderator:        s.Response,
	}
}

func (h *Handler) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, configsResponse{
		Templates: h.svc.Templates(),
		Moderator: h.svc.Moderator(),
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Stream {
		h.streamEvents(w, r, h.svc.StartStream(r.Context(), req.StartRequest))
		return
	}

	res, err := h.svc.Start(r.Context(), req.StartRequest)
	if err != nil {
		h.respondError(w, statusFor(err), err.Error())
		return
	}
	h.respond(w, http.StatusCreated, res)
}

func (h *Handler) handleContinue(w http.ResponseWriter, r *http.Request) {
	var req continueRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		h.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if req.Stream {
		h.streamEvents(w, r, h.svc.ContinueStream(r.Context(), req.SessionID, req.Message, req.Skip))
		return
	}

	res, found, err := h.svc.Continue(r.Context(), req.SessionID, req.Message, req.Skip)
	if !found {
		h.respondError(w, http.StatusNotFound, panelsvc.ErrSessionNotFound.Error())
		return
	}
	if err != nil {
		h.respondError(w, statusFor(err), err.Error())
		return
	}
	h.respond(w, http.StatusOK, continueResponse{SessionID: req.SessionID, TurnResult: res})
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, found, err := h.svc.Summarize(r.Context(), req.SessionID)
	if !found {
		h.respondError(w, http.StatusNotFound, panelsvc.ErrSessionNotFound.Error())
		return
	}
	if err != nil {
		h.respondError(w, statusFor(err), err.Error())
		return
	}
	h.respond(w, http.StatusOK, newSummaryResponse(req.SessionID, summary))
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, found, err := h.svc.End(r.Context(), req.SessionID)
	if !found {
		h.respondError(w, http.StatusNotFound, panelsvc.ErrSessionNotFound.Error())
		return
	}
	if err != nil {
		h.respondError(w, statusFor(err), err.Error())
		return
	}
	h.respond(w, http.StatusOK, endResponse{SessionID: req.SessionID, Ended: true, EndReport: report})
}

// streamEvents 以 SSE 推送事件。写失败时停止迭代，未完成的轮次随之中止。
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request, events iter.Seq[panelsvc.Event]) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	sent := 0
	for ev := range events {
		if err := utils.WriteSSEEvent(w, flusher, ev.Name, ev); err != nil {
			h.logger.Info("sse client went away",
				zap.String("session", ev.SessionID),
				zap.Error(err))
			return
		}
		sent++
	}
	h.logger.Debug("sse stream finished", zap.Int("events", sent))
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	if err := utils.RespondError(w, status, message); err != nil {
		h.logger.Warn("failed to write error response", zap.Error(err))
	}
}

// statusFor maps panel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case model.IsInvalidRequest(err):
		return http.StatusBadRequest
	case errors.Is(err, panelsvc.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
