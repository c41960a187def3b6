package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-panel/backend/internal/handler/panel"
	"github.com/zhouzirui/z-panel/backend/internal/handler/persona"
	middlewarePkg "github.com/zhouzirui/z-panel/backend/internal/middleware"
	personaModel "github.com/zhouzirui/z-panel/backend/internal/model/persona"
	panelService "github.com/zhouzirui/z-panel/backend/internal/service/panel"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, panelSvc *panelService.Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	personaHandler := persona.New(personas, logger.Named("persona"))
	panelHandler := panel.New(panelSvc, logger.Named("panel"))

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		panelHandler.RegisterRoutes(api)
	})

	return r
}
