package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/z-panel/backend/internal/model/persona"
	panelService "github.com/zhouzirui/z-panel/backend/internal/service/panel"
)

func TestRouterMountsAPI(t *testing.T) {
	personas := persona.NewMemoryStore(persona.Seed())
	svc := panelService.NewService(panelService.GeneratorFunc(nil), nil, personas, panelService.Config{})
	r := NewRouter(personas, svc, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/api/personas", http.StatusOK},
		{"/api/panel/configs", http.StatusOK},
		{"/personas", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.want, resp.Code, tt.path)
	}
}

func TestRouterHandlesPreflight(t *testing.T) {
	personas := persona.NewMemoryStore(persona.Seed())
	svc := panelService.NewService(panelService.GeneratorFunc(nil), nil, personas, panelService.Config{})
	r := NewRouter(personas, svc, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/panel/start", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}
