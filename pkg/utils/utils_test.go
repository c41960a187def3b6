package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, RespondError(rec, http.StatusNotFound, "session not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error": "session not found"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Message string `json:"message"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message": "hi"}`))
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "hi", body.Message)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorContains(t, DecodeJSON(req, &body), "empty")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.ErrorContains(t, DecodeJSON(req, &body), "invalid request body")
}

func TestWriteSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	require.NoError(t, WriteSSEEvent(rec, rec, "panel-response", map[string]string{"persona_id": "dr-pixel"}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: panel-response\ndata: {\"persona_id\":\"dr-pixel\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}
