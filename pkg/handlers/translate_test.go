package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{Version: "test", Env: "local"}
}

func newTranslateHandler(t *testing.T) *TranslateHandler {
	t.Helper()
	return NewTranslateHandler(nil, zap.NewNop())
}

func TestTranslateRejectsNonPost(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/translate", nil)

	newTranslateHandler(t).Translate(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTranslateRejectsMalformedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader("{not json"))

	newTranslateHandler(t).Translate(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateRejectsEmptyText(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader(`{"text": ""}`))

	newTranslateHandler(t).Translate(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text is required")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthHandler(testConfig(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"query-engine"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}
