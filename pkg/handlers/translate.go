package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reconcile-labs/query-engine/pkg/translate"
)

// TranslateHandler exposes the translation engine over HTTP.
type TranslateHandler struct {
	engine *translate.Engine
	logger *zap.Logger
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(engine *translate.Engine, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the translate handler's routes on the given mux.
func (h *TranslateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/translate", h.Translate)
}

// Translate handles POST /api/translate requests. The response body is a
// TranslationResult: generated SQL plus rows, or an error class with an
// explanation when the engine stopped short.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		_ = ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	logger := h.logger.With(zap.String("request_id", requestID))

	var req translate.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if req.Text == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	logger.Info("Translating query", zap.Int("text_length", len(req.Text)), zap.Bool("dry_run", req.DryRun))

	result := h.engine.Translate(r.Context(), req)

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		logger.Error("Failed to encode translation response", zap.Error(err))
	}
}
