package handler

import (
	"log/slog"
	"net/http"

	"github.com/vistachat/vistachat/internal/auth"
	"github.com/vistachat/vistachat/internal/model"
	"github.com/vistachat/vistachat/internal/service"
)

// HistoryHandler handles GET /api/v1/history.
type HistoryHandler struct {
	svc    *service.HistoryService
	logger *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc *service.HistoryService, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{svc: svc, logger: logger}
}

// List returns the caller's records, newest first.
// Must run behind middleware.RequireAccount.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
		return
	}

	records, err := h.svc.List(r.Context(), accountID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve chat history")
		return
	}

	writeJSON(w, http.StatusOK, model.ToHistoryItems(records))
}
