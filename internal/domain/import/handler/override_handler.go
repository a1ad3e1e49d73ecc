package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/normalizer"
	"github.com/FACorreiaa/meu-holerite/pkg/httpx"
)

// OverrideManager persists explanation overrides.
type OverrideManager interface {
	SaveOverride(ctx context.Context, override normalizer.ExplanationOverride) (*normalizer.ExplanationOverride, error)
	ListOverrides(ctx context.Context) ([]normalizer.ExplanationOverride, error)
	DeleteOverride(ctx context.Context, id uuid.UUID) error
}

// OverrideHandler lets users correct line-item explanations.
type OverrideHandler struct {
	store  OverrideManager
	logger *slog.Logger
}

func NewOverrideHandler(store OverrideManager, logger *slog.Logger) *OverrideHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverrideHandler{store: store, logger: logger}
}

func (h *OverrideHandler) RegisterRoutes(r chi.Router) {
	r.Route("/overrides", func(r chi.Router) {
		r.Get("/", h.ListOverrides)
		r.Post("/", h.SaveOverride)
		r.Delete("/{id}", h.DeleteOverride)
	})
}

func (h *OverrideHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.store.ListOverrides(r.Context())
	if err != nil {
		h.logger.Error("failed to list overrides", slog.Any("error", err))
		httpx.Fail(w, r, http.StatusInternalServerError, "overrides_failed", "failed to list overrides")
		return
	}
	if overrides == nil {
		overrides = []normalizer.ExplanationOverride{}
	}
	httpx.Success(w, r, overrides)
}

// SaveOverride creates or replaces the override for a match pattern.
func (h *OverrideHandler) SaveOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchPattern string `json:"match_pattern"`
		MatchType    string `json:"match_type"`
		Explanation  string `json:"explanation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	req.MatchPattern = strings.TrimSpace(req.MatchPattern)
	req.Explanation = strings.TrimSpace(req.Explanation)
	if req.MatchPattern == "" || req.Explanation == "" {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_override", "match_pattern and explanation are required")
		return
	}
	switch req.MatchType {
	case "", normalizer.MatchExact, normalizer.MatchContains, normalizer.MatchRegex:
	default:
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_override", "match_type must be exact, contains or regex")
		return
	}

	saved, err := h.store.SaveOverride(r.Context(), normalizer.ExplanationOverride{
		MatchPattern: req.MatchPattern,
		MatchType:    req.MatchType,
		Explanation:  req.Explanation,
	})
	if err != nil {
		h.logger.Error("failed to save override", slog.String("pattern", req.MatchPattern), slog.Any("error", err))
		httpx.Fail(w, r, http.StatusInternalServerError, "override_failed", "failed to save override")
		return
	}
	httpx.Created(w, r, saved)
}

func (h *OverrideHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_id", "override id must be a UUID")
		return
	}

	if err := h.store.DeleteOverride(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.Fail(w, r, http.StatusNotFound, "override_not_found", "override not found")
			return
		}
		h.logger.Error("failed to delete override", slog.String("id", id.String()), slog.Any("error", err))
		httpx.Fail(w, r, http.StatusInternalServerError, "override_failed", "failed to delete override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
