package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/meu-holerite/internal/domain/insights"
	"github.com/FACorreiaa/meu-holerite/pkg/httpx"
)

const defaultLimit = 10

// InsightsHandler serves dashboard, comparison and search endpoints.
type InsightsHandler struct {
	svc    *insights.Service
	logger *slog.Logger
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(svc *insights.Service, logger *slog.Logger) *InsightsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightsHandler{svc: svc, logger: logger}
}

func (h *InsightsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/insights", func(r chi.Router) {
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/compare", h.ComparePeriods)
		r.Get("/search", h.SearchLineItems)
		r.Get("/suggest", h.SuggestDescriptions)
		r.Get("/codes/{code}", h.LinesByCode)
	})
}

func (h *InsightsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.internalError(w, r, "dashboard", err)
		return
	}
	httpx.Success(w, r, dashboard)
}

// ComparePeriods expects ?a=<period>&b=<period>.
func (h *InsightsHandler) ComparePeriods(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_query", "query parameters a and b are required")
		return
	}

	cmp, err := h.svc.PeriodComparison(r.Context(), a, b)
	if errors.Is(err, insights.ErrPeriodNotFound) {
		httpx.Fail(w, r, http.StatusNotFound, "period_not_found", err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "compare", err)
		return
	}
	httpx.Success(w, r, cmp)
}

func (h *InsightsHandler) SearchLineItems(w http.ResponseWriter, r *http.Request) {
	hits, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	if err != nil {
		h.internalError(w, r, "search", err)
		return
	}
	httpx.Success(w, r, hits)
}

func (h *InsightsHandler) SuggestDescriptions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.svc.Suggest(r.Context(), r.URL.Query().Get("q"), limitParam(r))
	if err != nil {
		h.internalError(w, r, "suggest", err)
		return
	}
	httpx.Success(w, r, suggestions)
}

func (h *InsightsHandler) LinesByCode(w http.ResponseWriter, r *http.Request) {
	hits, err := h.svc.LinesByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.internalError(w, r, "codes", err)
		return
	}
	httpx.Success(w, r, hits)
}

func (h *InsightsHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("insights request failed", slog.String("op", op), slog.Any("error", err))
	httpx.Fail(w, r, http.StatusInternalServerError, op+"_failed", "failed to compute "+op)
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return min(n, 100)
}
