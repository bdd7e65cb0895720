package statements

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tavola-erp/tavola-erp/internal/platform/httpx"
	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, now: time.Now}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/income-statement", h.IncomeStatement)
	r.Get("/cash-flow", h.CashFlow)
	r.Get("/ratios", h.Ratios)
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	asOf, ok := h.dateOrToday(w, r, "as_of")
	if !ok {
		return
	}
	bs, err := h.service.GenerateBalanceSheet(r.Context(), identity.TenantID, asOf)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	start, end, ok := h.period(w, r)
	if !ok {
		return
	}
	is, err := h.service.GenerateIncomeStatement(r.Context(), identity.TenantID, start, end)
	if err != nil {
		h.logger.Error("income statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, is)
}

func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	start, end, ok := h.period(w, r)
	if !ok {
		return
	}
	cf, err := h.service.GenerateCashFlowStatement(r.Context(), identity.TenantID, start, end)
	if err != nil {
		h.logger.Error("cash flow", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cf)
}

func (h *Handler) Ratios(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	asOf, ok := h.dateOrToday(w, r, "as_of")
	if !ok {
		return
	}
	ratios, err := h.service.FinancialRatios(r.Context(), identity.TenantID, asOf)
	if err != nil {
		h.logger.Error("financial ratios", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ratios)
}

func (h *Handler) dateOrToday(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return h.now().Truncate(24 * time.Hour), true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+key+" date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return parsed, true
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	rawStart, rawEnd := q.Get("start"), q.Get("end")
	if rawStart == "" || rawEnd == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start and end dates are required")
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse("2006-01-02", rawStart)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid start date, expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse("2006-01-02", rawEnd)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid end date, expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end date precedes start date")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
