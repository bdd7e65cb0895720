package journals

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
	"github.com/tavola-erp/tavola-erp/internal/platform/httpx"
	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

type lineRequest struct {
	AccountID    int64           `json:"account_id" validate:"required"`
	Description  *string         `json:"description,omitempty"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	CostCenterID *int64          `json:"cost_center_id,omitempty"`
	ProjectCode  *string         `json:"project_code,omitempty"`
}

type createEntryRequest struct {
	EntryDate   string        `json:"entry_date" validate:"required"`
	Description string        `json:"description" validate:"required,max=500"`
	Reference   *string       `json:"reference,omitempty"`
	SourceKind  string        `json:"source_kind,omitempty" validate:"omitempty,oneof=MANUAL POS PURCHASE"`
	SourceID    *uuid.UUID    `json:"source_id,omitempty"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

func toLineInputsFromRequest(lines []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID:    line.AccountID,
			Description:  line.Description,
			Debit:        line.Debit,
			Credit:       line.Credit,
			CostCenterID: line.CostCenterID,
			ProjectCode:  line.ProjectCode,
		})
	}
	return out
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entryDate, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry_date, expected YYYY-MM-DD")
		return
	}
	sourceKind := SourceKind(req.SourceKind)
	if sourceKind == "" {
		sourceKind = SourceManual
	}
	identity, _ := internalshared.IdentityFromContext(r.Context())
	entry, err := h.service.CreateEntry(r.Context(), CreateEntryInput{
		TenantID:    identity.TenantID,
		EntryDate:   entryDate,
		Description: req.Description,
		Reference:   req.Reference,
		SourceKind:  sourceKind,
		SourceID:    req.SourceID,
		CreatedBy:   identity.UserID,
		Lines:       toLineInputsFromRequest(req.Lines),
	})
	if err != nil {
		h.respondError(w, "create entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(r.Context(), identity.TenantID, id)
	if err != nil {
		h.respondError(w, "get entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.PostEntry(r.Context(), identity.TenantID, id, identity.UserID)
	if err != nil {
		h.respondError(w, "post entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

type reverseEntryRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req reverseEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reversal, err := h.service.ReverseEntry(r.Context(), identity.TenantID, id, identity.UserID, req.Reason)
	if err != nil {
		h.respondError(w, "reverse entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}

type updateEntryRequest struct {
	EntryDate   *string       `json:"entry_date,omitempty"`
	Description *string       `json:"description,omitempty" validate:"omitempty,max=500"`
	Reference   *string       `json:"reference,omitempty"`
	Lines       []lineRequest `json:"lines,omitempty" validate:"omitempty,min=2,dive"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req updateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := UpdateEntryInput{TenantID: identity.TenantID, EntryID: id, Description: req.Description, Reference: req.Reference}
	if req.EntryDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.EntryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry_date, expected YYYY-MM-DD")
			return
		}
		input.EntryDate = &parsed
	}
	if req.Lines != nil {
		input.Lines = toLineInputsFromRequest(req.Lines)
	}
	entry, err := h.service.UpdateEntry(r.Context(), input)
	if err != nil {
		h.respondError(w, "update entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(r.Context(), identity.TenantID, id); err != nil {
		h.respondError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	filter, err := parseListFilter(r, identity.TenantID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries, pagination, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries, "pagination": pagination})
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid as_of date, expected YYYY-MM-DD")
			return
		}
		asOf = &parsed
	}
	tb, err := h.service.TrialBalance(r.Context(), identity.TenantID, asOf)
	if err != nil {
		h.respondError(w, "trial balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrEntryNotFound), errors.Is(err, shared.ErrAccountNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
	case errors.Is(err, shared.ErrNotDraft), errors.Is(err, shared.ErrNotPosted):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, err))
	case errors.Is(err, shared.ErrUnbalanced), errors.Is(err, shared.ErrTooFewLines), errors.Is(err, shared.ErrInvalidLine), errors.Is(err, shared.ErrFiscalYearMismatch):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseListFilter(r *http.Request, tenantID int64) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{TenantID: tenantID, Search: q.Get("search")}
	parseDate := func(key string) (*time.Time, error) {
		raw := q.Get(key)
		if raw == "" {
			return nil, nil
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s date, expected YYYY-MM-DD", key)
		}
		return &parsed, nil
	}
	var err error
	if filter.DateFrom, err = parseDate("from"); err != nil {
		return ListFilter{}, err
	}
	if filter.DateTo, err = parseDate("to"); err != nil {
		return ListFilter{}, err
	}
	if raw := q.Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListFilter{}, errors.New("invalid account_id")
		}
		filter.AccountID = &id
	}
	if raw := q.Get("cost_center_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListFilter{}, errors.New("invalid cost_center_id")
		}
		filter.CostCenterID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := EntryStatus(raw)
		filter.Status = &status
	}
	if raw := q.Get("source_kind"); raw != "" {
		kind := SourceKind(raw)
		filter.SourceKind = &kind
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return filter, nil
}
