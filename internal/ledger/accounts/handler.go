package accounts

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

type createAccountRequest struct {
	Code          string  `json:"code" validate:"required,max=20"`
	Name          string  `json:"name" validate:"required,max=120"`
	NameAlt       *string `json:"name_alt,omitempty"`
	Description   *string `json:"description,omitempty"`
	Class         string  `json:"class" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	NormalBalance string  `json:"normal_balance,omitempty" validate:"omitempty,oneof=DEBIT CREDIT"`
	ParentID      *int64  `json:"parent_id,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := internalshared.IdentityFromContext(r.Context())
	account, err := h.service.Create(r.Context(), CreateAccountInput{
		TenantID:      identity.TenantID,
		Code:          req.Code,
		Name:          req.Name,
		NameAlt:       req.NameAlt,
		Description:   req.Description,
		Class:         AccountClass(req.Class),
		NormalBalance: NormalBalance(req.NormalBalance),
		ParentID:      req.ParentID,
	})
	if err != nil {
		h.respondError(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	class := classFilter(r)
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	tree, err := h.service.Hierarchy(r.Context(), identity.TenantID, class, asOf)
	if err != nil {
		h.respondError(w, "account hierarchy", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": tree})
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	balance, err := h.service.Balance(r.Context(), identity.TenantID, id, asOf)
	if err != nil {
		h.respondError(w, "account balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": balance})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	list, err := h.service.Search(r.Context(), identity.TenantID, r.URL.Query().Get("q"), classFilter(r))
	if err != nil {
		h.respondError(w, "account search", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": list})
}

type updateAccountRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	NameAlt     *string `json:"name_alt,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.UpdateDetails(r.Context(), UpdateDetailsInput{
		TenantID:    identity.TenantID,
		AccountID:   id,
		Name:        req.Name,
		NameAlt:     req.NameAlt,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, "update account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

type reparentAccountRequest struct {
	ParentID *int64 `json:"parent_id"`
}

func (h *Handler) Reparent(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	var req reparentAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	account, err := h.service.Reparent(r.Context(), identity.TenantID, id, req.ParentID)
	if err != nil {
		h.respondError(w, "reparent account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	if err := h.service.Deactivate(r.Context(), identity.TenantID, id); err != nil {
		h.respondError(w, "deactivate account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrAccountNotFound), errors.Is(err, shared.ErrParentNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
	case errors.Is(err, shared.ErrDuplicateCode):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrDuplicate, err))
	case errors.Is(err, shared.ErrAccountHasTransactions), errors.Is(err, shared.ErrSystemAccount):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrIntegrity, err))
	case errors.Is(err, shared.ErrHierarchyCycle):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func classFilter(r *http.Request) *AccountClass {
	raw := r.URL.Query().Get("class")
	if raw == "" {
		return nil
	}
	class := AccountClass(raw)
	return &class
}

func dateParam(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date, expected YYYY-MM-DD", key)
	}
	return &parsed, nil
}
