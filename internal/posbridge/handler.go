package posbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

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

type ingredientRequest struct {
	IngredientID int64           `json:"ingredient_id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
}

type orderItemRequest struct {
	MenuItemID  int64               `json:"menu_item_id" validate:"required"`
	Name        string              `json:"name" validate:"required"`
	Quantity    decimal.Decimal     `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Ingredients []ingredientRequest `json:"ingredients,omitempty" validate:"dive"`
}

type postSaleRequest struct {
	OrderID          uuid.UUID          `json:"order_id" validate:"required"`
	Number           string             `json:"number" validate:"required"`
	CompletedAt      time.Time          `json:"completed_at" validate:"required"`
	PaymentMethod    string             `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER CREDIT"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Items            []orderItemRequest `json:"items" validate:"min=1,dive"`
	VATRate          decimal.Decimal    `json:"vat_rate"`
	IncomeTaxRate    decimal.Decimal    `json:"income_tax_rate"`
	MunicipalTaxRate decimal.Decimal    `json:"municipal_tax_rate"`
}

// PostSale computes taxes and recipe costs for a completed order and posts
// the resulting journal entry. A missing account mapping is a 200 with a
// SKIPPED result, not an error.
func (h *Handler) PostSale(w http.ResponseWriter, r *http.Request) {
	var req postSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := internalshared.IdentityFromContext(r.Context())

	order := req.toOrder()
	tax := CalculateTax(order.Subtotal, req.VATRate, req.IncomeTaxRate, req.MunicipalTaxRate)
	order.TaxAmount = tax.TotalTax
	order.Total = tax.GrandTotal
	cogs := ComputeOrderCOGS(order.Items)

	result, err := h.service.PostOrderSale(r.Context(), identity.TenantID, identity.UserID, order, tax, cogs)
	if err != nil {
		h.respondError(w, "post order sale", err)
		return
	}
	status := http.StatusCreated
	if result.Status == PostStatusSkipped {
		status = http.StatusOK
	}
	httpx.JSON(w, status, result)
}

type postRefundRequest struct {
	OrderID       uuid.UUID       `json:"order_id" validate:"required"`
	Number        string          `json:"number" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER CREDIT"`
	Amount        decimal.Decimal `json:"amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	COGSAmount    decimal.Decimal `json:"cogs_amount"`
	Reason        string          `json:"reason" validate:"required,max=255"`
}

func (h *Handler) PostRefund(w http.ResponseWriter, r *http.Request) {
	var req postRefundRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := internalshared.IdentityFromContext(r.Context())

	order := CompletedOrder{
		OrderID:       req.OrderID,
		Number:        req.Number,
		PaymentMethod: PaymentMethod(req.PaymentMethod),
	}
	result, err := h.service.PostOrderRefund(r.Context(), identity.TenantID, identity.UserID, order, req.Amount, req.TaxAmount, req.COGSAmount, req.Reason)
	if err != nil {
		h.respondError(w, "post order refund", err)
		return
	}
	status := http.StatusCreated
	if result.Status == PostStatusSkipped {
		status = http.StatusOK
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) Profitability(w http.ResponseWriter, r *http.Request) {
	identity, _ := internalshared.IdentityFromContext(r.Context())
	start, err := dateParam(r, "start_date")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	end, err := dateParam(r, "end_date")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if start == nil || end == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date and end_date are required")
		return
	}
	report, err := h.service.ProfitabilityReport(r.Context(), identity.TenantID, *start, end.AddDate(0, 0, 1))
	if err != nil {
		h.respondError(w, "profitability report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrAccountNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err))
	case errors.Is(err, shared.ErrUnbalanced), errors.Is(err, shared.ErrInvalidLine), errors.Is(err, shared.ErrTooFewLines):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (r postSaleRequest) toOrder() CompletedOrder {
	items := make([]OrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		ingredients := make([]RecipeIngredient, 0, len(item.Ingredients))
		for _, ing := range item.Ingredients {
			ingredients = append(ingredients, RecipeIngredient{
				IngredientID: ing.IngredientID,
				Name:         ing.Name,
				Quantity:     ing.Quantity,
				UnitCost:     ing.UnitCost,
			})
		}
		items = append(items, OrderItem{
			MenuItemID:  item.MenuItemID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Ingredients: ingredients,
		})
	}
	return CompletedOrder{
		OrderID:       r.OrderID,
		Number:        r.Number,
		CompletedAt:   r.CompletedAt,
		PaymentMethod: PaymentMethod(r.PaymentMethod),
		Subtotal:      r.Subtotal,
		Items:         items,
	}
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
