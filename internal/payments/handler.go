package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/allocation"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/refdata"
)

const dateLayout = "2006-01-02"

// Handler wires the payment entry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	refdata  *refdata.Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, refdataSvc *refdata.Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		refdata:  refdataSvc,
		validate: validator.New(),
	}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices/{id}/payment", h.showPaymentEntry)
	r.Post("/invoices/{id}/payment/details", h.checkDetails)
	r.Post("/invoices/{id}/payment", h.submitPayment)
	r.Get("/invoices/{id}/payments", h.listPayments)
}

type detailsRequest struct {
	BalanceOffset   bool    `json:"balance_offset"`
	PaymentTypeID   int64   `json:"payment_type_id"`
	ChequeNumber    string  `json:"cheque_number"`
	BankReference   string  `json:"bank_reference"`
	CurrencyID      int64   `json:"currency_id"`
	Description     string  `json:"description" validate:"max=500"`
	TransactionDate string  `json:"transaction_date" validate:"required"`
	AccountID       int64   `json:"account_id"`
}

type itemAmountRequest struct {
	LineItemID int64   `json:"line_item_id" validate:"required"`
	Amount     float64 `json:"amount"`
}

type submitRequest struct {
	detailsRequest
	Items []itemAmountRequest `json:"items" validate:"dive"`
}

type validationErrorView struct {
	Code    string  `json:"code"`
	ItemID  int64   `json:"item_id,omitempty"`
	Limit   float64 `json:"limit,omitempty"`
	Actual  float64 `json:"actual,omitempty"`
	Message string  `json:"message"`
}

func errorViews(errs allocation.ErrorSet) []validationErrorView {
	views := make([]validationErrorView, len(errs))
	for i, e := range errs {
		views[i] = validationErrorView{
			Code:    string(e.Code),
			ItemID:  e.ItemID,
			Limit:   e.Limit,
			Actual:  e.Actual,
			Message: MessageFor(e),
		}
	}
	return views
}

func (d detailsRequest) toInput() DetailsInput {
	// An unparseable date stays zero so the allocator reports it instead
	// of the handler guessing.
	date, _ := time.Parse(dateLayout, d.TransactionDate)
	return DetailsInput{
		BalanceOffset:   d.BalanceOffset,
		PaymentTypeID:   d.PaymentTypeID,
		ChequeNumber:    d.ChequeNumber,
		BankReference:   d.BankReference,
		CurrencyID:      d.CurrencyID,
		Description:     d.Description,
		TransactionDate: date,
		AccountID:       d.AccountID,
	}
}

func invoiceID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// showPaymentEntry returns the invoice with its line balances plus the
// reference collections the entry form needs.
func (h *Handler) showPaymentEntry(w http.ResponseWriter, r *http.Request) {
	id, err := invoiceID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Invoice ID", err.Error())
		return
	}

	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	snap, err := h.refdata.Snapshot(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	type lineView struct {
		ID        int64   `json:"id"`
		Total     float64 `json:"total"`
		Paid      float64 `json:"paid"`
		Remaining float64 `json:"remaining"`
	}
	lines := make([]lineView, len(inv.Lines))
	for i, li := range inv.Lines {
		lines[i] = lineView{ID: li.ID, Total: li.Total, Paid: li.PaidAmount, Remaining: li.RemainingBalance()}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice": map[string]any{
			"id":              inv.ID,
			"number":          inv.Number,
			"currency":        inv.Currency,
			"exchange_rate":   inv.ExchangeRate,
			"total":           inv.Total,
			"paid":            inv.PaidAmount,
			"balance":         inv.Balance(),
			"deposit_balance": inv.DepositBalance,
			"issued_at":       inv.IssuedAt.Format(dateLayout),
			"lines":           lines,
		},
		"payment_types":   snap.PaymentTypes,
		"currencies":      snap.Currencies,
		"bank_accounts":   snap.BankAccounts,
		"ledger_accounts": snap.LedgerAccounts,
	})
}

// checkDetails gates the Details -> Items transition.
func (h *Handler) checkDetails(w http.ResponseWriter, r *http.Request) {
	id, err := invoiceID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Invoice ID", err.Error())
		return
	}

	var req detailsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	errs, err := h.service.ValidateDetails(r.Context(), id, req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !errs.Empty() {
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":  false,
			"errors": errorViews(errs),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": true})
}

// submitPayment runs the full validation set and records the payment.
func (h *Handler) submitPayment(w http.ResponseWriter, r *http.Request) {
	id, err := invoiceID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Invoice ID", err.Error())
		return
	}

	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	amounts := make(map[int64]float64, len(req.Items))
	for _, item := range req.Items {
		amounts[item.LineItemID] = item.Amount
	}

	payment, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		InvoiceID: id,
		Details:   req.detailsRequest.toInput(),
		Amounts:   amounts,
		CreatedBy: 0, // authentication is out of scope for this service
	})
	if err != nil {
		var errs allocation.ErrorSet
		if errors.As(err, &errs) {
			httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
				"valid":  false,
				"errors": errorViews(errs),
			})
			return
		}
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"payment": map[string]any{
			"id":             payment.ID,
			"number":         payment.Number,
			"invoice_id":     payment.InvoiceID,
			"amount":         payment.Amount,
			"amount_display": FormatAmount(payment.Amount),
			"method":         payment.Method,
			"balance_offset": payment.BalanceOffset,
			"offset_amount":  payment.OffsetAmount,
			"paid_at":        payment.PaidAt.Format(dateLayout),
		},
	})
}

// listPayments returns the payments recorded against an invoice.
func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := invoiceID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Invoice ID", err.Error())
		return
	}
	payments, err := h.service.ListPaymentsByInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrPaymentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicatePayment):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("payments handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
