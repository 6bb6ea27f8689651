package allocation

import (
	"time"
)

// ItemPayment is one line of the submission payload.
type ItemPayment struct {
	LineItemID int64
	Amount     float64
}

// SubmissionPayload is the exact record handed to the submit-payment
// collaborator. It is a plain value: once built it is never mutated.
type SubmissionPayload struct {
	InvoiceID       int64
	Total           float64
	Items           []ItemPayment
	Method          MethodKind
	PaymentTypeID   int64
	ChequeNumber    string
	BankReference   string
	BalanceOffset   bool
	OffsetAmount    float64 // system currency, zero unless balance offset
	CurrencyID      int64
	ExchangeRate    float64
	ExchangeRateID  int64
	Description     string
	TransactionDate time.Time
	AccountID       int64
}

// BuildSubmissionPayload assembles the record handed to the submission
// collaborator. Callers must only invoke it after Validate returned an empty
// set; amounts are still clamped here so the payload always mirrors the
// computed total.
func BuildSubmissionPayload(inv Invoice, alloc Allocation, d Details) SubmissionPayload {
	payload := SubmissionPayload{
		InvoiceID:       inv.ID,
		Total:           ComputeAllocationTotal(inv.Lines, alloc),
		Method:          d.Method.Kind,
		PaymentTypeID:   d.Method.PaymentTypeID,
		ChequeNumber:    d.Method.ChequeNumber,
		BankReference:   d.Method.BankReference,
		CurrencyID:      d.Currency.CurrencyID,
		ExchangeRate:    effectiveRate(inv, d),
		ExchangeRateID:  d.Currency.ExchangeRateID,
		Description:     d.Description,
		TransactionDate: d.TransactionDate,
		AccountID:       d.AccountID,
	}

	// Items follow invoice line order so the payload is deterministic.
	for _, li := range inv.Lines {
		amount := clamp(alloc[li.ID], 0, li.RemainingBalance())
		if amount <= 0 {
			continue
		}
		payload.Items = append(payload.Items, ItemPayment{LineItemID: li.ID, Amount: amount})
	}

	if d.Method.Kind == MethodBalanceOffset {
		payload.BalanceOffset = true
		payload.OffsetAmount = SystemCurrencyTotal(payload.Total, payload.ExchangeRate)
	}

	return payload
}
