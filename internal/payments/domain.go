// Package payments orchestrates the invoice payment entry flow: it loads
// invoices and reference data, runs the allocator, and persists validated
// submissions.
package payments

import (
	"time"
)

// Payment is a recorded invoice payment.
type Payment struct {
	ID             int64
	Number         string
	IdempotencyKey string
	InvoiceID      int64
	CounterpartyID int64
	Amount         float64
	Method         string
	PaymentTypeID  *int64
	ChequeNumber   string
	BankReference  string
	BalanceOffset  bool
	OffsetAmount   float64
	CurrencyID     int64
	ExchangeRate   float64
	ExchangeRateID *int64
	Description    string
	PaidAt         time.Time
	AccountID      int64
	CreatedBy      int64
	CreatedAt      time.Time
}

// PaymentLine applies part of a payment to one invoice line item.
type PaymentLine struct {
	ID         int64
	PaymentID  int64
	LineItemID int64
	Amount     float64
	CreatedAt  time.Time
}

// DetailsInput carries the raw first-step form fields before resolution
// against reference data.
type DetailsInput struct {
	BalanceOffset   bool
	PaymentTypeID   int64
	ChequeNumber    string
	BankReference   string
	CurrencyID      int64
	Description     string
	TransactionDate time.Time
	AccountID       int64
}

// RecordPaymentInput is the full submission of the payment entry flow.
type RecordPaymentInput struct {
	InvoiceID int64
	Details   DetailsInput
	Amounts   map[int64]float64
	CreatedBy int64
}
