// Package allocation computes and validates invoice payment breakdowns.
// It is pure: no I/O, no clock reads, identical inputs yield identical outputs.
package allocation

import (
	"time"
)

// MethodKind discriminates how a payment is settled.
type MethodKind string

const (
	// MethodDirect records a new external payment instrument.
	MethodDirect MethodKind = "DIRECT"
	// MethodBalanceOffset draws down the counterparty's deposit balance.
	MethodBalanceOffset MethodKind = "BALANCE_OFFSET"
)

// MethodDescriptor carries the requirement flags declared by a payment
// type's settlement method.
type MethodDescriptor struct {
	RequiresChequeNumber bool
	RequiresBankDetails  bool
}

// LineItem is one payable row on an invoice.
type LineItem struct {
	ID         int64
	Total      float64
	PaidAmount float64 // cumulative across all prior payments
}

// RemainingBalance returns what is still payable on the line item.
func (li LineItem) RemainingBalance() float64 {
	remaining := li.Total - li.PaidAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Invoice is the read-only input to the allocator.
type Invoice struct {
	ID             int64
	Number         string
	CounterpartyID int64
	Currency       string
	ExchangeRate   float64 // invoice currency units x rate = system currency units
	Total          float64
	PaidAmount     float64
	IssuedAt       time.Time
	DepositBalance float64 // counterparty's offsettable balance, system currency
	Lines          []LineItem
}

// Balance returns the outstanding invoice amount, clamped at zero.
func (inv Invoice) Balance() float64 {
	balance := inv.Total - inv.PaidAmount
	if balance < 0 {
		return 0
	}
	return balance
}

// Allocation maps a line-item id to the amount proposed for the current
// transaction. Amounts are clamped into [0, remaining balance] at entry.
type Allocation map[int64]float64

// Clone returns an independent copy of the allocation.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for id, amount := range a {
		out[id] = amount
	}
	return out
}

// Method is the selected settlement variant with its method-specific fields.
type Method struct {
	Kind          MethodKind
	PaymentTypeID int64
	Descriptor    MethodDescriptor
	ChequeNumber  string
	BankReference string
}

// CurrencyContext pairs the payment currency with the rate converting it to
// the system currency. ExchangeRateID is zero when the rate is 1:1 rather
// than looked up from reference data.
type CurrencyContext struct {
	CurrencyID     int64
	ExchangeRateID int64
	Rate           float64
}

// Details holds the first-step fields of the payment entry flow: everything
// except the per-line-item amounts.
type Details struct {
	Method          Method
	Currency        CurrencyContext
	Description     string
	TransactionDate time.Time
	AccountID       int64
}
