package allocation

import (
	"strings"
	"time"
)

// BalanceTolerance absorbs floating-point rounding when a direct payment is
// compared against the invoice's outstanding balance.
const BalanceTolerance = 0.01

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ComputeAllocationTotal sums the proposed amounts after clamping each one
// into [0, remaining balance]. Out-of-range entries are never trusted as
// given, so the result is always non-negative and never exceeds the sum of
// remaining balances.
func ComputeAllocationTotal(lines []LineItem, alloc Allocation) float64 {
	var total float64
	for _, li := range lines {
		total += clamp(alloc[li.ID], 0, li.RemainingBalance())
	}
	return total
}

// SystemCurrencyTotal converts a payment total from the invoice currency to
// the system currency using the effective exchange rate.
func SystemCurrencyTotal(total float64, rate float64) float64 {
	return total * rate
}

// effectiveRate picks the rate to use for cross-currency comparisons.
// Balance-offset entries are always expressed in the invoice's own currency,
// so the invoice rate applies when the context carries none.
func effectiveRate(inv Invoice, d Details) float64 {
	if d.Currency.Rate > 0 {
		return d.Currency.Rate
	}
	return inv.ExchangeRate
}

// sameOrLaterDay compares two instants at day granularity, ignoring
// time-of-day components.
func sameOrLaterDay(t, reference time.Time) bool {
	ty, tm, td := t.Date()
	ry, rm, rd := reference.Date()
	day := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	ref := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	return !day.Before(ref)
}

// ValidateDetails runs the rules that do not depend on item amounts: payment
// type and its method-conditional fields, currency context, transaction date
// and account. The Details step of the entry flow is gated on this subset.
func ValidateDetails(inv Invoice, d Details) ErrorSet {
	var errs ErrorSet

	if d.Method.Kind == MethodDirect {
		if d.Method.PaymentTypeID == 0 {
			errs = append(errs, Error{Code: CodePaymentTypeRequired})
		}
		if d.Method.Descriptor.RequiresChequeNumber && strings.TrimSpace(d.Method.ChequeNumber) == "" {
			errs = append(errs, Error{Code: CodeChequeNumberRequired})
		}
		if d.Method.Descriptor.RequiresBankDetails && strings.TrimSpace(d.Method.BankReference) == "" {
			errs = append(errs, Error{Code: CodeBankDetailsRequired})
		}
	}

	// Balance-offset payments are always expressed in the invoice's own
	// currency and rate, so the currency fields are pre-populated there.
	if d.Method.Kind != MethodBalanceOffset {
		if d.Currency.CurrencyID == 0 {
			errs = append(errs, Error{Code: CodeCurrencyRequired})
		}
		if d.Currency.Rate <= 0 {
			errs = append(errs, Error{Code: CodeExchangeRateRequired})
		}
	}

	if !sameOrLaterDay(d.TransactionDate, inv.IssuedAt) {
		errs = append(errs, Error{Code: CodeTransactionDateBeforeInvoiceDate, Date: inv.IssuedAt})
	}

	if d.AccountID == 0 {
		errs = append(errs, Error{Code: CodeAccountRequired})
	}

	return errs
}

// Validate runs the complete rule set against the proposed allocation. Every
// applicable rule is evaluated; failures never short-circuit each other. An
// empty set means the allocation can be submitted.
func Validate(inv Invoice, alloc Allocation, d Details) ErrorSet {
	errs := ValidateDetails(inv, d)

	for _, li := range inv.Lines {
		amount, ok := alloc[li.ID]
		if !ok {
			continue
		}
		if amount < 0 {
			errs = append(errs, Error{Code: CodeNegativeItemPayment, ItemID: li.ID, Actual: amount})
		}
		if remaining := li.RemainingBalance(); amount > remaining {
			errs = append(errs, Error{
				Code:   CodeItemPaymentExceedsRemaining,
				ItemID: li.ID,
				Limit:  remaining,
				Actual: amount,
			})
		}
	}

	total := ComputeAllocationTotal(inv.Lines, alloc)
	if total <= 0 {
		errs = append(errs, Error{Code: CodeZeroPaymentAmount})
	}

	switch d.Method.Kind {
	case MethodDirect:
		if balance := inv.Balance(); total > balance+BalanceTolerance {
			errs = append(errs, Error{
				Code:   CodePaymentExceedsInvoiceBalance,
				Limit:  balance,
				Actual: total,
			})
		}
	case MethodBalanceOffset:
		if inv.DepositBalance <= 0 {
			errs = append(errs, Error{Code: CodeNoOffsettableBalance})
		}
		converted := SystemCurrencyTotal(total, effectiveRate(inv, d))
		if converted > inv.DepositBalance {
			errs = append(errs, Error{
				Code:   CodeInsufficientBalance,
				Limit:  inv.DepositBalance,
				Actual: converted,
			})
		}
	}

	return errs
}
