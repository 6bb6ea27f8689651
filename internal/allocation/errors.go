package allocation

import (
	"fmt"
	"strings"
	"time"
)

// Code names a validation failure condition.
type Code string

const (
	CodeNegativeItemPayment              Code = "NEGATIVE_ITEM_PAYMENT"
	CodeItemPaymentExceedsRemaining      Code = "ITEM_PAYMENT_EXCEEDS_REMAINING"
	CodePaymentTypeRequired              Code = "PAYMENT_TYPE_REQUIRED"
	CodeChequeNumberRequired             Code = "CHEQUE_NUMBER_REQUIRED"
	CodeBankDetailsRequired              Code = "BANK_DETAILS_REQUIRED"
	CodeNoOffsettableBalance             Code = "NO_OFFSETTABLE_BALANCE"
	CodeInsufficientBalance              Code = "INSUFFICIENT_BALANCE"
	CodeZeroPaymentAmount                Code = "ZERO_PAYMENT_AMOUNT"
	CodePaymentExceedsInvoiceBalance     Code = "PAYMENT_EXCEEDS_INVOICE_BALANCE"
	CodeCurrencyRequired                 Code = "CURRENCY_REQUIRED"
	CodeExchangeRateRequired             Code = "EXCHANGE_RATE_REQUIRED"
	CodeTransactionDateBeforeInvoiceDate Code = "TRANSACTION_DATE_BEFORE_INVOICE_DATE"
	CodeAccountRequired                  Code = "ACCOUNT_REQUIRED"
)

// Error is one named validation failure. It carries the offending values so
// a caller can render a precise message; the allocator itself never formats
// user-facing text.
type Error struct {
	Code   Code
	ItemID int64     // offending line item for item-scoped failures
	Limit  float64   // the bound that was exceeded
	Actual float64   // the value that exceeded it
	Date   time.Time // invoice date for date-scoped failures
}

func (e Error) Error() string {
	if e.ItemID != 0 {
		return fmt.Sprintf("allocation: %s (item %d)", e.Code, e.ItemID)
	}
	return fmt.Sprintf("allocation: %s", e.Code)
}

// ErrorSet is the complete outcome of one validation pass. Rules are
// evaluated independently, so a set can carry several failures at once.
type ErrorSet []Error

// Empty reports whether the pass found no failures.
func (s ErrorSet) Empty() bool {
	return len(s) == 0
}

// Has reports whether any failure in the set carries the given code.
func (s ErrorSet) Has(code Code) bool {
	for _, e := range s {
		if e.Code == code {
			return true
		}
	}
	return false
}

// ForItem returns the failures scoped to one line item.
func (s ErrorSet) ForItem(itemID int64) ErrorSet {
	var out ErrorSet
	for _, e := range s {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out
}

func (s ErrorSet) Error() string {
	codes := make([]string, len(s))
	for i, e := range s {
		codes[i] = string(e.Code)
	}
	return "allocation: validation failed: " + strings.Join(codes, ", ")
}
