package payments

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-erp/meridian-erp/internal/allocation"
)

var printer = message.NewPrinter(language.English)

// MessageFor renders the user-facing text for one validation failure. The
// allocator never formats messages itself; the templates live here so they
// can change without touching the validation rules. Every blocking condition
// has a message, including the ones the legacy flow reported silently.
func MessageFor(e allocation.Error) string {
	switch e.Code {
	case allocation.CodeNegativeItemPayment:
		return printer.Sprintf("Payment amount for line %d cannot be negative", e.ItemID)
	case allocation.CodeItemPaymentExceedsRemaining:
		return printer.Sprintf("Payment for line %d exceeds its remaining balance of %.2f", e.ItemID, e.Limit)
	case allocation.CodePaymentTypeRequired:
		return printer.Sprintf("A payment type is required")
	case allocation.CodeChequeNumberRequired:
		return printer.Sprintf("The selected payment type requires a cheque number")
	case allocation.CodeBankDetailsRequired:
		return printer.Sprintf("The selected payment type requires bank details")
	case allocation.CodeNoOffsettableBalance:
		return printer.Sprintf("The counterparty has no deposit balance to offset")
	case allocation.CodeInsufficientBalance:
		return printer.Sprintf("Payment of %.2f exceeds the available deposit balance of %.2f", e.Actual, e.Limit)
	case allocation.CodeZeroPaymentAmount:
		return printer.Sprintf("The payment total must be greater than zero")
	case allocation.CodePaymentExceedsInvoiceBalance:
		return printer.Sprintf("Payment of %.2f exceeds the invoice balance of %.2f", e.Actual, e.Limit)
	case allocation.CodeCurrencyRequired:
		return printer.Sprintf("A currency is required")
	case allocation.CodeExchangeRateRequired:
		return printer.Sprintf("A positive exchange rate is required")
	case allocation.CodeTransactionDateBeforeInvoiceDate:
		return printer.Sprintf("The transaction date cannot be before the invoice date %s", e.Date.Format("2006-01-02"))
	case allocation.CodeAccountRequired:
		return printer.Sprintf("A receivable or payable account is required")
	}
	return string(e.Code)
}

// FormatAmount renders a money amount with grouping for display.
func FormatAmount(amount float64) string {
	return printer.Sprintf("%.2f", amount)
}
