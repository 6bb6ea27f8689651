// Package refdata serves the reference collections the payment entry flow
// depends on: payment types with their method requirement flags, currencies,
// active exchange rates, bank accounts and ledger accounts.
package refdata

// PaymentMethod describes how a payment type settles and which fields it
// makes mandatory.
type PaymentMethod struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	RequiresChequeNumber bool   `json:"requires_cheque_number"`
	RequiresBankDetails  bool   `json:"requires_bank_details"`
}

// PaymentType is a selectable payment instrument.
type PaymentType struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Method PaymentMethod `json:"method"`
	Active bool          `json:"active"`
}

// Currency model.
type Currency struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// ExchangeRate converts FromCurrencyID units into ToCurrencyID units by
// multiplication.
type ExchangeRate struct {
	ID             int64   `json:"id"`
	FromCurrencyID int64   `json:"from_currency_id"`
	ToCurrencyID   int64   `json:"to_currency_id"`
	Rate           float64 `json:"rate"`
	Active         bool    `json:"active"`
}

// BankAccount model.
type BankAccount struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	CurrencyID    int64  `json:"currency_id"`
}

// LedgerAccount is a receivable or payable account a payment can post to.
type LedgerAccount struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Kind string `json:"kind"` // RECEIVABLE or PAYABLE
}
