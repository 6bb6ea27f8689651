package refdata

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads for reference data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPaymentTypes returns active payment types joined with their methods.
func (r *Repository) ListPaymentTypes(ctx context.Context) ([]PaymentType, error) {
	rows, err := r.pool.Query(ctx, `SELECT pt.id, pt.name, pt.active, m.id, m.name, m.requires_cheque_number, m.requires_bank_details
FROM payment_types pt
JOIN payment_methods m ON m.id = pt.method_id
WHERE pt.active
ORDER BY pt.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []PaymentType
	for rows.Next() {
		var pt PaymentType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.Active, &pt.Method.ID, &pt.Method.Name, &pt.Method.RequiresChequeNumber, &pt.Method.RequiresBankDetails); err != nil {
			return nil, err
		}
		types = append(types, pt)
	}
	return types, rows.Err()
}

// ListCurrencies returns all currencies.
func (r *Repository) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, is_default FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var currencies []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.IsDefault); err != nil {
			return nil, err
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// ListActiveRates returns the active exchange rates between currency pairs.
func (r *Repository) ListActiveRates(ctx context.Context) ([]ExchangeRate, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, from_currency_id, to_currency_id, rate, active
FROM exchange_rates WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rates []ExchangeRate
	for rows.Next() {
		var er ExchangeRate
		if err := rows.Scan(&er.ID, &er.FromCurrencyID, &er.ToCurrencyID, &er.Rate, &er.Active); err != nil {
			return nil, err
		}
		rates = append(rates, er)
	}
	return rates, rows.Err()
}

// ListBankAccounts returns all bank accounts.
func (r *Repository) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, account_number, currency_id FROM bank_accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []BankAccount
	for rows.Next() {
		var ba BankAccount
		if err := rows.Scan(&ba.ID, &ba.Name, &ba.AccountNumber, &ba.CurrencyID); err != nil {
			return nil, err
		}
		accounts = append(accounts, ba)
	}
	return accounts, rows.Err()
}

// ListLedgerAccounts returns receivable and payable posting accounts.
func (r *Repository) ListLedgerAccounts(ctx context.Context) ([]LedgerAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, kind FROM ledger_accounts
WHERE kind IN ('RECEIVABLE','PAYABLE') ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []LedgerAccount
	for rows.Next() {
		var la LedgerAccount
		if err := rows.Scan(&la.ID, &la.Code, &la.Name, &la.Kind); err != nil {
			return nil, err
		}
		accounts = append(accounts, la)
	}
	return accounts, rows.Err()
}
