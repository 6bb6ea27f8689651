package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/allocation"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// PGRepository provides PostgreSQL backed persistence for payments.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetInvoice loads an invoice header, its counterparty deposit balance and
// its line items with cumulative prior-payment amounts.
func (r *PGRepository) GetInvoice(ctx context.Context, id int64) (allocation.Invoice, error) {
	const header = `
		SELECT i.id, i.number, i.counterparty_id, i.currency, i.exchange_rate,
		       i.total, COALESCE(paid.amount, 0), i.issued_at, c.deposit_balance
		FROM invoices i
		JOIN counterparties c ON c.id = i.counterparty_id
		LEFT JOIN (
			SELECT invoice_id, SUM(amount) AS amount
			FROM payments GROUP BY invoice_id
		) paid ON paid.invoice_id = i.id
		WHERE i.id = $1`

	var inv allocation.Invoice
	err := r.pool.QueryRow(ctx, header, id).Scan(
		&inv.ID, &inv.Number, &inv.CounterpartyID, &inv.Currency, &inv.ExchangeRate,
		&inv.Total, &inv.PaidAmount, &inv.IssuedAt, &inv.DepositBalance,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return allocation.Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return allocation.Invoice{}, err
	}

	const lines = `
		SELECT li.id, li.total, COALESCE(SUM(pl.amount), 0)
		FROM invoice_lines li
		LEFT JOIN payment_lines pl ON pl.line_item_id = li.id
		WHERE li.invoice_id = $1
		GROUP BY li.id, li.total, li.position
		ORDER BY li.position`

	rows, err := r.pool.Query(ctx, lines, id)
	if err != nil {
		return allocation.Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var li allocation.LineItem
		if err := rows.Scan(&li.ID, &li.Total, &li.PaidAmount); err != nil {
			return allocation.Invoice{}, err
		}
		inv.Lines = append(inv.Lines, li)
	}
	return inv, rows.Err()
}

// GetPayment loads a payment by id.
func (r *PGRepository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	const query = `
		SELECT id, number, idempotency_key, invoice_id, counterparty_id, amount,
		       method, payment_type_id, cheque_number, bank_reference,
		       balance_offset, offset_amount, currency_id, exchange_rate,
		       exchange_rate_id, description, paid_at, account_id, created_by, created_at
		FROM payments WHERE id = $1`
	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return payment, err
}

// ListPaymentsByInvoice returns payments recorded against an invoice, newest
// first.
func (r *PGRepository) ListPaymentsByInvoice(ctx context.Context, invoiceID int64) ([]Payment, error) {
	const query = `
		SELECT id, number, idempotency_key, invoice_id, counterparty_id, amount,
		       method, payment_type_id, cheque_number, bank_reference,
		       balance_offset, offset_amount, currency_id, exchange_rate,
		       exchange_rate_id, description, paid_at, account_id, created_by, created_at
		FROM payments WHERE invoice_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var paymentTypeID, exchangeRateID pgtype.Int8
	err := row.Scan(
		&p.ID, &p.Number, &p.IdempotencyKey, &p.InvoiceID, &p.CounterpartyID, &p.Amount,
		&p.Method, &paymentTypeID, &p.ChequeNumber, &p.BankReference,
		&p.BalanceOffset, &p.OffsetAmount, &p.CurrencyID, &p.ExchangeRate,
		&exchangeRateID, &p.Description, &p.PaidAt, &p.AccountID, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		return Payment{}, err
	}
	if paymentTypeID.Valid {
		p.PaymentTypeID = &paymentTypeID.Int64
	}
	if exchangeRateID.Valid {
		p.ExchangeRateID = &exchangeRateID.Int64
	}
	return p, nil
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GeneratePaymentNumber reserves the next payment number.
func (t *txRepo) GeneratePaymentNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('payment_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%s-%05d", time.Now().Format("20060102"), seq), nil
}

// CreatePayment inserts the payment header.
func (t *txRepo) CreatePayment(ctx context.Context, payment Payment) (int64, error) {
	const query = `
		INSERT INTO payments (
			number, idempotency_key, invoice_id, counterparty_id, amount,
			method, payment_type_id, cheque_number, bank_reference,
			balance_offset, offset_amount, currency_id, exchange_rate,
			exchange_rate_id, description, paid_at, account_id, created_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW())
		RETURNING id`

	var paymentTypeID, exchangeRateID pgtype.Int8
	if payment.PaymentTypeID != nil {
		paymentTypeID = pgtype.Int8{Int64: *payment.PaymentTypeID, Valid: true}
	}
	if payment.ExchangeRateID != nil {
		exchangeRateID = pgtype.Int8{Int64: *payment.ExchangeRateID, Valid: true}
	}

	var id int64
	err := t.tx.QueryRow(ctx, query,
		payment.Number, payment.IdempotencyKey, payment.InvoiceID, payment.CounterpartyID, payment.Amount,
		payment.Method, paymentTypeID, payment.ChequeNumber, payment.BankReference,
		payment.BalanceOffset, payment.OffsetAmount, payment.CurrencyID, payment.ExchangeRate,
		exchangeRateID, payment.Description, payment.PaidAt, payment.AccountID, payment.CreatedBy,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicatePayment
		}
		return 0, err
	}
	return id, nil
}

// CreatePaymentLine inserts one allocation line.
func (t *txRepo) CreatePaymentLine(ctx context.Context, line PaymentLine) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO payment_lines (payment_id, line_item_id, amount, created_at) VALUES ($1, $2, $3, NOW())`,
		line.PaymentID, line.LineItemID, line.Amount)
	return err
}

// MarkInvoicePaid flips the invoice status once its balance reaches zero.
func (t *txRepo) MarkInvoicePaid(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE invoices SET status = 'PAID', updated_at = NOW() WHERE id = $1`, invoiceID)
	return err
}

// DrawDownDeposit reduces the counterparty's offsettable balance. The guard
// keeps a concurrent draw from pushing the balance negative.
func (t *txRepo) DrawDownDeposit(ctx context.Context, counterpartyID int64, amount float64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE counterparties SET deposit_balance = deposit_balance - $2, updated_at = NOW()
		 WHERE id = $1 AND deposit_balance >= $2`, counterpartyID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payments: deposit balance changed for counterparty %d", counterpartyID)
	}
	return nil
}
