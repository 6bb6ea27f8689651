package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/allocation"
	"github.com/meridian-erp/meridian-erp/internal/refdata"
	"github.com/meridian-erp/meridian-erp/jobs"
)

var (
	ErrInvoiceNotFound  = errors.New("payments: invoice not found")
	ErrPaymentNotFound  = errors.New("payments: payment not found")
	ErrDuplicatePayment = errors.New("payments: duplicate payment number")
)

// Repository abstracts invoice and payment persistence.
type Repository interface {
	GetInvoice(ctx context.Context, id int64) (allocation.Invoice, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	ListPaymentsByInvoice(ctx context.Context, invoiceID int64) ([]Payment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional writes of one payment submission.
type TxRepository interface {
	GeneratePaymentNumber(ctx context.Context) (string, error)
	CreatePayment(ctx context.Context, payment Payment) (int64, error)
	CreatePaymentLine(ctx context.Context, line PaymentLine) error
	MarkInvoicePaid(ctx context.Context, invoiceID int64) error
	DrawDownDeposit(ctx context.Context, counterpartyID int64, amount float64) error
}

// Enqueuer submits background notification tasks.
type Enqueuer interface {
	EnqueuePaymentRecorded(ctx context.Context, payload jobs.PaymentRecordedPayload) error
}

// Service drives the payment entry flow.
type Service struct {
	repo    Repository
	refdata *refdata.Service
	queue   Enqueuer
	logger  *slog.Logger
}

// NewService constructs a Service instance. The queue is optional.
func NewService(repo Repository, refdataSvc *refdata.Service, queue Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, refdata: refdataSvc, queue: queue, logger: logger}
}

// GetInvoice loads an invoice with its line items and prior-payment totals.
func (s *Service) GetInvoice(ctx context.Context, id int64) (allocation.Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListPaymentsByInvoice returns the payments recorded against an invoice.
func (s *Service) ListPaymentsByInvoice(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return s.repo.ListPaymentsByInvoice(ctx, invoiceID)
}

// ResolveDetails turns the raw form fields into allocator details by matching
// ids within the loaded reference collections. Unknown references resolve to
// zero values so the allocator reports them as missing rather than the
// service guessing.
func (s *Service) ResolveDetails(ctx context.Context, inv allocation.Invoice, input DetailsInput) (allocation.Details, error) {
	snap, err := s.refdata.Snapshot(ctx)
	if err != nil {
		return allocation.Details{}, fmt.Errorf("payments: load reference data: %w", err)
	}
	return resolveDetails(snap, inv, input), nil
}

func resolveDetails(snap refdata.Snapshot, inv allocation.Invoice, input DetailsInput) allocation.Details {
	d := allocation.Details{
		Description:     input.Description,
		TransactionDate: input.TransactionDate,
		AccountID:       input.AccountID,
	}

	if input.BalanceOffset {
		// Balance-offset entries are fixed to the invoice currency and
		// rate; those fields are not user-editable in this mode.
		d.Method.Kind = allocation.MethodBalanceOffset
		if c, ok := snap.CurrencyByCode(inv.Currency); ok {
			d.Currency.CurrencyID = c.ID
		}
		d.Currency.Rate = inv.ExchangeRate
		return d
	}

	d.Method.Kind = allocation.MethodDirect
	if pt, ok := snap.PaymentType(input.PaymentTypeID); ok {
		d.Method.PaymentTypeID = pt.ID
		d.Method.Descriptor = allocation.MethodDescriptor{
			RequiresChequeNumber: pt.Method.RequiresChequeNumber,
			RequiresBankDetails:  pt.Method.RequiresBankDetails,
		}
	}
	d.Method.ChequeNumber = input.ChequeNumber
	d.Method.BankReference = input.BankReference

	if c, ok := snap.Currency(input.CurrencyID); ok {
		d.Currency.CurrencyID = c.ID
		if def, err := snap.DefaultCurrency(); err == nil {
			if rate, ok := snap.RateFor(c.ID, def.ID); ok {
				d.Currency.Rate = rate.Rate
				d.Currency.ExchangeRateID = rate.ID
			}
		}
	}
	return d
}

// ValidateDetails runs the details-step rules for the wizard's first
// transition. The returned set is complete; it is never an error value.
func (s *Service) ValidateDetails(ctx context.Context, invoiceID int64, input DetailsInput) (allocation.ErrorSet, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	details, err := s.ResolveDetails(ctx, inv, input)
	if err != nil {
		return nil, err
	}
	return allocation.ValidateDetails(inv, details), nil
}

// RecordPayment runs the full two-step flow and persists the result. When
// validation fails the returned error is an allocation.ErrorSet.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (Payment, error) {
	inv, err := s.repo.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return Payment{}, err
	}

	details, err := s.ResolveDetails(ctx, inv, input.Details)
	if err != nil {
		return Payment{}, err
	}

	wizard := allocation.NewWizard(inv)
	if errs := wizard.Advance(details); !errs.Empty() {
		return Payment{}, errs
	}
	for itemID, amount := range input.Amounts {
		wizard.SetItemAmount(itemID, amount)
	}
	payload, err := wizard.Submit()
	if err != nil {
		return Payment{}, err
	}

	payment := paymentFromPayload(inv, payload, input.CreatedBy)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.GeneratePaymentNumber(ctx)
		if err != nil {
			return err
		}
		payment.Number = number

		id, err := tx.CreatePayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id

		for _, item := range payload.Items {
			if err := tx.CreatePaymentLine(ctx, PaymentLine{
				PaymentID:  id,
				LineItemID: item.LineItemID,
				Amount:     item.Amount,
			}); err != nil {
				return err
			}
		}

		if payload.BalanceOffset {
			if err := tx.DrawDownDeposit(ctx, inv.CounterpartyID, payload.OffsetAmount); err != nil {
				return err
			}
		}

		if payload.Total >= inv.Balance()-allocation.BalanceTolerance {
			if err := tx.MarkInvoicePaid(ctx, inv.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	s.notifyRecorded(ctx, inv, payment)
	return payment, nil
}

// notifyRecorded enqueues the downstream notification. A queue failure never
// fails the already-committed payment.
func (s *Service) notifyRecorded(ctx context.Context, inv allocation.Invoice, payment Payment) {
	if s.queue == nil {
		return
	}
	err := s.queue.EnqueuePaymentRecorded(ctx, jobs.PaymentRecordedPayload{
		PaymentID:     payment.ID,
		Number:        payment.Number,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Amount:        payment.Amount,
		BalanceOffset: payment.BalanceOffset,
		PaidAt:        payment.PaidAt,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("enqueue payment notification",
			slog.Int64("payment_id", payment.ID),
			slog.Any("error", err))
	}
}

func paymentFromPayload(inv allocation.Invoice, payload allocation.SubmissionPayload, createdBy int64) Payment {
	payment := Payment{
		IdempotencyKey: uuid.NewString(),
		InvoiceID:      payload.InvoiceID,
		CounterpartyID: inv.CounterpartyID,
		Amount:         payload.Total,
		Method:         string(payload.Method),
		ChequeNumber:   payload.ChequeNumber,
		BankReference:  payload.BankReference,
		BalanceOffset:  payload.BalanceOffset,
		OffsetAmount:   payload.OffsetAmount,
		CurrencyID:     payload.CurrencyID,
		ExchangeRate:   payload.ExchangeRate,
		Description:    payload.Description,
		PaidAt:         payload.TransactionDate,
		AccountID:      payload.AccountID,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	}
	if payload.PaymentTypeID != 0 {
		id := payload.PaymentTypeID
		payment.PaymentTypeID = &id
	}
	if payload.ExchangeRateID != 0 {
		id := payload.ExchangeRateID
		payment.ExchangeRateID = &id
	}
	return payment
}
