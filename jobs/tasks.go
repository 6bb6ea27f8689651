package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRatesRefresh drops the reference-data cache so exchange rates
	// are re-read on the next snapshot.
	TaskRatesRefresh = "refdata:rates:refresh"
	// TaskPaymentRecorded notifies downstream consumers about a recorded
	// payment.
	TaskPaymentRecorded = "payments:recorded"
)

// PaymentRecordedPayload describes a recorded payment for notification.
type PaymentRecordedPayload struct {
	PaymentID     int64     `json:"payment_id"`
	Number        string    `json:"number"`
	InvoiceID     int64     `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Amount        float64   `json:"amount"`
	BalanceOffset bool      `json:"balance_offset"`
	PaidAt        time.Time `json:"paid_at"`
}

// NewPaymentRecordedTask constructs an Asynq task.
func NewPaymentRecordedTask(payload PaymentRecordedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentRecorded, data), nil
}

// NewRatesRefreshTask constructs an Asynq task.
func NewRatesRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskRatesRefresh, nil)
}

// RefdataInvalidator abstracts the reference-data cache invalidation hook.
type RefdataInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RatesRefreshJob invalidates the reference-data cache on schedule.
type RatesRefreshJob struct {
	refdata RefdataInvalidator
	logger  *slog.Logger
}

// NewRatesRefreshJob constructs the job.
func NewRatesRefreshJob(refdata RefdataInvalidator, logger *slog.Logger) *RatesRefreshJob {
	return &RatesRefreshJob{refdata: refdata, logger: logger}
}

// Handle processes TaskRatesRefresh tasks.
func (j *RatesRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if err := j.refdata.Invalidate(ctx); err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.Info("reference data cache invalidated")
	}
	return nil
}

// PaymentNotifyJob fans out payment-recorded notifications.
type PaymentNotifyJob struct {
	logger *slog.Logger
}

// NewPaymentNotifyJob constructs the job.
func NewPaymentNotifyJob(logger *slog.Logger) *PaymentNotifyJob {
	return &PaymentNotifyJob{logger: logger}
}

// Handle processes TaskPaymentRecorded tasks.
func (j *PaymentNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PaymentRecordedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: wire the notification channel (mail, webhook) in phase 2.
	if j.logger != nil {
		j.logger.Info("payment recorded",
			slog.String("number", payload.Number),
			slog.Int64("invoice_id", payload.InvoiceID),
			slog.Float64("amount", payload.Amount))
	}
	return nil
}
