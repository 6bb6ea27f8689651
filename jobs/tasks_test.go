package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type invalidatorSpy struct {
	calls int
	err   error
}

func (s *invalidatorSpy) Invalidate(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestRatesRefreshJobInvalidates(t *testing.T) {
	spy := &invalidatorSpy{}
	job := NewRatesRefreshJob(spy, nil)

	err := job.Handle(context.Background(), NewRatesRefreshTask())
	require.NoError(t, err)
	require.Equal(t, 1, spy.calls)
}

func TestRatesRefreshJobPropagatesError(t *testing.T) {
	spy := &invalidatorSpy{err: errors.New("redis down")}
	job := NewRatesRefreshJob(spy, nil)

	err := job.Handle(context.Background(), NewRatesRefreshTask())
	require.Error(t, err)
}

func TestPaymentNotifyJobHandlesPayload(t *testing.T) {
	task, err := NewPaymentRecordedTask(PaymentRecordedPayload{
		PaymentID:     4,
		Number:        "PAY-20240315-00004",
		InvoiceID:     1,
		InvoiceNumber: "INV-1001",
		Amount:        85,
		PaidAt:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	job := NewPaymentNotifyJob(nil)
	require.NoError(t, job.Handle(context.Background(), task))
}

func TestPaymentNotifyJobSkipsRetryOnCorruptPayload(t *testing.T) {
	job := NewPaymentNotifyJob(nil)
	task := asynq.NewTask(TaskPaymentRecorded, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
