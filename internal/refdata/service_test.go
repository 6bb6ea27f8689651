package refdata

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	calls atomic.Int64
}

func (r *stubRepo) ListPaymentTypes(ctx context.Context) ([]PaymentType, error) {
	r.calls.Add(1)
	return []PaymentType{
		{ID: 1, Name: "Cash", Active: true, Method: PaymentMethod{ID: 1, Name: "CASH"}},
		{ID: 2, Name: "Cheque", Active: true, Method: PaymentMethod{ID: 2, Name: "CHEQUE", RequiresChequeNumber: true}},
	}, nil
}

func (r *stubRepo) ListCurrencies(ctx context.Context) ([]Currency, error) {
	r.calls.Add(1)
	return []Currency{
		{ID: 1, Code: "IDR", Name: "Rupiah", IsDefault: true},
		{ID: 2, Code: "USD", Name: "US Dollar"},
	}, nil
}

func (r *stubRepo) ListActiveRates(ctx context.Context) ([]ExchangeRate, error) {
	r.calls.Add(1)
	return []ExchangeRate{
		{ID: 9, FromCurrencyID: 2, ToCurrencyID: 1, Rate: 15000, Active: true},
	}, nil
}

func (r *stubRepo) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	r.calls.Add(1)
	return []BankAccount{{ID: 4, Name: "Operating", AccountNumber: "001", CurrencyID: 1}}, nil
}

func (r *stubRepo) ListLedgerAccounts(ctx context.Context) ([]LedgerAccount, error) {
	r.calls.Add(1)
	return []LedgerAccount{{ID: 900, Code: "1200", Name: "Accounts Receivable", Kind: "RECEIVABLE"}}, nil
}

func newTestService(t *testing.T) (*Service, *stubRepo, func()) {
	t.Helper()
	repo := &stubRepo{}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(repo, NewCache(client, time.Minute))
	return svc, repo, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestSnapshotLoadsAllCollections(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.PaymentTypes, 2)
	require.Len(t, snap.Currencies, 2)
	require.Len(t, snap.Rates, 1)
	require.Len(t, snap.BankAccounts, 1)
	require.Len(t, snap.LedgerAccounts, 1)
}

func TestSnapshotCachesUntilInvalidated(t *testing.T) {
	svc, repo, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	first := repo.calls.Load()
	require.Equal(t, int64(5), first)

	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, first, repo.calls.Load())

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, first+5, repo.calls.Load())
}

func TestSnapshotLookups(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	pt, ok := snap.PaymentType(2)
	require.True(t, ok)
	require.True(t, pt.Method.RequiresChequeNumber)

	_, ok = snap.PaymentType(99)
	require.False(t, ok)

	def, err := snap.DefaultCurrency()
	require.NoError(t, err)
	require.Equal(t, "IDR", def.Code)

	rate, ok := snap.RateFor(2, 1)
	require.True(t, ok)
	require.InDelta(t, 15000.0, rate.Rate, 0.0001)
	require.Equal(t, int64(9), rate.ID)

	same, ok := snap.RateFor(1, 1)
	require.True(t, ok)
	require.InDelta(t, 1.0, same.Rate, 0.0001)
	require.Zero(t, same.ID)

	_, ok = snap.RateFor(1, 2)
	require.False(t, ok)
}
