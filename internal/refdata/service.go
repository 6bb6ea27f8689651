package refdata

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ErrNoDefaultCurrency indicates the currency table carries no default row.
var ErrNoDefaultCurrency = errors.New("refdata: no default currency configured")

// ReadRepository abstracts the reference-data reads used by the service.
type ReadRepository interface {
	ListPaymentTypes(ctx context.Context) ([]PaymentType, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
	ListActiveRates(ctx context.Context) ([]ExchangeRate, error)
	ListBankAccounts(ctx context.Context) ([]BankAccount, error)
	ListLedgerAccounts(ctx context.Context) ([]LedgerAccount, error)
}

// Service loads reference collections through the cache.
type Service struct {
	repo  ReadRepository
	cache *Cache
}

// NewService constructs a Service instance.
func NewService(repo ReadRepository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Snapshot is one coherent load of every reference collection the payment
// entry flow consumes. Lookups match ids within the already-loaded
// collections; the snapshot never reaches back to storage.
type Snapshot struct {
	PaymentTypes   []PaymentType   `json:"payment_types"`
	Currencies     []Currency      `json:"currencies"`
	Rates          []ExchangeRate  `json:"rates"`
	BankAccounts   []BankAccount   `json:"bank_accounts"`
	LedgerAccounts []LedgerAccount `json:"ledger_accounts"`
}

// Snapshot loads the collections concurrently, each one read-through cached.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.fetch(gctx, "payment_types", &snap.PaymentTypes, func(ctx context.Context) (interface{}, error) {
			return s.repo.ListPaymentTypes(ctx)
		})
	})
	g.Go(func() error {
		return s.fetch(gctx, "currencies", &snap.Currencies, func(ctx context.Context) (interface{}, error) {
			return s.repo.ListCurrencies(ctx)
		})
	})
	g.Go(func() error {
		return s.fetch(gctx, "rates", &snap.Rates, func(ctx context.Context) (interface{}, error) {
			return s.repo.ListActiveRates(ctx)
		})
	})
	g.Go(func() error {
		return s.fetch(gctx, "bank_accounts", &snap.BankAccounts, func(ctx context.Context) (interface{}, error) {
			return s.repo.ListBankAccounts(ctx)
		})
	})
	g.Go(func() error {
		return s.fetch(gctx, "ledger_accounts", &snap.LedgerAccounts, func(ctx context.Context) (interface{}, error) {
			return s.repo.ListLedgerAccounts(ctx)
		})
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) fetch(ctx context.Context, name string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, "refdata", name)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// Invalidate drops every cached collection.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// PaymentType finds a payment type by id.
func (s Snapshot) PaymentType(id int64) (PaymentType, bool) {
	for _, pt := range s.PaymentTypes {
		if pt.ID == id {
			return pt, true
		}
	}
	return PaymentType{}, false
}

// Currency finds a currency by id.
func (s Snapshot) Currency(id int64) (Currency, bool) {
	for _, c := range s.Currencies {
		if c.ID == id {
			return c, true
		}
	}
	return Currency{}, false
}

// CurrencyByCode finds a currency by its ISO code.
func (s Snapshot) CurrencyByCode(code string) (Currency, bool) {
	for _, c := range s.Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// DefaultCurrency returns the system currency.
func (s Snapshot) DefaultCurrency() (Currency, error) {
	for _, c := range s.Currencies {
		if c.IsDefault {
			return c, nil
		}
	}
	return Currency{}, ErrNoDefaultCurrency
}

// RateFor resolves the active rate converting from one currency to another.
// A same-currency pair is always 1:1 with no rate reference.
func (s Snapshot) RateFor(fromID, toID int64) (ExchangeRate, bool) {
	if fromID == toID {
		return ExchangeRate{FromCurrencyID: fromID, ToCurrencyID: toID, Rate: 1}, true
	}
	for _, r := range s.Rates {
		if r.Active && r.FromCurrencyID == fromID && r.ToCurrencyID == toID {
			return r, true
		}
	}
	return ExchangeRate{}, false
}

// LedgerAccount finds a posting account by id.
func (s Snapshot) LedgerAccount(id int64) (LedgerAccount, bool) {
	for _, a := range s.LedgerAccounts {
		if a.ID == id {
			return a, true
		}
	}
	return LedgerAccount{}, false
}
