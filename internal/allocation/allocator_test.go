package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testInvoice() Invoice {
	return Invoice{
		ID:             1,
		Number:         "INV-1001",
		CounterpartyID: 7,
		Currency:       "USD",
		ExchangeRate:   1,
		Total:          150,
		PaidAmount:     0,
		IssuedAt:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []LineItem{
			{ID: 1, Total: 100},
			{ID: 2, Total: 50},
			{ID: 3, Total: 40, PaidAmount: 40},
		},
	}
}

func validDetails() Details {
	return Details{
		Method: Method{
			Kind:          MethodDirect,
			PaymentTypeID: 11,
		},
		Currency: CurrencyContext{
			CurrencyID: 1,
			Rate:       1,
		},
		TransactionDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		AccountID:       900,
	}
}

func TestComputeAllocationTotalClampsBeforeSumming(t *testing.T) {
	inv := testInvoice()
	alloc := Allocation{1: 120, 2: 50, 3: 10}

	total := ComputeAllocationTotal(inv.Lines, alloc)
	require.InDelta(t, 150.0, total, 0.0001)
}

func TestComputeAllocationTotalClampingIdempotent(t *testing.T) {
	inv := testInvoice()
	proposed := Allocation{1: 250, 2: -30, 3: 5}

	clamped := make(Allocation, len(proposed))
	for _, li := range inv.Lines {
		clamped[li.ID] = clamp(proposed[li.ID], 0, li.RemainingBalance())
	}

	require.InDelta(t,
		ComputeAllocationTotal(inv.Lines, proposed),
		ComputeAllocationTotal(inv.Lines, clamped),
		0.0001)
}

func TestComputeAllocationTotalNeverNegative(t *testing.T) {
	inv := testInvoice()
	total := ComputeAllocationTotal(inv.Lines, Allocation{1: -500, 2: -1})
	require.Equal(t, 0.0, total)
}

func TestValidateItemRules(t *testing.T) {
	inv := testInvoice()
	d := validDetails()

	errs := Validate(inv, Allocation{1: -10, 2: 80}, d)
	require.True(t, errs.Has(CodeNegativeItemPayment))
	require.True(t, errs.Has(CodeItemPaymentExceedsRemaining))

	// Both failures surface in a single pass.
	require.Len(t, errs.ForItem(1), 1)
	exceeds := errs.ForItem(2)
	require.Len(t, exceeds, 1)
	require.InDelta(t, 50.0, exceeds[0].Limit, 0.0001)
	require.InDelta(t, 80.0, exceeds[0].Actual, 0.0001)
}

func TestValidateZeroPaymentAmount(t *testing.T) {
	inv := testInvoice()
	errs := Validate(inv, Allocation{}, validDetails())
	require.True(t, errs.Has(CodeZeroPaymentAmount))

	// Amounts against a fully paid line clamp to zero and still block.
	errs = Validate(inv, Allocation{3: 25}, validDetails())
	require.True(t, errs.Has(CodeZeroPaymentAmount))
}

func TestValidateInvoiceBalanceTolerance(t *testing.T) {
	inv := testInvoice()
	inv.Total = 200
	inv.Lines = []LineItem{{ID: 1, Total: 200.02}}
	d := validDetails()

	errs := Validate(inv, Allocation{1: 200.009}, d)
	require.False(t, errs.Has(CodePaymentExceedsInvoiceBalance))

	errs = Validate(inv, Allocation{1: 200.02}, d)
	require.True(t, errs.Has(CodePaymentExceedsInvoiceBalance))
}

func TestValidateDirectPaymentRequirements(t *testing.T) {
	inv := testInvoice()
	d := validDetails()
	d.Method.PaymentTypeID = 0

	errs := ValidateDetails(inv, d)
	require.True(t, errs.Has(CodePaymentTypeRequired))
}

func TestValidateMethodConditionalFields(t *testing.T) {
	inv := testInvoice()

	d := validDetails()
	d.Method.Descriptor = MethodDescriptor{RequiresChequeNumber: true, RequiresBankDetails: true}

	errs := ValidateDetails(inv, d)
	require.True(t, errs.Has(CodeChequeNumberRequired))
	require.True(t, errs.Has(CodeBankDetailsRequired))

	d.Method.ChequeNumber = "CHQ-889"
	d.Method.BankReference = "BCA-001"
	errs = ValidateDetails(inv, d)
	require.True(t, errs.Empty())

	// A method without the flags never raises them regardless of content.
	d = validDetails()
	d.Method.ChequeNumber = ""
	errs = ValidateDetails(inv, d)
	require.False(t, errs.Has(CodeChequeNumberRequired))
	require.False(t, errs.Has(CodeBankDetailsRequired))
}

func TestValidateBalanceOffsetConversion(t *testing.T) {
	inv := testInvoice()
	inv.ExchangeRate = 2.0
	inv.DepositBalance = 1000
	inv.Lines = []LineItem{{ID: 1, Total: 900}}

	d := Details{
		Method:          Method{Kind: MethodBalanceOffset},
		TransactionDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		AccountID:       900,
	}

	errs := Validate(inv, Allocation{1: 600}, d)
	require.True(t, errs.Has(CodeInsufficientBalance))
	var found Error
	for _, e := range errs {
		if e.Code == CodeInsufficientBalance {
			found = e
		}
	}
	require.InDelta(t, 1000.0, found.Limit, 0.0001)
	require.InDelta(t, 1200.0, found.Actual, 0.0001)

	errs = Validate(inv, Allocation{1: 400}, d)
	require.False(t, errs.Has(CodeInsufficientBalance))
}

func TestValidateBalanceOffsetRequiresDeposit(t *testing.T) {
	inv := testInvoice()
	inv.DepositBalance = 0

	d := Details{
		Method:          Method{Kind: MethodBalanceOffset},
		TransactionDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		AccountID:       900,
	}

	errs := Validate(inv, Allocation{1: 50}, d)
	require.True(t, errs.Has(CodeNoOffsettableBalance))
}

func TestValidateCurrencySkippedForBalanceOffset(t *testing.T) {
	inv := testInvoice()
	inv.DepositBalance = 500

	d := Details{
		Method:          Method{Kind: MethodBalanceOffset},
		TransactionDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		AccountID:       900,
	}

	errs := ValidateDetails(inv, d)
	require.False(t, errs.Has(CodeCurrencyRequired))
	require.False(t, errs.Has(CodeExchangeRateRequired))

	d.Method.Kind = MethodDirect
	d.Method.PaymentTypeID = 11
	errs = ValidateDetails(inv, d)
	require.True(t, errs.Has(CodeCurrencyRequired))
	require.True(t, errs.Has(CodeExchangeRateRequired))
}

func TestValidateTransactionDateDayGranularity(t *testing.T) {
	inv := testInvoice()
	cases := []struct {
		name    string
		date    time.Time
		blocked bool
	}{
		{"same day", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"same day late evening", time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), false},
		{"day before", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), true},
		{"day after", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), false},
		{"missing", time.Time{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDetails()
			d.TransactionDate = tc.date
			errs := ValidateDetails(inv, d)
			require.Equal(t, tc.blocked, errs.Has(CodeTransactionDateBeforeInvoiceDate))
			if tc.blocked {
				for _, e := range errs {
					if e.Code == CodeTransactionDateBeforeInvoiceDate {
						require.Equal(t, inv.IssuedAt, e.Date)
					}
				}
			}
		})
	}
}

func TestValidateAccountRequired(t *testing.T) {
	inv := testInvoice()
	d := validDetails()
	d.AccountID = 0

	errs := ValidateDetails(inv, d)
	require.True(t, errs.Has(CodeAccountRequired))
}

func TestValidateReportsAllFailuresAtOnce(t *testing.T) {
	inv := testInvoice()
	d := Details{Method: Method{Kind: MethodDirect}}

	errs := Validate(inv, Allocation{1: -5}, d)
	require.True(t, errs.Has(CodePaymentTypeRequired))
	require.True(t, errs.Has(CodeCurrencyRequired))
	require.True(t, errs.Has(CodeExchangeRateRequired))
	require.True(t, errs.Has(CodeTransactionDateBeforeInvoiceDate))
	require.True(t, errs.Has(CodeAccountRequired))
	require.True(t, errs.Has(CodeNegativeItemPayment))
	require.True(t, errs.Has(CodeZeroPaymentAmount))
}

func TestValidateIdempotent(t *testing.T) {
	inv := testInvoice()
	alloc := Allocation{1: 60, 2: 20}
	d := validDetails()

	first := Validate(inv, alloc, d)
	second := Validate(inv, alloc, d)
	require.Equal(t, first, second)
}
