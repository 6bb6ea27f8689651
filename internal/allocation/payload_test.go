package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildSubmissionPayloadDirect(t *testing.T) {
	inv := testInvoice()
	d := validDetails()
	d.Method.ChequeNumber = "CHQ-42"
	d.Currency.ExchangeRateID = 5
	d.Description = "partial settlement"
	alloc := Allocation{1: 60, 2: 120} // 120 clamps to 50

	payload := BuildSubmissionPayload(inv, alloc, d)

	require.Equal(t, inv.ID, payload.InvoiceID)
	require.InDelta(t, 110.0, payload.Total, 0.0001)
	require.Equal(t, MethodDirect, payload.Method)
	require.Equal(t, int64(11), payload.PaymentTypeID)
	require.Equal(t, "CHQ-42", payload.ChequeNumber)
	require.False(t, payload.BalanceOffset)
	require.Equal(t, 0.0, payload.OffsetAmount)
	require.Equal(t, int64(5), payload.ExchangeRateID)
	require.Equal(t, "partial settlement", payload.Description)

	// Items follow invoice line order with clamped amounts.
	require.Equal(t, []ItemPayment{
		{LineItemID: 1, Amount: 60},
		{LineItemID: 2, Amount: 50},
	}, payload.Items)
}

func TestBuildSubmissionPayloadBalanceOffset(t *testing.T) {
	inv := testInvoice()
	inv.ExchangeRate = 2.5
	inv.DepositBalance = 1000

	d := Details{
		Method:          Method{Kind: MethodBalanceOffset},
		TransactionDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		AccountID:       900,
	}
	alloc := Allocation{1: 100}

	payload := BuildSubmissionPayload(inv, alloc, d)
	require.True(t, payload.BalanceOffset)
	require.InDelta(t, 100.0, payload.Total, 0.0001)
	require.InDelta(t, 2.5, payload.ExchangeRate, 0.0001)
	require.InDelta(t, 250.0, payload.OffsetAmount, 0.0001)
}

func TestSubmissionPayloadRoundTrip(t *testing.T) {
	inv := testInvoice()
	inv.DepositBalance = 500
	d := validDetails()
	d.Method.Descriptor = MethodDescriptor{RequiresChequeNumber: true}
	d.Method.ChequeNumber = "CHQ-7"
	alloc := Allocation{1: 80, 2: 30}

	require.True(t, Validate(inv, alloc, d).Empty())
	payload := BuildSubmissionPayload(inv, alloc, d)

	// Rebuild the allocator inputs from the payload and re-validate: a
	// built payload must not lose or corrupt anything.
	rebuiltAlloc := make(Allocation, len(payload.Items))
	for _, item := range payload.Items {
		rebuiltAlloc[item.LineItemID] = item.Amount
	}
	rebuilt := Details{
		Method: Method{
			Kind:          payload.Method,
			PaymentTypeID: payload.PaymentTypeID,
			Descriptor:    d.Method.Descriptor,
			ChequeNumber:  payload.ChequeNumber,
			BankReference: payload.BankReference,
		},
		Currency: CurrencyContext{
			CurrencyID:     payload.CurrencyID,
			ExchangeRateID: payload.ExchangeRateID,
			Rate:           payload.ExchangeRate,
		},
		Description:     payload.Description,
		TransactionDate: payload.TransactionDate,
		AccountID:       payload.AccountID,
	}

	errs := Validate(inv, rebuiltAlloc, rebuilt)
	require.True(t, errs.Empty(), "round-tripped payload re-validation returned %v", errs)
	require.InDelta(t, payload.Total, ComputeAllocationTotal(inv.Lines, rebuiltAlloc), 0.0001)
}
