package allocation

import (
	"errors"
)

// Step identifies the active page of the payment entry flow.
type Step string

const (
	// StepDetails collects method, currency, dates and account.
	StepDetails Step = "DETAILS"
	// StepItems collects the per-line-item allocation and final totals.
	StepItems Step = "ITEMS"
)

// ErrNotReady is returned when submission is attempted outside the items step.
var ErrNotReady = errors.New("allocation: submission requires the items step")

// Wizard drives the strict two-step payment entry sequence. Advancing to the
// items step is gated on the details-only rules; going back is unconditional
// and keeps any amounts already entered.
type Wizard struct {
	invoice Invoice
	step    Step
	details Details
	alloc   Allocation
}

// NewWizard starts a payment entry flow for the given invoice.
func NewWizard(inv Invoice) *Wizard {
	return &Wizard{
		invoice: inv,
		step:    StepDetails,
		alloc:   make(Allocation),
	}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	return w.step
}

// Invoice returns the invoice the flow was started for.
func (w *Wizard) Invoice() Invoice {
	return w.invoice
}

// Details returns the most recently accepted details.
func (w *Wizard) Details() Details {
	return w.details
}

// Allocation returns a copy of the entered amounts.
func (w *Wizard) Allocation() Allocation {
	return w.alloc.Clone()
}

// Advance validates the details-only rules and, when they pass, moves the
// flow to the items step. On failure the flow stays on details and the full
// error set is returned.
func (w *Wizard) Advance(d Details) ErrorSet {
	if errs := ValidateDetails(w.invoice, d); !errs.Empty() {
		return errs
	}
	w.details = d
	w.step = StepItems
	return nil
}

// Back returns to the details step. Entered item amounts survive the round
// trip.
func (w *Wizard) Back() {
	w.step = StepDetails
}

// SetItemAmount records a proposed amount for one line item. The amount is
// clamped into [0, remaining balance] at the point of entry so displayed
// totals always reflect clamped values. Unknown item ids are ignored.
func (w *Wizard) SetItemAmount(itemID int64, amount float64) {
	for _, li := range w.invoice.Lines {
		if li.ID == itemID {
			w.alloc[itemID] = clamp(amount, 0, li.RemainingBalance())
			return
		}
	}
}

// Total returns the running payment total for the entered amounts.
func (w *Wizard) Total() float64 {
	return ComputeAllocationTotal(w.invoice.Lines, w.alloc)
}

// SystemTotal returns the running total converted to the system currency.
func (w *Wizard) SystemTotal() float64 {
	return SystemCurrencyTotal(w.Total(), effectiveRate(w.invoice, w.details))
}

// Errors recomputes the full error set for the current state. Stale errors
// are never patched incrementally; every call re-derives the set from
// scratch.
func (w *Wizard) Errors() ErrorSet {
	return Validate(w.invoice, w.alloc, w.details)
}

// Submit gates on the complete rule set and builds the submission payload.
// The returned error is either ErrNotReady or an ErrorSet.
func (w *Wizard) Submit() (SubmissionPayload, error) {
	if w.step != StepItems {
		return SubmissionPayload{}, ErrNotReady
	}
	if errs := Validate(w.invoice, w.alloc, w.details); !errs.Empty() {
		return SubmissionPayload{}, errs
	}
	return BuildSubmissionPayload(w.invoice, w.alloc, w.details), nil
}
