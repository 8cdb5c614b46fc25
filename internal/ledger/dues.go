package ledger

import (
	"time"

	"feeledger/internal/core"
)

// OutstandingMonths lists the months from the student's joining month
// through now's month that no payment covers yet, oldest first. A student
// without a joined date owes only the current month.
func OutstandingMonths(s core.Student, payments []core.Payment, now time.Time) []core.MonthKey {
	current := core.MonthOf(now)
	start := current
	if !s.JoinedDate.IsZero() {
		start = core.MonthOf(s.JoinedDate.In(now.Location()))
	}
	out := []core.MonthKey{}
	if start > current {
		return out
	}
	paid := monthSet(PaidMonths(payments, s.ID))
	for k := start; k <= current; k = k.AddMonths(1) {
		if _, ok := paid[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// OutstandingAmount is what the outstanding months cost at the current fee.
func OutstandingAmount(s core.Student, payments []core.Payment, now time.Time) core.Money {
	return s.MonthlyFee.Times(len(OutstandingMonths(s, payments, now)))
}
