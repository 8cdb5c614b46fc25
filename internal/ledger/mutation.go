package ledger

import (
	"fmt"
	"strings"
	"time"

	"feeledger/internal/core"
)

// BuildPayment constructs the payment for the selected months of student.
// The amount is the student's current monthly fee times the number of
// distinct months. Overlap with months already paid is not checked here;
// callers offer only AvailableMonths.
func BuildPayment(student *core.Student, selectedMonths []core.MonthKey, paymentDate time.Time, remarks string) (core.NewPayment, error) {
	if len(selectedMonths) == 0 {
		return core.NewPayment{}, core.ErrEmptyMonthSelection
	}
	if !CanRecordPayment(student) {
		return core.NewPayment{}, core.ErrStudentInactiveOrMissing
	}
	months := make([]core.MonthKey, 0, len(selectedMonths))
	seen := make(map[core.MonthKey]struct{}, len(selectedMonths))
	for _, m := range selectedMonths {
		k, err := core.ParseMonthKey(string(m))
		if err != nil {
			return core.NewPayment{}, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		months = append(months, k)
	}
	sortMonths(months)
	amount, ok := student.MonthlyFee.CheckedTimes(len(months))
	if !ok {
		return core.NewPayment{}, fmt.Errorf("%w: %s times %d months overflows", core.ErrInvalidAmount, student.MonthlyFee, len(months))
	}
	p := core.NewPayment{
		StudentID:   student.ID,
		Amount:      amount,
		Months:      months,
		PaymentDate: paymentDate,
		Remarks:     strings.TrimSpace(remarks),
	}
	if err := p.Validate(); err != nil {
		return core.NewPayment{}, err
	}
	return p, nil
}

// ToggleMonthSelection adds month if absent and removes it if present. The
// result is a new slice sorted ascending.
func ToggleMonthSelection(selected []core.MonthKey, month core.MonthKey) []core.MonthKey {
	out := make([]core.MonthKey, 0, len(selected)+1)
	found := false
	for _, m := range selected {
		if m == month {
			found = true
			continue
		}
		out = append(out, m)
	}
	if !found {
		out = append(out, month)
	}
	sortMonths(out)
	return out
}

// SelectMonthsInRange returns the ids of payments whose payment date falls
// in a calendar month between start and end, both inclusive. Dates are read
// in loc, the same policy ComputeDashboardStats uses for the current month.
func SelectMonthsInRange(payments []core.Payment, start, end core.MonthKey, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	ids := []string{}
	if start > end {
		return ids
	}
	for _, p := range payments {
		m := core.MonthOf(p.PaymentDate.In(loc))
		if m >= start && m <= end {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// ResetCurrentMonth selects the payments made in now's calendar month.
func ResetCurrentMonth(payments []core.Payment, now time.Time) []string {
	current := core.MonthOf(now)
	return SelectMonthsInRange(payments, current, current, now.Location())
}

// ResetAll selects every payment.
func ResetAll(payments []core.Payment) []string {
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		ids = append(ids, p.ID)
	}
	return ids
}

// UpdateStudent applies patch to the student with the given id.
func UpdateStudent(students []core.Student, id string, patch core.StudentPatch) (core.Student, error) {
	s, err := FindStudent(students, id)
	if err != nil {
		return core.Student{}, err
	}
	return ApplyStudentPatch(s, patch)
}

// ApplyStudentPatch validates patch and merges it over s.
func ApplyStudentPatch(s core.Student, patch core.StudentPatch) (core.Student, error) {
	return patch.Apply(s)
}
