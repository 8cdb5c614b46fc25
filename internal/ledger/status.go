package ledger

import "feeledger/internal/core"

// ActiveStudents returns the students eligible for new payments, in input order.
func ActiveStudents(students []core.Student) []core.Student {
	out := []core.Student{}
	for _, s := range students {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// SetActive returns s with its active flag set.
func SetActive(s core.Student, active bool) core.Student {
	s.Active = active
	return s
}

// ToggleActive flips the active flag of s.
func ToggleActive(s core.Student) core.Student {
	return SetActive(s, !s.Active)
}

// CanRecordPayment reports whether the student may be selected in the
// record-payment workflow.
func CanRecordPayment(s *core.Student) bool {
	return s != nil && s.Active
}
