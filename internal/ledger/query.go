// Package ledger derives fee-ledger views from snapshots of students and
// payments and builds the records that mutations write back.
//
// Every function here is pure: inputs are never modified and nothing is
// retained between calls. Callers load collections through the store
// package and pass them in.
package ledger

import (
	"sort"
	"time"

	"feeledger/internal/core"
)

// DefaultRecentPayments is the size of the dashboard's recent payments list.
const DefaultRecentPayments = 5

// Month option window used by the payment form.
const (
	DefaultMonthsBack    = 12
	DefaultMonthsForward = 3
)

// Snapshot is one consistent read of both collections.
type Snapshot struct {
	Students []core.Student
	Payments []core.Payment
}

// DashboardStats is the aggregate revenue summary shown on the dashboard.
type DashboardStats struct {
	TotalStudents       int
	ActiveStudents      int
	TotalRevenue        core.Money
	CurrentMonthRevenue core.Money
}

// MonthOption is one entry of the month picker.
type MonthOption struct {
	Key   core.MonthKey
	Label string
}

// MonthChoice is a month option annotated with its paid state for one student.
type MonthChoice struct {
	MonthOption
	Paid bool
}

// Ledger is the payment history and derived totals of one student.
type Ledger struct {
	Student        core.Student
	TotalPaid      core.Money
	PaidMonthCount int
	PaidMonths     []core.MonthKey
	History        []core.Payment
}

// StudentSummary is the per-student card of the payments index.
type StudentSummary struct {
	Student        core.Student
	TotalPaid      core.Money
	PaidMonthCount int
	LastPayment    *core.Payment
}

// PaymentView joins a payment with the display name of its student.
type PaymentView struct {
	Payment     core.Payment
	StudentName string
}

// ComputeDashboardStats totals students and revenue. The current month is
// the calendar year and month of now, and each payment date is read in
// now's location before comparing.
func ComputeDashboardStats(students []core.Student, payments []core.Payment, now time.Time) DashboardStats {
	stats := DashboardStats{TotalStudents: len(students)}
	for _, s := range students {
		if s.Active {
			stats.ActiveStudents++
		}
	}
	current := core.MonthOf(now)
	loc := now.Location()
	for _, p := range payments {
		stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
		if core.MonthOf(p.PaymentDate.In(loc)) == current {
			stats.CurrentMonthRevenue = stats.CurrentMonthRevenue.Add(p.Amount)
		}
	}
	return stats
}

// RecentPayments returns up to n payments ordered by payment date, newest
// first. Payments with equal dates keep their input order.
func RecentPayments(payments []core.Payment, n int) []core.Payment {
	if n <= 0 || len(payments) == 0 {
		return []core.Payment{}
	}
	sorted := make([]core.Payment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PaymentDate.After(sorted[j].PaymentDate)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// RecentPaymentViews is RecentPayments with student names resolved.
func RecentPaymentViews(students []core.Student, payments []core.Payment, n int) []PaymentView {
	recent := RecentPayments(payments, n)
	names := nameIndex(students)
	views := make([]PaymentView, 0, len(recent))
	for _, p := range recent {
		views = append(views, PaymentView{Payment: p, StudentName: lookupName(names, p.StudentID)})
	}
	return views
}

// PaidMonths returns the union of months covered by the student's payments,
// each key once, in ascending order.
func PaidMonths(payments []core.Payment, studentID string) []core.MonthKey {
	seen := make(map[core.MonthKey]struct{})
	out := []core.MonthKey{}
	for _, p := range payments {
		if p.StudentID != studentID {
			continue
		}
		for _, m := range p.Months {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sortMonths(out)
	return out
}

// IsMonthPaid reports whether any payment of the student covers month.
func IsMonthPaid(payments []core.Payment, studentID string, month core.MonthKey) bool {
	for _, p := range payments {
		if p.StudentID == studentID && p.ContainsMonth(month) {
			return true
		}
	}
	return false
}

// MonthOptions lists every calendar month from monthsBack months before now
// through monthsForward months after it, oldest first.
func MonthOptions(now time.Time, monthsBack, monthsForward int) []MonthOption {
	if monthsBack < 0 {
		monthsBack = 0
	}
	if monthsForward < 0 {
		monthsForward = 0
	}
	current := core.MonthOf(now)
	out := make([]MonthOption, 0, monthsBack+monthsForward+1)
	for i := -monthsBack; i <= monthsForward; i++ {
		k := current.AddMonths(i)
		out = append(out, MonthOption{Key: k, Label: k.Label()})
	}
	return out
}

// AnnotateMonths marks which options are already paid.
func AnnotateMonths(options []MonthOption, paid []core.MonthKey) []MonthChoice {
	set := monthSet(paid)
	out := make([]MonthChoice, 0, len(options))
	for _, o := range options {
		_, ok := set[o.Key]
		out = append(out, MonthChoice{MonthOption: o, Paid: ok})
	}
	return out
}

// AvailableMonths drops options that are already paid; only these are selectable.
func AvailableMonths(options []MonthOption, paid []core.MonthKey) []MonthOption {
	set := monthSet(paid)
	out := make([]MonthOption, 0, len(options))
	for _, o := range options {
		if _, ok := set[o.Key]; !ok {
			out = append(out, o)
		}
	}
	return out
}

// StudentTotalPaid sums the amounts of the student's payments.
func StudentTotalPaid(payments []core.Payment, studentID string) core.Money {
	var total core.Money
	for _, p := range payments {
		if p.StudentID == studentID {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// StudentPaidMonthCount counts distinct paid months of the student.
func StudentPaidMonthCount(payments []core.Payment, studentID string) int {
	return len(PaidMonths(payments, studentID))
}

// StudentPayments returns the student's payments by payment date, oldest first.
func StudentPayments(payments []core.Payment, studentID string) []core.Payment {
	out := []core.Payment{}
	for _, p := range payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaymentDate.Before(out[j].PaymentDate)
	})
	return out
}

// StudentLedger builds the ledger of s. The active flag is ignored, so the
// ledger of an inactive or deleted student is still complete.
func StudentLedger(s core.Student, payments []core.Payment) Ledger {
	paid := PaidMonths(payments, s.ID)
	return Ledger{
		Student:        s,
		TotalPaid:      StudentTotalPaid(payments, s.ID),
		PaidMonthCount: len(paid),
		PaidMonths:     paid,
		History:        StudentPayments(payments, s.ID),
	}
}

// StudentSummaries returns one card per student in input order.
func StudentSummaries(students []core.Student, payments []core.Payment) []StudentSummary {
	out := make([]StudentSummary, 0, len(students))
	for _, s := range students {
		l := StudentLedger(s, payments)
		sum := StudentSummary{Student: s, TotalPaid: l.TotalPaid, PaidMonthCount: l.PaidMonthCount}
		if n := len(l.History); n > 0 {
			last := l.History[n-1]
			sum.LastPayment = &last
		}
		out = append(out, sum)
	}
	return out
}

// FindStudent looks up a student by id.
func FindStudent(students []core.Student, id string) (core.Student, error) {
	for _, s := range students {
		if s.ID == id {
			return s, nil
		}
	}
	return core.Student{}, core.ErrStudentNotFound
}

// FindPayment looks up a payment by id.
func FindPayment(payments []core.Payment, id string) (core.Payment, error) {
	for _, p := range payments {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Payment{}, core.ErrPaymentNotFound
}

// StudentName returns the student's name, or UnknownStudentName when the
// reference dangles.
func StudentName(students []core.Student, id string) string {
	s, err := FindStudent(students, id)
	if err != nil {
		return core.UnknownStudentName
	}
	return s.Name
}

func nameIndex(students []core.Student) map[string]string {
	idx := make(map[string]string, len(students))
	for _, s := range students {
		idx[s.ID] = s.Name
	}
	return idx
}

func lookupName(idx map[string]string, id string) string {
	if name, ok := idx[id]; ok {
		return name
	}
	return core.UnknownStudentName
}

func monthSet(months []core.MonthKey) map[core.MonthKey]struct{} {
	set := make(map[core.MonthKey]struct{}, len(months))
	for _, m := range months {
		set[m] = struct{}{}
	}
	return set
}

func sortMonths(months []core.MonthKey) {
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
}
