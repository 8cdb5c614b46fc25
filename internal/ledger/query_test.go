package ledger

import (
	"reflect"
	"testing"
	"time"

	"feeledger/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func rupees(r int64) core.Money {
	return core.Money{Cents: r * 100}
}

func TestDashboardStatsEmpty(t *testing.T) {
	got := ComputeDashboardStats(nil, nil, day(2024, 6, 1))
	if got != (DashboardStats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

func TestDashboardStatsTotals(t *testing.T) {
	students := []core.Student{
		{ID: "a", Active: true},
		{ID: "b", Active: false},
		{ID: "c", Active: true},
	}
	payments := []core.Payment{
		{ID: "1", StudentID: "a", Amount: rupees(500), PaymentDate: day(2024, 6, 3)},
		{ID: "2", StudentID: "b", Amount: rupees(300), PaymentDate: day(2024, 5, 30)},
		{ID: "3", StudentID: "c", PaymentDate: day(2024, 6, 20)}, // amount absent
		{ID: "4", StudentID: "a", Amount: rupees(250), PaymentDate: day(2023, 6, 10)},
	}
	got := ComputeDashboardStats(students, payments, day(2024, 6, 15))

	var manual core.Money
	for _, p := range payments {
		manual = manual.Add(p.Amount)
	}
	want := DashboardStats{
		TotalStudents:       3,
		ActiveStudents:      2,
		TotalRevenue:        manual,
		CurrentMonthRevenue: rupees(500),
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDashboardStatsYearBoundary(t *testing.T) {
	payments := []core.Payment{
		{ID: "dec", Amount: rupees(100), PaymentDate: time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)},
		{ID: "jan", Amount: rupees(200), PaymentDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "jan-last-year", Amount: rupees(400), PaymentDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	jan := ComputeDashboardStats(nil, payments, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	if jan.CurrentMonthRevenue != rupees(200) {
		t.Fatalf("Jan 1: got %v", jan.CurrentMonthRevenue)
	}
	dec := ComputeDashboardStats(nil, payments, time.Date(2023, 12, 31, 8, 0, 0, 0, time.UTC))
	if dec.CurrentMonthRevenue != rupees(100) {
		t.Fatalf("Dec 31: got %v", dec.CurrentMonthRevenue)
	}
}

func TestDashboardStatsUsesCallerLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// Recorded at 20:00 UTC on Dec 31, which is Jan 1 in IST.
	payments := []core.Payment{
		{ID: "p", Amount: rupees(100), PaymentDate: time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC)},
	}
	inIST := ComputeDashboardStats(nil, payments, time.Date(2024, 1, 10, 0, 0, 0, 0, ist))
	if inIST.CurrentMonthRevenue != rupees(100) {
		t.Fatalf("IST caller should count the payment in January, got %v", inIST.CurrentMonthRevenue)
	}
	inUTC := ComputeDashboardStats(nil, payments, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if inUTC.CurrentMonthRevenue != (core.Money{}) {
		t.Fatalf("UTC caller should not count the payment in January, got %v", inUTC.CurrentMonthRevenue)
	}
}

func TestRecentPayments(t *testing.T) {
	if got := RecentPayments(nil, 5); len(got) != 0 || got == nil {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}

	payments := []core.Payment{
		{ID: "old", PaymentDate: day(2024, 1, 1)},
		{ID: "tie-1", PaymentDate: day(2024, 3, 1)},
		{ID: "new", PaymentDate: day(2024, 4, 1)},
		{ID: "tie-2", PaymentDate: day(2024, 3, 1)},
		{ID: "mid", PaymentDate: day(2024, 2, 1)},
		{ID: "oldest", PaymentDate: day(2023, 1, 1)},
	}
	original := append([]core.Payment(nil), payments...)

	got := RecentPayments(payments, DefaultRecentPayments)
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	want := []string{"new", "tie-1", "tie-2", "mid", "old"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	if !reflect.DeepEqual(payments, original) {
		t.Fatalf("input was mutated")
	}
	if got := RecentPayments(payments, 2); len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got := RecentPayments(payments, 50); len(got) != len(payments) {
		t.Fatalf("expected all items, got %d", len(got))
	}
}

func TestRecentPaymentViewsFallbackName(t *testing.T) {
	students := []core.Student{{ID: "a", Name: "Asha"}}
	payments := []core.Payment{
		{ID: "1", StudentID: "a", PaymentDate: day(2024, 1, 2)},
		{ID: "2", StudentID: "gone", PaymentDate: day(2024, 1, 3)},
	}
	views := RecentPaymentViews(students, payments, 5)
	if len(views) != 2 || views[0].StudentName != core.UnknownStudentName || views[1].StudentName != "Asha" {
		t.Fatalf("unexpected views %+v", views)
	}
}

func TestPaidMonths(t *testing.T) {
	payments := []core.Payment{
		{ID: "1", StudentID: "a", Months: []core.MonthKey{"2024-02", "2024-01"}},
		{ID: "2", StudentID: "b", Months: []core.MonthKey{"2024-03"}},
	}
	if got := PaidMonths(payments, "nobody"); len(got) != 0 || got == nil {
		t.Fatalf("expected empty set, got %#v", got)
	}
	want := []core.MonthKey{"2024-01", "2024-02"}
	if got := PaidMonths(payments, "a"); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// A later payment for different months leaves earlier months listed once.
	payments = append(payments, core.Payment{ID: "3", StudentID: "a", Months: []core.MonthKey{"2024-03"}})
	want = []core.MonthKey{"2024-01", "2024-02", "2024-03"}
	if got := PaidMonths(payments, "a"); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if !IsMonthPaid(payments, "a", "2024-03") || IsMonthPaid(payments, "b", "2024-01") {
		t.Fatalf("IsMonthPaid mismatch")
	}
}

func TestPaidMonthsReportsNewPaymentImmediately(t *testing.T) {
	var payments []core.Payment
	if IsMonthPaid(payments, "a", "2024-05") {
		t.Fatalf("nothing paid yet")
	}
	payments = append(payments, core.Payment{ID: "x", StudentID: "a", Months: []core.MonthKey{"2024-05"}})
	if !IsMonthPaid(payments, "a", "2024-05") {
		t.Fatalf("month must be paid as soon as a payment contains it")
	}
}

func TestMonthOptions(t *testing.T) {
	opts := MonthOptions(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 12, 3)
	if len(opts) != 16 {
		t.Fatalf("expected 16 options, got %d", len(opts))
	}
	if opts[0].Key != "2023-06" || opts[len(opts)-1].Key != "2024-09" {
		t.Fatalf("unexpected bounds %s..%s", opts[0].Key, opts[len(opts)-1].Key)
	}
	for i := 1; i < len(opts); i++ {
		if opts[i-1].Key >= opts[i].Key {
			t.Fatalf("options not ascending at %d: %s >= %s", i, opts[i-1].Key, opts[i].Key)
		}
	}
	if opts[0].Label != "June 2023" {
		t.Fatalf("unexpected label %q", opts[0].Label)
	}

	// Window crossing a year start.
	opts = MonthOptions(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1, 1)
	keys := []core.MonthKey{opts[0].Key, opts[1].Key, opts[2].Key}
	if !reflect.DeepEqual(keys, []core.MonthKey{"2023-12", "2024-01", "2024-02"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestAvailableAndAnnotatedMonths(t *testing.T) {
	opts := MonthOptions(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 2, 0)
	paid := []core.MonthKey{"2024-02"}
	avail := AvailableMonths(opts, paid)
	if len(avail) != 2 || avail[0].Key != "2024-01" || avail[1].Key != "2024-03" {
		t.Fatalf("unexpected available %v", avail)
	}
	choices := AnnotateMonths(opts, paid)
	if len(choices) != 3 || choices[0].Paid || !choices[1].Paid || choices[2].Paid {
		t.Fatalf("unexpected choices %+v", choices)
	}
}

func TestStudentLedgerInactiveStudent(t *testing.T) {
	a := core.Student{ID: "A", Name: "A", MonthlyFee: rupees(500), Active: false}
	payments := []core.Payment{
		{ID: "p1", StudentID: "A", Months: []core.MonthKey{"2024-01"}, Amount: rupees(500), PaymentDate: day(2024, 1, 5)},
	}
	l := StudentLedger(a, payments)
	if l.TotalPaid != rupees(500) || l.PaidMonthCount != 1 || len(l.History) != 1 {
		t.Fatalf("unexpected ledger %+v", l)
	}
	if StudentTotalPaid(payments, "A") != rupees(500) || StudentPaidMonthCount(payments, "A") != 1 {
		t.Fatalf("derived totals mismatch")
	}
}

func TestDeletedStudentKeepsPayments(t *testing.T) {
	students := []core.Student{{ID: "A", Name: "A", MonthlyFee: rupees(500)}}
	payments := []core.Payment{
		{ID: "p1", StudentID: "A", Months: []core.MonthKey{"2024-01"}, Amount: rupees(500), PaymentDate: day(2024, 1, 5)},
	}
	before := PaidMonths(payments, "A")

	students = students[:0] // student A deleted; payments untouched
	if got := PaidMonths(payments, "A"); !reflect.DeepEqual(got, before) {
		t.Fatalf("paid months changed after delete: %v vs %v", got, before)
	}
	if got := StudentName(students, "A"); got != core.UnknownStudentName {
		t.Fatalf("expected placeholder name, got %q", got)
	}
	if _, err := FindStudent(students, "A"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStudentLedgerHistoryAscending(t *testing.T) {
	payments := []core.Payment{
		{ID: "late", StudentID: "a", PaymentDate: day(2024, 3, 1)},
		{ID: "early", StudentID: "a", PaymentDate: day(2024, 1, 1)},
		{ID: "other", StudentID: "b", PaymentDate: day(2024, 2, 1)},
	}
	l := StudentLedger(core.Student{ID: "a"}, payments)
	if len(l.History) != 2 || l.History[0].ID != "early" || l.History[1].ID != "late" {
		t.Fatalf("unexpected history %+v", l.History)
	}
}

func TestStudentSummaries(t *testing.T) {
	students := []core.Student{{ID: "a"}, {ID: "b"}}
	payments := []core.Payment{
		{ID: "1", StudentID: "a", Amount: rupees(100), Months: []core.MonthKey{"2024-01"}, PaymentDate: day(2024, 1, 1)},
		{ID: "2", StudentID: "a", Amount: rupees(200), Months: []core.MonthKey{"2024-02", "2024-03"}, PaymentDate: day(2024, 2, 1)},
	}
	got := StudentSummaries(students, payments)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries")
	}
	if got[0].TotalPaid != rupees(300) || got[0].PaidMonthCount != 3 || got[0].LastPayment == nil || got[0].LastPayment.ID != "2" {
		t.Fatalf("unexpected summary %+v", got[0])
	}
	if got[1].LastPayment != nil || got[1].PaidMonthCount != 0 {
		t.Fatalf("expected empty summary, got %+v", got[1])
	}
}

func TestFindPayment(t *testing.T) {
	payments := []core.Payment{{ID: "1"}}
	if _, err := FindPayment(payments, "1"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := FindPayment(payments, "2"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
