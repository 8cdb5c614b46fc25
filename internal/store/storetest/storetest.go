// Package storetest is a conformance suite every store.Repository adapter
// runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/store"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) store.Repository

// Run executes the suite against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("StudentLifecycle", func(t *testing.T) { testStudentLifecycle(t, newRepo(t)) })
	t.Run("UnknownStudent", func(t *testing.T) { testUnknownStudent(t, newRepo(t)) })
	t.Run("PaymentLifecycle", func(t *testing.T) { testPaymentLifecycle(t, newRepo(t)) })
	t.Run("BulkDelete", func(t *testing.T) { testBulkDelete(t, newRepo(t)) })
	t.Run("DeleteStudentKeepsPayments", func(t *testing.T) { testDeleteStudentKeepsPayments(t, newRepo(t)) })
}

// Student returns valid create input.
func Student(name string) core.NewStudent {
	return core.NewStudent{
		StudentFields: core.StudentFields{
			Name:       name,
			ParentName: "Parent of " + name,
			Phone:      "9876543210",
			Class:      "7",
			MonthlyFee: core.Money{Cents: 50000},
		},
		Active:     true,
		JoinedDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

// Payment returns valid create input for studentID.
func Payment(studentID string, date time.Time, months ...core.MonthKey) core.NewPayment {
	return core.NewPayment{
		StudentID:   studentID,
		Amount:      core.Money{Cents: 50000 * int64(len(months))},
		Months:      months,
		PaymentDate: date,
		Remarks:     "cash",
	}
}

func testStudentLifecycle(t *testing.T, repo store.Repository) {
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	list, err := repo.ListStudents(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", list, err)
	}

	created, err := repo.CreateStudent(ctx, Student("Asha"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Name != "Asha" || !created.Active || created.MonthlyFee.Cents != 50000 {
		t.Fatalf("unexpected created student %+v", created)
	}
	if !created.JoinedDate.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("joined date not kept: %v", created.JoinedDate)
	}
	second, err := repo.CreateStudent(ctx, Student("Bala"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID == created.ID {
		t.Fatalf("ids must be unique")
	}

	name := "Asha K"
	fee := core.Money{Cents: 60000}
	inactive := false
	updated, err := repo.UpdateStudent(ctx, created.ID, core.StudentPatch{Name: &name, MonthlyFee: &fee, Active: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Name != "Asha K" || updated.MonthlyFee.Cents != 60000 || updated.Active {
		t.Fatalf("unexpected updated student %+v", updated)
	}
	if updated.Phone != created.Phone || !updated.JoinedDate.Equal(created.JoinedDate) {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	list, err = repo.ListStudents(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 students, got %d err=%v", len(list), err)
	}
	var found bool
	for _, s := range list {
		if s.ID == created.ID {
			found = true
			if s.Name != "Asha K" || s.Active {
				t.Fatalf("update not persisted: %+v", s)
			}
		}
	}
	if !found {
		t.Fatalf("updated student missing from list")
	}

	if err := repo.DeleteStudent(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = repo.ListStudents(ctx)
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("unexpected list after delete: %+v", list)
	}
}

func testUnknownStudent(t *testing.T, repo store.Repository) {
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()
	name := "x"
	if _, err := repo.UpdateStudent(ctx, "missing", core.StudentPatch{Name: &name}); !errors.Is(err, core.ErrStudentNotFound) {
		t.Fatalf("update missing: expected ErrStudentNotFound, got %v", err)
	}
	if err := repo.DeleteStudent(ctx, "missing"); !errors.Is(err, core.ErrStudentNotFound) {
		t.Fatalf("delete missing: expected ErrStudentNotFound, got %v", err)
	}
	if err := repo.DeletePayment(ctx, "missing"); !errors.Is(err, core.ErrPaymentNotFound) {
		t.Fatalf("delete missing payment: expected ErrPaymentNotFound, got %v", err)
	}
}

func testPaymentLifecycle(t *testing.T, repo store.Repository) {
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	s, err := repo.CreateStudent(ctx, Student("Asha"))
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	date := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	p, err := repo.CreatePayment(ctx, Payment(s.ID, date, "2024-01", "2024-02"))
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if p.ID == "" || p.StudentID != s.ID || p.Amount.Cents != 100000 || p.Remarks != "cash" {
		t.Fatalf("unexpected payment %+v", p)
	}
	if !reflect.DeepEqual(p.Months, []core.MonthKey{"2024-01", "2024-02"}) {
		t.Fatalf("unexpected months %v", p.Months)
	}

	list, err := repo.ListPayments(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 payment, got %d err=%v", len(list), err)
	}
	got := list[0]
	if got.ID != p.ID || !got.PaymentDate.Equal(date) || !reflect.DeepEqual(got.Months, p.Months) || got.Amount != p.Amount {
		t.Fatalf("listed payment differs: %+v vs %+v", got, p)
	}

	if err := repo.DeletePayment(ctx, p.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	list, _ = repo.ListPayments(ctx)
	if len(list) != 0 {
		t.Fatalf("expected no payments, got %d", len(list))
	}
}

func testBulkDelete(t *testing.T, repo store.Repository) {
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	s, err := repo.CreateStudent(ctx, Student("Asha"))
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	var ids []string
	for i, m := range []core.MonthKey{"2024-01", "2024-02", "2024-03"} {
		p, err := repo.CreatePayment(ctx, Payment(s.ID, time.Date(2024, time.Month(i+1), 2, 0, 0, 0, 0, time.UTC), m))
		if err != nil {
			t.Fatalf("create payment %d: %v", i, err)
		}
		ids = append(ids, p.ID)
	}

	n, err := repo.DeletePayments(ctx, []string{ids[0], ids[2], "unknown"})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	list, _ := repo.ListPayments(ctx)
	if len(list) != 1 || list[0].ID != ids[1] {
		t.Fatalf("unexpected remaining payments %+v", list)
	}

	if n, err := repo.DeletePayments(ctx, nil); err != nil || n != 0 {
		t.Fatalf("empty bulk delete: n=%d err=%v", n, err)
	}
}

func testDeleteStudentKeepsPayments(t *testing.T, repo store.Repository) {
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	s, err := repo.CreateStudent(ctx, Student("Asha"))
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	if _, err := repo.CreatePayment(ctx, Payment(s.ID, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "2024-01")); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if err := repo.DeleteStudent(ctx, s.ID); err != nil {
		t.Fatalf("delete student: %v", err)
	}
	list, err := repo.ListPayments(ctx)
	if err != nil || len(list) != 1 || list[0].StudentID != s.ID {
		t.Fatalf("payment should survive student deletion: %+v err=%v", list, err)
	}
}
