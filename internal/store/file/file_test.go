package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"feeledger/internal/ledger"
	"feeledger/internal/store"
	"feeledger/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		s, err := Open(filepath.Join(t.TempDir(), "data.json"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return s
	})
}

func TestOpenCreatesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	if _, err := Open(path); err != nil {
		t.Fatalf("open: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "{\n  \"students\": [],\n  \"payments\": []\n}"
	if string(b) != want {
		t.Fatalf("unexpected document:\n%s", b)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	st, err := s.CreateStudent(ctx, storetest.Student("Asha"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	list, err := reopened.ListStudents(ctx)
	if err != nil || len(list) != 1 || list[0].ID != st.ID || list[0].MonthlyFee.Cents != 50000 {
		t.Fatalf("student not persisted: %+v err=%v", list, err)
	}
}

func TestLenientAmounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	doc := `{
  "students": [{"id": "s1", "name": "Asha", "parentName": "P", "phone": "1", "class": "7", "monthlyFee": "500", "active": true, "joinedDate": "2024-01-03"}],
  "payments": [
    {"id": "p1", "studentId": "s1", "amount": 500, "months": ["2024-01"], "paymentDate": "2024-01-05T00:00:00Z"},
    {"id": "p2", "studentId": "s1", "amount": "250.50", "months": ["2024-02"], "paymentDate": "2024-02-05T00:00:00Z"},
    {"id": "p3", "studentId": "s1", "amount": "abc", "months": ["2024-03"], "paymentDate": "2024-03-05T00:00:00Z"},
    {"id": "p4", "studentId": "s1", "months": ["2024-04"], "paymentDate": "2024-04-05T00:00:00Z"},
    {"id": "p5", "studentId": "s1", "amount": null, "paymentDate": "2024-05-05T00:00:00Z"}
  ]
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	students, err := s.ListStudents(ctx)
	if err != nil || len(students) != 1 {
		t.Fatalf("list students: %v err=%v", students, err)
	}
	if students[0].MonthlyFee.Cents != 50000 {
		t.Fatalf("string fee not decoded: %d", students[0].MonthlyFee.Cents)
	}
	payments, err := s.ListPayments(ctx)
	if err != nil || len(payments) != 5 {
		t.Fatalf("list payments: %d err=%v", len(payments), err)
	}
	want := []int64{50000, 25050, 0, 0, 0}
	for i, p := range payments {
		if p.Amount.Cents != want[i] {
			t.Fatalf("payment %s: got %d cents, want %d", p.ID, p.Amount.Cents, want[i])
		}
	}
	if len(payments[4].Months) != 0 {
		t.Fatalf("absent months should read as empty, got %v", payments[4].Months)
	}
	total := ledger.StudentTotalPaid(payments, "s1")
	if total.Cents != 75050 {
		t.Fatalf("unexpected total %d", total.Cents)
	}
}

func TestOpenRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("expected error for corrupt document")
	}
}
