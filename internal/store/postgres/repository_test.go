package postgres

import (
	"os"
	"reflect"
	"testing"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/store"
	"feeledger/internal/store/storetest"
)

// Set FEELEDGER_TEST_DATABASE_URL to run the suite against a live database.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("FEELEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FEELEDGER_TEST_DATABASE_URL not set")
	}
	storetest.Run(t, func(t *testing.T) store.Repository {
		repo, err := Open(dsn)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := repo.db.Exec("TRUNCATE students, payments").Error; err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return repo
	})
}

func TestMonthsColumnRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		column string
		want   []core.MonthKey
	}{
		{"empty", "", []core.MonthKey{}},
		{"single", "2024-01", []core.MonthKey{"2024-01"}},
		{"several", "2024-01,2024-02", []core.MonthKey{"2024-01", "2024-02"}},
		{"spaces and blanks", " 2024-01 ,,2024-03", []core.MonthKey{"2024-01", "2024-03"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitMonths(tt.column); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("splitMonths(%q) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}
	if got := joinMonths([]core.MonthKey{"2024-01", "2024-02"}); got != "2024-01,2024-02" {
		t.Fatalf("joinMonths = %q", got)
	}
}

func TestRowConversion(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := core.Payment{ID: "p1", StudentID: "s1", Amount: core.Money{Cents: 100000}, Months: []core.MonthKey{"2024-02", "2024-03"}, PaymentDate: date, Remarks: "upi"}
	if got := fromPayment(p).toCore(); !reflect.DeepEqual(got, p) {
		t.Fatalf("payment conversion mismatch: %+v", got)
	}
	s := core.Student{ID: "s1", Name: "Asha", ParentName: "P", Phone: "1", Class: "7", MonthlyFee: core.Money{Cents: 50000}, JoinedDate: date}
	if got := fromStudent(s).toCore(); !reflect.DeepEqual(got, s) {
		t.Fatalf("student conversion mismatch: %+v", got)
	}
}
