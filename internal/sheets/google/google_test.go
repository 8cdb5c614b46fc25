package google

import (
	"context"
	"reflect"
	"testing"
	"time"

	"feeledger/internal/core"
	ports "feeledger/internal/sheets"
)

func TestRowValues(t *testing.T) {
	row := ports.PaymentRow{
		PaymentID:   "p1",
		PaymentDate: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		StudentID:   "s1",
		Months:      []core.MonthKey{"2024-05", "2024-06"},
		Amount:      core.Money{Cents: 100000},
		Remarks:     "cash",
	}
	want := []any{"p1", "2024-06-01", "s1", core.UnknownStudentName, "May 2024, Jun 2024", "1000.00", "cash"}
	if got := rowValues(row); !reflect.DeepEqual(got, want) {
		t.Fatalf("rowValues = %v, want %v", got, want)
	}
}

func TestFindRow(t *testing.T) {
	ids := []string{"Payment ID", "p1", "", "p2"}
	tests := []struct {
		id   string
		want int
	}{
		{"p1", 1},
		{" p2 ", 3},
		{"missing", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := findRow(ids, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
}

func TestLoadCredentialsPrefersInline(t *testing.T) {
	b, err := loadCredentials(context.Background(), Options{CredentialsJSON: `{"type":"service_account"}`, CredentialsFile: "/does/not/exist"})
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("unexpected credentials %q err=%v", b, err)
	}
}

func TestMirroredIDsSkipsHeaderAndBlanks(t *testing.T) {
	got := mirroredIDs([]string{"Payment ID", "p1", "", "p2"})
	if !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Fatalf("mirroredIDs = %v", got)
	}
	if got := mirroredIDs(nil); len(got) != 0 {
		t.Fatalf("empty column = %v", got)
	}
}

func TestRowValuesKeepsMalformedMonth(t *testing.T) {
	row := ports.PaymentRow{PaymentID: "p1", Months: []core.MonthKey{"Jan-2024"}}
	if got := rowValues(row)[4]; got != "Jan-2024" {
		t.Fatalf("months cell = %v", got)
	}
}
