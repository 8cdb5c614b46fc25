package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"feeledger/internal/amqp"
	"feeledger/internal/core"
	"feeledger/internal/sheets"
	"feeledger/internal/sheets/memory"
)

type fakeSource struct {
	students []core.Student
	payments []core.Payment
	err      error
}

func (f fakeSource) ListStudents(context.Context) ([]core.Student, error) { return f.students, f.err }
func (f fakeSource) ListPayments(context.Context) ([]core.Payment, error) { return f.payments, f.err }

type failingMirror struct{}

func (failingMirror) AppendPayment(context.Context, sheets.PaymentRow) (string, error) {
	return "", errors.New("quota exceeded")
}
func (failingMirror) RemovePayment(context.Context, string) error { return errors.New("quota exceeded") }
func (failingMirror) PaymentIDs(context.Context) ([]string, error) {
	return nil, errors.New("quota exceeded")
}

func TestHandleEventCreatedAndDeleted(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(mirror, nil, time.UTC)
	ctx := context.Background()

	created := &amqp.PaymentEvent{
		Type:        amqp.PaymentCreated,
		PaymentID:   "p1",
		StudentID:   "s1",
		StudentName: "Asha",
		AmountCents: 100000,
		Months:      []string{"2024-05", "2024-06"},
		PaymentDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := w.HandleEvent(ctx, created); err != nil {
		t.Fatalf("handle created: %v", err)
	}
	// Redelivery must not duplicate the row.
	if err := w.HandleEvent(ctx, created); err != nil {
		t.Fatalf("handle redelivered: %v", err)
	}
	rows := mirror.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Amount.Cents != 100000 || len(rows[0].Months) != 2 || rows[0].StudentName != "Asha" {
		t.Fatalf("unexpected row %+v", rows[0])
	}

	if err := w.HandleEvent(ctx, &amqp.PaymentEvent{Type: amqp.PaymentDeleted, PaymentID: "p1"}); err != nil {
		t.Fatalf("handle deleted: %v", err)
	}
	if len(mirror.Rows()) != 0 {
		t.Fatalf("expected row removed")
	}
}

func TestHandleEventPropagatesMirrorErrors(t *testing.T) {
	w := NewMirrorWorker(failingMirror{}, nil, time.UTC)
	err := w.HandleEvent(context.Background(), &amqp.PaymentEvent{Type: amqp.PaymentCreated, PaymentID: "p1"})
	if err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
	if err := w.HandleEvent(context.Background(), &amqp.PaymentEvent{Type: "payment.updated", PaymentID: "p1"}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestStartupSync(t *testing.T) {
	mirror := memory.New()
	src := fakeSource{
		students: []core.Student{{ID: "s1", Name: "Asha"}},
		payments: []core.Payment{
			{ID: "p1", StudentID: "s1", Amount: core.Money{Cents: 50000}, Months: []core.MonthKey{"2024-01"}},
			{ID: "p2", StudentID: "gone", Amount: core.Money{Cents: 50000}, Months: []core.MonthKey{"2024-02"}},
		},
	}
	if _, err := mirror.AppendPayment(context.Background(), sheets.PaymentRow{PaymentID: "p1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := NewMirrorWorker(mirror, src, time.UTC).StartupSync(context.Background()); err != nil {
		t.Fatalf("startup sync: %v", err)
	}
	rows := mirror.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].PaymentID != "p2" || rows[1].StudentName != core.UnknownStudentName {
		t.Fatalf("deleted student should use placeholder name: %+v", rows[1])
	}
}

func TestStartupSyncSourceError(t *testing.T) {
	w := NewMirrorWorker(memory.New(), fakeSource{err: errors.New("db down")}, nil)
	if err := w.StartupSync(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
	if err := NewMirrorWorker(memory.New(), nil, nil).StartupSync(context.Background()); err != nil {
		t.Fatalf("nil source should be a no-op: %v", err)
	}
}

func TestStartupSyncRemovesDeletedPayments(t *testing.T) {
	mirror := memory.New()
	ctx := context.Background()
	for _, id := range []string{"p1", "gone1", "gone2"} {
		if _, err := mirror.AppendPayment(ctx, sheets.PaymentRow{PaymentID: id}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	src := fakeSource{payments: []core.Payment{{ID: "p1", StudentID: "s1"}}}
	if err := NewMirrorWorker(mirror, src, time.UTC).StartupSync(ctx); err != nil {
		t.Fatalf("startup sync: %v", err)
	}
	ids, _ := mirror.PaymentIDs(ctx)
	if len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("mirrored ids = %v, want [p1]", ids)
	}
}

func TestRowsUseWorkerLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	mirror := memory.New()
	w := NewMirrorWorker(mirror, nil, ist)
	// Midnight 1 June IST, carried as a UTC instant.
	paid := time.Date(2024, 5, 31, 18, 30, 0, 0, time.UTC)
	if err := w.HandleEvent(context.Background(), &amqp.PaymentEvent{Type: amqp.PaymentCreated, PaymentID: "p1", PaymentDate: paid}); err != nil {
		t.Fatalf("handle created: %v", err)
	}
	if got := mirror.Rows()[0].PaymentDate.Format("2006-01-02"); got != "2024-06-01" {
		t.Fatalf("row date = %s, want 2024-06-01", got)
	}
	row := RowFromPayment(core.Payment{ID: "p2", PaymentDate: paid}, "Asha", ist)
	if row.PaymentDate.Day() != 1 || row.PaymentDate.Month() != time.June {
		t.Fatalf("RowFromPayment date = %v", row.PaymentDate)
	}
}
