// Package worker replays payment events into the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feeledger/internal/amqp"
	"feeledger/internal/core"
	"feeledger/internal/ledger"
	"feeledger/internal/sheets"
)

// Source is the read side of the ledger store the worker reconciles from.
type Source interface {
	ListStudents(ctx context.Context) ([]core.Student, error)
	ListPayments(ctx context.Context) ([]core.Payment, error)
}

type MirrorWorker struct {
	mirror sheets.PaymentMirror
	source Source
	loc    *time.Location
}

// NewMirrorWorker creates a worker writing payment dates in loc (UTC when
// nil). source may be nil, which disables startup reconciliation.
func NewMirrorWorker(mirror sheets.PaymentMirror, source Source, loc *time.Location) *MirrorWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &MirrorWorker{mirror: mirror, source: source, loc: loc}
}

// HandleEvent applies one payment event to the mirror.
func (w *MirrorWorker) HandleEvent(ctx context.Context, e *amqp.PaymentEvent) error {
	slog.InfoContext(ctx, "Processing payment event",
		"type", e.Type,
		"payment_id", e.PaymentID,
		"timestamp", e.Timestamp)

	switch e.Type {
	case amqp.PaymentCreated:
		ref, err := w.mirror.AppendPayment(ctx, rowFromEvent(e, w.loc))
		if err != nil {
			return fmt.Errorf("append payment to mirror: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored payment",
			"payment_id", e.PaymentID,
			"sheets_ref", ref,
			"amount_cents", e.AmountCents)
	case amqp.PaymentDeleted:
		if err := w.mirror.RemovePayment(ctx, e.PaymentID); err != nil {
			return fmt.Errorf("remove payment from mirror: %w", err)
		}
		slog.InfoContext(ctx, "Removed mirrored payment", "payment_id", e.PaymentID)
	default:
		return fmt.Errorf("unsupported event type %q", e.Type)
	}
	return nil
}

// StartupSync reconciles the mirror with the store after downtime: stored
// payments missing from the mirror are appended, and mirrored rows whose
// payment no longer exists are removed. Appends are idempotent per payment id.
func (w *MirrorWorker) StartupSync(ctx context.Context) error {
	if w.source == nil {
		slog.InfoContext(ctx, "No ledger source configured, skipping startup sync")
		return nil
	}
	students, err := w.source.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("list students for startup sync: %w", err)
	}
	payments, err := w.source.ListPayments(ctx)
	if err != nil {
		return fmt.Errorf("list payments for startup sync: %w", err)
	}

	synced, failed := 0, 0
	stored := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		stored[p.ID] = struct{}{}
		row := RowFromPayment(p, ledger.StudentName(students, p.StudentID), w.loc)
		if _, err := w.mirror.AppendPayment(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror payment during startup", "payment_id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	removed, err := w.removeStale(ctx, stored)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list mirrored payments", "error", err)
		failed++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(payments),
		"synced", synced,
		"removed", removed,
		"errors", failed)
	return nil
}

// removeStale deletes mirrored rows of payments absent from stored.
func (w *MirrorWorker) removeStale(ctx context.Context, stored map[string]struct{}) (int, error) {
	ids, err := w.mirror.PaymentIDs(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if _, ok := stored[id]; ok {
			continue
		}
		if err := w.mirror.RemovePayment(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to remove stale mirrored payment", "payment_id", id, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// RowFromPayment converts a stored payment to a mirror row dated in loc.
func RowFromPayment(p core.Payment, studentName string, loc *time.Location) sheets.PaymentRow {
	return sheets.PaymentRow{
		PaymentID:   p.ID,
		PaymentDate: p.PaymentDate.In(loc),
		StudentID:   p.StudentID,
		StudentName: studentName,
		Months:      append([]core.MonthKey(nil), p.Months...),
		Amount:      p.Amount,
		Remarks:     p.Remarks,
	}
}

func rowFromEvent(e *amqp.PaymentEvent, loc *time.Location) sheets.PaymentRow {
	months := make([]core.MonthKey, 0, len(e.Months))
	for _, m := range e.Months {
		months = append(months, core.MonthKey(m))
	}
	return sheets.PaymentRow{
		PaymentID:   e.PaymentID,
		PaymentDate: e.PaymentDate.In(loc),
		StudentID:   e.StudentID,
		StudentName: e.StudentName,
		Months:      months,
		Amount:      core.Money{Cents: e.AmountCents},
		Remarks:     e.Remarks,
	}
}
