package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"feeledger/internal/amqp"
	"feeledger/internal/core"
	"feeledger/internal/ledger"
	"feeledger/internal/store"
)

// EventPublisher sends payment events to the mirror pipeline.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, e amqp.PaymentEvent) error
}

// Dashboard is everything the dashboard page shows.
type Dashboard struct {
	Stats    ledger.DashboardStats
	Recent   []ledger.PaymentView
	Students []ledger.StudentSummary
}

// Dues are the months a student has not paid up to now.
type Dues struct {
	StudentID string
	Months    []core.MonthKey
	Amount    core.Money
}

// RecordPaymentInput is the payment form submission.
type RecordPaymentInput struct {
	StudentID   string
	Months      []string
	PaymentDate time.Time
	Remarks     string
}

// LedgerService orchestrates ledger reads and writes across the store and
// the event publisher.
type LedgerService struct {
	repo      store.Repository
	publisher EventPublisher
	now       func() time.Time
}

// NewLedgerService wires the service. publisher may be nil.
func NewLedgerService(repo store.Repository, publisher EventPublisher) *LedgerService {
	return &LedgerService{repo: repo, publisher: publisher, now: time.Now}
}

// Snapshot loads both collections concurrently.
func (s *LedgerService) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := s.repo.ListStudents(gctx)
		if err != nil {
			return fmt.Errorf("load students: %w", err)
		}
		snap.Students = students
		return nil
	})
	g.Go(func() error {
		payments, err := s.repo.ListPayments(gctx)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		snap.Payments = payments
		return nil
	})
	if err := g.Wait(); err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}

// ListStudents returns all students, or only active ones.
func (s *LedgerService) ListStudents(ctx context.Context, activeOnly bool) ([]core.Student, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if activeOnly {
		return ledger.ActiveStudents(students), nil
	}
	return students, nil
}

func (s *LedgerService) ListPayments(ctx context.Context) ([]core.Payment, error) {
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// StudentPayments returns the payments of one student, oldest first.
func (s *LedgerService) StudentPayments(ctx context.Context, studentID string) ([]core.Payment, error) {
	payments, err := s.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.StudentPayments(payments, studentID), nil
}

func (s *LedgerService) DashboardStats(ctx context.Context, now time.Time) (ledger.DashboardStats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ledger.DashboardStats{}, err
	}
	return ledger.ComputeDashboardStats(snap.Students, snap.Payments, now), nil
}

func (s *LedgerService) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Stats:    ledger.ComputeDashboardStats(snap.Students, snap.Payments, now),
		Recent:   ledger.RecentPaymentViews(snap.Students, snap.Payments, ledger.DefaultRecentPayments),
		Students: ledger.StudentSummaries(snap.Students, snap.Payments),
	}, nil
}

// StudentLedger returns the ledger of id. A deleted student that still has
// payments gets a placeholder record.
func (s *LedgerService) StudentLedger(ctx context.Context, id string) (ledger.Ledger, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ledger.Ledger{}, err
	}
	st, err := ledger.FindStudent(snap.Students, id)
	if err != nil {
		if len(ledger.StudentPayments(snap.Payments, id)) == 0 {
			return ledger.Ledger{}, err
		}
		st = core.Student{ID: id, Name: core.UnknownStudentName}
	}
	return ledger.StudentLedger(st, snap.Payments), nil
}

// StudentDues lists the unpaid months from the student's joining month to now.
func (s *LedgerService) StudentDues(ctx context.Context, id string, now time.Time) (Dues, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Dues{}, err
	}
	st, err := ledger.FindStudent(snap.Students, id)
	if err != nil {
		return Dues{}, err
	}
	return Dues{
		StudentID: id,
		Months:    ledger.OutstandingMonths(st, snap.Payments, now),
		Amount:    ledger.OutstandingAmount(st, snap.Payments, now),
	}, nil
}

// MonthOptions returns the payment form's month grid for studentID.
func (s *LedgerService) MonthOptions(ctx context.Context, studentID string, now time.Time) ([]ledger.MonthChoice, error) {
	payments, err := s.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	options := ledger.MonthOptions(now, ledger.DefaultMonthsBack, ledger.DefaultMonthsForward)
	return ledger.AnnotateMonths(options, ledger.PaidMonths(payments, studentID)), nil
}

// AddStudent creates an active student. A zero joined date means today.
func (s *LedgerService) AddStudent(ctx context.Context, fields core.StudentFields, joined time.Time) (core.Student, error) {
	if joined.IsZero() {
		joined = s.now()
	}
	st, err := s.repo.CreateStudent(ctx, core.NewStudent{StudentFields: fields, Active: true, JoinedDate: joined})
	if err != nil {
		return core.Student{}, fmt.Errorf("add student: %w", err)
	}
	return st, nil
}

func (s *LedgerService) UpdateStudent(ctx context.Context, id string, patch core.StudentPatch) (core.Student, error) {
	st, err := s.repo.UpdateStudent(ctx, id, patch)
	if err != nil {
		return core.Student{}, fmt.Errorf("update student: %w", err)
	}
	return st, nil
}

func (s *LedgerService) SetStudentActive(ctx context.Context, id string, active bool) (core.Student, error) {
	return s.UpdateStudent(ctx, id, core.StudentPatch{Active: &active})
}

// ToggleStudentActive flips the active flag of id.
func (s *LedgerService) ToggleStudentActive(ctx context.Context, id string) (core.Student, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return core.Student{}, fmt.Errorf("list students: %w", err)
	}
	st, err := ledger.FindStudent(students, id)
	if err != nil {
		return core.Student{}, err
	}
	return s.SetStudentActive(ctx, id, ledger.ToggleActive(st).Active)
}

// DeleteStudent removes the student record. Its payments are kept.
func (s *LedgerService) DeleteStudent(ctx context.Context, id string) error {
	if err := s.repo.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// RecordPayment validates the selection against the current snapshot,
// saves the payment and publishes payment.created.
func (s *LedgerService) RecordPayment(ctx context.Context, in RecordPaymentInput) (core.Payment, error) {
	if len(in.Months) == 0 {
		return core.Payment{}, core.ErrEmptyMonthSelection
	}
	months, err := core.ParseMonthKeys(in.Months)
	if err != nil {
		return core.Payment{}, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.Payment{}, err
	}

	var student *core.Student
	if st, err := ledger.FindStudent(snap.Students, in.StudentID); err == nil {
		student = &st
	}
	date := in.PaymentDate
	if date.IsZero() {
		date = s.now()
	}
	np, err := ledger.BuildPayment(student, months, date, in.Remarks)
	if err != nil {
		return core.Payment{}, err
	}
	for _, m := range np.Months {
		if ledger.IsMonthPaid(snap.Payments, np.StudentID, m) {
			return core.Payment{}, fmt.Errorf("%w: %s", core.ErrMonthAlreadyPaid, m.Label())
		}
	}

	p, err := s.repo.CreatePayment(ctx, np)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}

	if err := s.publish(ctx, eventFor(amqp.PaymentCreated, p, student.Name)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish payment event",
			"payment_id", p.ID, "error", err)
		// Don't fail the request - payment is saved
	}
	return p, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, id string) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	p, err := ledger.FindPayment(snap.Payments, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	s.publishDeleted(ctx, []core.Payment{p}, snap.Students)
	return nil
}

// ResetCurrentMonth deletes every payment dated in now's calendar month.
func (s *LedgerService) ResetCurrentMonth(ctx context.Context, now time.Time) (int, error) {
	return s.bulkDelete(ctx, "current-month", func(payments []core.Payment) []string {
		return ledger.ResetCurrentMonth(payments, now)
	})
}

// ResetAll deletes every payment.
func (s *LedgerService) ResetAll(ctx context.Context) (int, error) {
	return s.bulkDelete(ctx, "all", ledger.ResetAll)
}

// DeleteMonthRange deletes payments dated from start through end inclusive.
func (s *LedgerService) DeleteMonthRange(ctx context.Context, start, end core.MonthKey, loc *time.Location) (int, error) {
	return s.bulkDelete(ctx, "range", func(payments []core.Payment) []string {
		return ledger.SelectMonthsInRange(payments, start, end, loc)
	})
}

func (s *LedgerService) bulkDelete(ctx context.Context, scope string, selectIDs func([]core.Payment) []string) (int, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	ids := selectIDs(snap.Payments)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.DeletePayments(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete payments: %w", err)
	}
	slog.InfoContext(ctx, "Payments reset", "scope", scope, "selected", len(ids), "deleted", n)

	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	removed := make([]core.Payment, 0, len(ids))
	for _, p := range snap.Payments {
		if _, ok := selected[p.ID]; ok {
			removed = append(removed, p)
		}
	}
	s.publishDeleted(ctx, removed, snap.Students)
	return n, nil
}

func (s *LedgerService) publishDeleted(ctx context.Context, payments []core.Payment, students []core.Student) {
	for _, p := range payments {
		e := eventFor(amqp.PaymentDeleted, p, ledger.StudentName(students, p.StudentID))
		if err := s.publish(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to publish payment event",
				"payment_id", p.ID, "error", err)
		}
	}
}

func (s *LedgerService) publish(ctx context.Context, e amqp.PaymentEvent) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping payment event", "type", e.Type)
		return nil
	}
	return s.publisher.PublishPaymentEvent(ctx, e)
}

func eventFor(t amqp.EventType, p core.Payment, studentName string) amqp.PaymentEvent {
	months := make([]string, len(p.Months))
	for i, m := range p.Months {
		months[i] = string(m)
	}
	return amqp.PaymentEvent{
		Type:        t,
		PaymentID:   p.ID,
		StudentID:   p.StudentID,
		StudentName: studentName,
		AmountCents: p.Amount.Cents,
		Months:      months,
		PaymentDate: p.PaymentDate,
		Remarks:     p.Remarks,
		Timestamp:   time.Now(),
	}
}

// Ping checks the store when it supports health checks.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := s.repo.ListStudents(ctx)
	return err
}

// Close closes the store and, when it holds a connection, the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
