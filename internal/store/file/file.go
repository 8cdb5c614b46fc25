// Package file stores the whole ledger in one JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"feeledger/internal/core"
)

// Store is a flat-file repository. Every write rewrites the document.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// Open prepares the store at path, creating an empty document if none exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{path: path, now: time.Now}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(document{Students: []studentRecord{}, Payments: []paymentRecord{}}); err != nil {
			return nil, fmt.Errorf("initialise data file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat data file: %w", err)
	}
	// Fail early on an unreadable document.
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) ListStudents(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]core.Student, 0, len(doc.Students))
	for _, r := range doc.Students {
		out = append(out, r.toCore())
	}
	return out, nil
}

func (s *Store) CreateStudent(ctx context.Context, in core.NewStudent) (core.Student, error) {
	f := in.StudentFields.Normalize()
	if err := f.Validate(); err != nil {
		return core.Student{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return core.Student{}, err
	}
	joined := in.JoinedDate
	if joined.IsZero() {
		joined = s.now()
	}
	st := core.Student{
		ID:         uuid.NewString(),
		Name:       f.Name,
		ParentName: f.ParentName,
		Phone:      f.Phone,
		Class:      f.Class,
		MonthlyFee: f.MonthlyFee,
		Active:     in.Active,
		JoinedDate: joined,
	}
	doc.Students = append(doc.Students, fromStudent(st))
	if err := s.write(doc); err != nil {
		return core.Student{}, err
	}
	slog.InfoContext(ctx, "Student saved to data file", "id", st.ID, "name", st.Name)
	return st, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id string, patch core.StudentPatch) (core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return core.Student{}, err
	}
	for i, r := range doc.Students {
		if r.ID != id {
			continue
		}
		updated, err := patch.Apply(r.toCore())
		if err != nil {
			return core.Student{}, err
		}
		doc.Students[i] = fromStudent(updated)
		if err := s.write(doc); err != nil {
			return core.Student{}, err
		}
		slog.InfoContext(ctx, "Student updated in data file", "id", id)
		return updated, nil
	}
	return core.Student{}, fmt.Errorf("%w: %s", core.ErrStudentNotFound, id)
}

func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	for i, r := range doc.Students {
		if r.ID == id {
			doc.Students = append(doc.Students[:i], doc.Students[i+1:]...)
			if err := s.write(doc); err != nil {
				return err
			}
			slog.InfoContext(ctx, "Student deleted from data file", "id", id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrStudentNotFound, id)
}

func (s *Store) ListPayments(_ context.Context) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]core.Payment, 0, len(doc.Payments))
	for _, r := range doc.Payments {
		out = append(out, r.toCore())
	}
	return out, nil
}

func (s *Store) CreatePayment(ctx context.Context, in core.NewPayment) (core.Payment, error) {
	if err := in.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return core.Payment{}, err
	}
	p := core.Payment{
		ID:          uuid.NewString(),
		StudentID:   in.StudentID,
		Amount:      in.Amount,
		Months:      append([]core.MonthKey(nil), in.Months...),
		PaymentDate: in.PaymentDate,
		Remarks:     in.Remarks,
	}
	doc.Payments = append(doc.Payments, fromPayment(p))
	if err := s.write(doc); err != nil {
		return core.Payment{}, err
	}
	slog.InfoContext(ctx, "Payment saved to data file",
		"id", p.ID,
		"student_id", p.StudentID,
		"amount_cents", p.Amount.Cents,
		"months", len(p.Months))
	return p, nil
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	n, err := s.DeletePayments(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrPaymentNotFound, id)
	}
	return nil
}

func (s *Store) DeletePayments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return 0, err
	}
	kept := doc.Payments[:0]
	for _, r := range doc.Payments {
		if _, ok := drop[r.ID]; ok {
			continue
		}
		kept = append(kept, r)
	}
	removed := len(doc.Payments) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	doc.Payments = kept
	if err := s.write(doc); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Payments deleted from data file", "count", removed)
	return removed, nil
}

func (s *Store) read() (document, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return document{}, fmt.Errorf("read data file: %w", err)
	}
	var doc document
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return document{}, fmt.Errorf("decode data file: %w", err)
	}
	return doc, nil
}

// write replaces the document atomically via a temp file in the same directory.
func (s *Store) write(doc document) error {
	if doc.Students == nil {
		doc.Students = []studentRecord{}
	}
	if doc.Payments == nil {
		doc.Payments = []paymentRecord{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
