// Package sqlite is the embedded relational adapter of the Data Access Port.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"feeledger/internal/core"
)

const timeLayout = time.RFC3339Nano

// deleteChunk bounds the ids bound into one IN list. SQLite allows at most
// 32766 host parameters per statement.
var deleteChunk = 500

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps sqlite free of SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, parent_name, phone, class, monthly_fee_cents, active, joined_date
		FROM students ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	out := []core.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

func (r *Repository) getStudent(ctx context.Context, q querier, id string) (core.Student, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, parent_name, phone, class, monthly_fee_cents, active, joined_date
		FROM students WHERE id = ?`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Student{}, fmt.Errorf("%w: %s", core.ErrStudentNotFound, id)
	}
	return s, err
}

func (r *Repository) CreateStudent(ctx context.Context, in core.NewStudent) (core.Student, error) {
	f := in.StudentFields.Normalize()
	if err := f.Validate(); err != nil {
		return core.Student{}, err
	}
	joined := in.JoinedDate
	if joined.IsZero() {
		joined = r.now()
	}
	s := core.Student{
		ID:         uuid.NewString(),
		Name:       f.Name,
		ParentName: f.ParentName,
		Phone:      f.Phone,
		Class:      f.Class,
		MonthlyFee: f.MonthlyFee,
		Active:     in.Active,
		JoinedDate: joined,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, name, parent_name, phone, class, monthly_fee_cents, active, joined_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.ParentName, s.Phone, s.Class, s.MonthlyFee.Cents, boolToInt(s.Active), s.JoinedDate.Format(timeLayout))
	if err != nil {
		return core.Student{}, fmt.Errorf("create student: %w", err)
	}

	slog.InfoContext(ctx, "Student saved to SQLite", "id", s.ID, "name", s.Name)
	return s, nil
}

func (r *Repository) UpdateStudent(ctx context.Context, id string, patch core.StudentPatch) (core.Student, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Student{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := r.getStudent(ctx, tx, id)
	if err != nil {
		return core.Student{}, err
	}
	updated, err := patch.Apply(current)
	if err != nil {
		return core.Student{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE students
		SET name = ?, parent_name = ?, phone = ?, class = ?, monthly_fee_cents = ?, active = ?
		WHERE id = ?`,
		updated.Name, updated.ParentName, updated.Phone, updated.Class, updated.MonthlyFee.Cents, boolToInt(updated.Active), id)
	if err != nil {
		return core.Student{}, fmt.Errorf("update student: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Student{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Student updated in SQLite", "id", id)
	return updated, nil
}

func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrStudentNotFound, id)
	}
	slog.InfoContext(ctx, "Student deleted from SQLite", "id", id)
	return nil
}

func (r *Repository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, amount_cents, payment_date, remarks
		FROM payments ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := []core.Payment{}
	index := map[string]int{}
	for rows.Next() {
		var (
			p    core.Payment
			date string
		)
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Amount.Cents, &date, &p.Remarks); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.PaymentDate = parseTime(date)
		p.Months = []core.MonthKey{}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	rows.Close()

	mrows, err := r.db.QueryContext(ctx, `SELECT payment_id, month FROM payment_months ORDER BY payment_id, month`)
	if err != nil {
		return nil, fmt.Errorf("list payment months: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var id, month string
		if err := mrows.Scan(&id, &month); err != nil {
			return nil, fmt.Errorf("scan payment month: %w", err)
		}
		if i, ok := index[id]; ok {
			out[i].Months = append(out[i].Months, core.MonthKey(month))
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment months: %w", err)
	}
	return out, nil
}

func (r *Repository) CreatePayment(ctx context.Context, in core.NewPayment) (core.Payment, error) {
	if err := in.Validate(); err != nil {
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Payment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, student_id, amount_cents, payment_date, remarks)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.StudentID, p.Amount.Cents, p.PaymentDate.Format(timeLayout), p.Remarks)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	for _, m := range p.Months {
		if _, err := tx.ExecContext(ctx, `INSERT INTO payment_months (payment_id, month) VALUES (?, ?)`, p.ID, string(m)); err != nil {
			return core.Payment{}, fmt.Errorf("create payment month: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return core.Payment{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", p.ID,
		"student_id", p.StudentID,
		"amount_cents", p.Amount.Cents,
		"months", len(p.Months))
	return p, nil
}

func (r *Repository) DeletePayment(ctx context.Context, id string) error {
	n, err := r.DeletePayments(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrPaymentNotFound, id)
	}
	return nil
}

// DeletePayments removes the listed payments in a single transaction. Ids
// are bound in chunks of deleteChunk to stay under the host parameter limit.
func (r *Repository) DeletePayments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for chunk := range slices.Chunk(ids, deleteChunk) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payment_months WHERE payment_id IN (`+placeholders+`)`, args...); err != nil {
			return 0, fmt.Errorf("delete payment months: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return 0, fmt.Errorf("delete payments: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete payments: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	if total > 0 {
		slog.InfoContext(ctx, "Payments deleted from SQLite", "count", total)
	}
	return int(total), nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc scanner) (core.Student, error) {
	var (
		s      core.Student
		active int64
		joined string
	)
	if err := sc.Scan(&s.ID, &s.Name, &s.ParentName, &s.Phone, &s.Class, &s.MonthlyFee.Cents, &active, &joined); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Student{}, err
		}
		return core.Student{}, fmt.Errorf("scan student: %w", err)
	}
	s.Active = active != 0
	s.JoinedDate = parseTime(joined)
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
