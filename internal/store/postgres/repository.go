// Package postgres is the hosted relational adapter of the Data Access Port.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"feeledger/internal/core"
)

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn and migrates the row models.
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&studentRow{}, &paymentRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) ListStudents(ctx context.Context) ([]core.Student, error) {
	var rows []studentRow
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	out := make([]core.Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
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
	row := fromStudent(s)
	// Select every column so a false Active is written instead of the default.
	if err := r.db.WithContext(ctx).Select("*").Create(&row).Error; err != nil {
		return core.Student{}, fmt.Errorf("create student: %w", err)
	}
	slog.InfoContext(ctx, "Student saved to Postgres", "id", s.ID, "name", s.Name)
	return s, nil
}

func (r *Repository) UpdateStudent(ctx context.Context, id string, patch core.StudentPatch) (core.Student, error) {
	var updated core.Student
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row studentRow
		if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", core.ErrStudentNotFound, id)
			}
			return fmt.Errorf("load student: %w", err)
		}
		s, err := patch.Apply(row.toCore())
		if err != nil {
			return err
		}
		err = tx.Model(&studentRow{}).Where("id = ?", id).Updates(map[string]any{
			"name":              s.Name,
			"parent_name":       s.ParentName,
			"phone":             s.Phone,
			"class":             s.Class,
			"monthly_fee_cents": s.MonthlyFee.Cents,
			"active":            s.Active,
		}).Error
		if err != nil {
			return fmt.Errorf("update student: %w", err)
		}
		updated = s
		return nil
	})
	if err != nil {
		return core.Student{}, err
	}
	slog.InfoContext(ctx, "Student updated in Postgres", "id", id)
	return updated, nil
}

func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&studentRow{})
	if res.Error != nil {
		return fmt.Errorf("delete student: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrStudentNotFound, id)
	}
	slog.InfoContext(ctx, "Student deleted from Postgres", "id", id)
	return nil
}

func (r *Repository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	var rows []paymentRow
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]core.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
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
	row := fromPayment(p)
	if err := r.db.WithContext(ctx).Select("*").Create(&row).Error; err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment saved to Postgres",
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

// DeletePayments issues a single conditional delete.
func (r *Repository) DeletePayments(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&paymentRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete payments: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		slog.InfoContext(ctx, "Payments deleted from Postgres", "count", res.RowsAffected)
	}
	return int(res.RowsAffected), nil
}
