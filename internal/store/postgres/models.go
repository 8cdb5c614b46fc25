package postgres

import (
	"strings"
	"time"

	"feeledger/internal/core"
)

type studentRow struct {
	ID              string    `gorm:"column:id;type:text;primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	ParentName      string    `gorm:"column:parent_name;not null"`
	Phone           string    `gorm:"column:phone;not null"`
	Class           string    `gorm:"column:class;not null"`
	MonthlyFeeCents int64     `gorm:"column:monthly_fee_cents;not null;default:0"`
	Active          bool      `gorm:"column:active;not null;default:true"`
	JoinedDate      time.Time `gorm:"column:joined_date;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (studentRow) TableName() string { return "students" }

type paymentRow struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	StudentID   string    `gorm:"column:student_id;type:text;not null;index"`
	AmountCents int64     `gorm:"column:amount_cents;not null;default:0"`
	Months      string    `gorm:"column:months;not null;default:''"`
	PaymentDate time.Time `gorm:"column:payment_date;not null;index"`
	Remarks     string    `gorm:"column:remarks;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (paymentRow) TableName() string { return "payments" }

func (r studentRow) toCore() core.Student {
	return core.Student{
		ID:         r.ID,
		Name:       r.Name,
		ParentName: r.ParentName,
		Phone:      r.Phone,
		Class:      r.Class,
		MonthlyFee: core.Money{Cents: r.MonthlyFeeCents},
		Active:     r.Active,
		JoinedDate: r.JoinedDate,
	}
}

func fromStudent(s core.Student) studentRow {
	return studentRow{
		ID:              s.ID,
		Name:            s.Name,
		ParentName:      s.ParentName,
		Phone:           s.Phone,
		Class:           s.Class,
		MonthlyFeeCents: s.MonthlyFee.Cents,
		Active:          s.Active,
		JoinedDate:      s.JoinedDate,
	}
}

func (r paymentRow) toCore() core.Payment {
	return core.Payment{
		ID:          r.ID,
		StudentID:   r.StudentID,
		Amount:      core.Money{Cents: r.AmountCents},
		Months:      splitMonths(r.Months),
		PaymentDate: r.PaymentDate,
		Remarks:     r.Remarks,
	}
}

func fromPayment(p core.Payment) paymentRow {
	return paymentRow{
		ID:          p.ID,
		StudentID:   p.StudentID,
		AmountCents: p.Amount.Cents,
		Months:      joinMonths(p.Months),
		PaymentDate: p.PaymentDate,
		Remarks:     p.Remarks,
	}
}

func joinMonths(months []core.MonthKey) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

func splitMonths(s string) []core.MonthKey {
	out := []core.MonthKey{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, core.MonthKey(part))
		}
	}
	return out
}
