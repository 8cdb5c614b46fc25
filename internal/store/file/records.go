package file

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"feeledger/internal/core"
)

type document struct {
	Students []studentRecord `json:"students"`
	Payments []paymentRecord `json:"payments"`
}

type studentRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentName string `json:"parentName"`
	Phone      string `json:"phone"`
	Class      string `json:"class"`
	MonthlyFee amount `json:"monthlyFee"`
	Active     bool   `json:"active"`
	JoinedDate string `json:"joinedDate,omitempty"`
}

type paymentRecord struct {
	ID          string   `json:"id"`
	StudentID   string   `json:"studentId"`
	Amount      amount   `json:"amount"`
	Months      []string `json:"months"`
	PaymentDate string   `json:"paymentDate"`
	Remarks     string   `json:"remarks,omitempty"`
}

// amount is stored as a decimal number of rupees. Documents written by hand
// may carry it as a string, or omit it; anything non-numeric reads as zero.
type amount int64

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(core.Money{Cents: int64(a)}.Decimal()), nil
}

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || len(b) == 0 {
		*a = 0
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			*a = 0
			return nil
		}
	}
	raw = strings.TrimSpace(raw)
	cents, err := core.ParseDecimalToCents(raw)
	if err != nil {
		// Exponent forms are valid JSON numbers but not plain decimals.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f < 0 {
			*a = 0
			return nil
		}
		cents = int64(f*100 + 0.5)
	}
	*a = amount(cents)
	return nil
}

func (r studentRecord) toCore() core.Student {
	return core.Student{
		ID:         r.ID,
		Name:       r.Name,
		ParentName: r.ParentName,
		Phone:      r.Phone,
		Class:      r.Class,
		MonthlyFee: core.Money{Cents: int64(r.MonthlyFee)},
		Active:     r.Active,
		JoinedDate: parseTime(r.JoinedDate),
	}
}

func fromStudent(s core.Student) studentRecord {
	return studentRecord{
		ID:         s.ID,
		Name:       s.Name,
		ParentName: s.ParentName,
		Phone:      s.Phone,
		Class:      s.Class,
		MonthlyFee: amount(s.MonthlyFee.Cents),
		Active:     s.Active,
		JoinedDate: formatTime(s.JoinedDate),
	}
}

func (r paymentRecord) toCore() core.Payment {
	months := make([]core.MonthKey, 0, len(r.Months))
	for _, m := range r.Months {
		months = append(months, core.MonthKey(m))
	}
	return core.Payment{
		ID:          r.ID,
		StudentID:   r.StudentID,
		Amount:      core.Money{Cents: int64(r.Amount)},
		Months:      months,
		PaymentDate: parseTime(r.PaymentDate),
		Remarks:     r.Remarks,
	}
}

func fromPayment(p core.Payment) paymentRecord {
	months := make([]string, 0, len(p.Months))
	for _, m := range p.Months {
		months = append(months, string(m))
	}
	return paymentRecord{
		ID:          p.ID,
		StudentID:   p.StudentID,
		Amount:      amount(p.Amount.Cents),
		Months:      months,
		PaymentDate: formatTime(p.PaymentDate),
		Remarks:     p.Remarks,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// parseTime accepts RFC 3339 timestamps and bare dates.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
