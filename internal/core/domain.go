package core

import (
	"fmt"
	"strings"
	"time"
)

// UnknownStudentName is shown wherever a payment references a student
// record that no longer exists.
const UnknownStudentName = "Unknown student"

const maxTextLen = 200

type (
	Money struct {
		Cents int64
	}

	Student struct {
		ID         string
		Name       string
		ParentName string
		Phone      string
		Class      string
		MonthlyFee Money
		Active     bool
		JoinedDate time.Time
	}

	// StudentFields holds the editable attributes supplied when adding a student.
	StudentFields struct {
		Name       string
		ParentName string
		Phone      string
		Class      string
		MonthlyFee Money
	}

	// NewStudent is what the Data Access Port persists on create.
	NewStudent struct {
		StudentFields
		Active     bool
		JoinedDate time.Time
	}

	// StudentPatch carries a partial update; nil fields are left untouched.
	StudentPatch struct {
		Name       *string
		ParentName *string
		Phone      *string
		Class      *string
		MonthlyFee *Money
		Active     *bool
	}

	Payment struct {
		ID          string
		StudentID   string
		Amount      Money
		Months      []MonthKey
		PaymentDate time.Time
		Remarks     string
	}

	// NewPayment is a payment that has not been assigned an id yet.
	NewPayment struct {
		StudentID   string
		Amount      Money
		Months      []MonthKey
		PaymentDate time.Time
		Remarks     string
	}
)

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func requireText(field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("%w: %s", ErrEmptyField, field)
	}
	if len(v) > maxTextLen {
		return fmt.Errorf("%w: %s too long (max %d characters)", ErrValidation, field, maxTextLen)
	}
	return nil
}

func (f StudentFields) Validate() error {
	if err := requireText("name", f.Name); err != nil {
		return err
	}
	if err := requireText("parentName", f.ParentName); err != nil {
		return err
	}
	if err := requireText("phone", f.Phone); err != nil {
		return err
	}
	if err := requireText("class", f.Class); err != nil {
		return err
	}
	return f.MonthlyFee.Validate()
}

// Normalize trims surrounding whitespace from the text attributes.
func (f StudentFields) Normalize() StudentFields {
	f.Name = strings.TrimSpace(f.Name)
	f.ParentName = strings.TrimSpace(f.ParentName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Class = strings.TrimSpace(f.Class)
	return f
}

// Fields returns the editable attributes of s.
func (s Student) Fields() StudentFields {
	return StudentFields{
		Name:       s.Name,
		ParentName: s.ParentName,
		Phone:      s.Phone,
		Class:      s.Class,
		MonthlyFee: s.MonthlyFee,
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p StudentPatch) IsEmpty() bool {
	return p.Name == nil && p.ParentName == nil && p.Phone == nil &&
		p.Class == nil && p.MonthlyFee == nil && p.Active == nil
}

// Apply returns s with the patch merged over it. Id and joined date never change.
func (p StudentPatch) Apply(s Student) (Student, error) {
	f := s.Fields()
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.ParentName != nil {
		f.ParentName = *p.ParentName
	}
	if p.Phone != nil {
		f.Phone = *p.Phone
	}
	if p.Class != nil {
		f.Class = *p.Class
	}
	if p.MonthlyFee != nil {
		f.MonthlyFee = *p.MonthlyFee
	}
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Student{}, err
	}
	s.Name, s.ParentName, s.Phone, s.Class, s.MonthlyFee = f.Name, f.ParentName, f.Phone, f.Class, f.MonthlyFee
	if p.Active != nil {
		s.Active = *p.Active
	}
	return s, nil
}

// ContainsMonth reports whether the payment covers month k.
func (p Payment) ContainsMonth(k MonthKey) bool {
	for _, m := range p.Months {
		if m == k {
			return true
		}
	}
	return false
}

func (p NewPayment) Validate() error {
	if strings.TrimSpace(p.StudentID) == "" {
		return fmt.Errorf("%w: studentId", ErrEmptyField)
	}
	if len(p.Months) == 0 {
		return ErrEmptyMonthSelection
	}
	seen := make(map[MonthKey]struct{}, len(p.Months))
	for _, m := range p.Months {
		if _, err := ParseMonthKey(string(m)); err != nil {
			return err
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMonth, m)
		}
		seen[m] = struct{}{}
	}
	if p.PaymentDate.IsZero() {
		return ErrInvalidDate
	}
	if len(p.Remarks) > maxTextLen {
		return fmt.Errorf("%w: remarks too long (max %d characters)", ErrValidation, maxTextLen)
	}
	return p.Amount.Validate()
}
