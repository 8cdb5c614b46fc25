package core

import (
	"errors"
	"testing"
	"time"
)

func validFields() StudentFields {
	return StudentFields{
		Name:       "Asha",
		ParentName: "Ravi",
		Phone:      "9876543210",
		Class:      "5",
		MonthlyFee: Money{Cents: 50000},
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected zero to be valid, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestStudentFieldsValidate(t *testing.T) {
	if err := validFields().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := []func(*StudentFields){
		func(f *StudentFields) { f.Name = "" },
		func(f *StudentFields) { f.ParentName = "   " },
		func(f *StudentFields) { f.Phone = "" },
		func(f *StudentFields) { f.Class = "" },
		func(f *StudentFields) { f.MonthlyFee = Money{Cents: -100} },
	}
	for i, m := range mutate {
		f := validFields()
		m(&f)
		err := f.Validate()
		if !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestStudentPatchApply(t *testing.T) {
	joined := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	s := Student{ID: "s1", Active: true, JoinedDate: joined}
	f := validFields()
	s.Name, s.ParentName, s.Phone, s.Class, s.MonthlyFee = f.Name, f.ParentName, f.Phone, f.Class, f.MonthlyFee

	name := "  Asha K  "
	fee := Money{Cents: 60000}
	inactive := false
	got, err := StudentPatch{Name: &name, MonthlyFee: &fee, Active: &inactive}.Apply(s)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Name != "Asha K" || got.MonthlyFee.Cents != 60000 || got.Active {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.ID != "s1" || !got.JoinedDate.Equal(joined) || got.Phone != s.Phone {
		t.Fatalf("immutable or untouched fields changed: %+v", got)
	}

	empty := ""
	if _, err := (StudentPatch{Class: &empty}).Apply(s); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
	if !(StudentPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
}

func TestNewPaymentValidate(t *testing.T) {
	good := NewPayment{
		StudentID:   "s1",
		Amount:      Money{Cents: 100000},
		Months:      []MonthKey{"2024-01", "2024-02"},
		PaymentDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		mutate func(*NewPayment)
		want   error
	}{
		{func(p *NewPayment) { p.Months = nil }, ErrEmptyMonthSelection},
		{func(p *NewPayment) { p.Months = []MonthKey{"2024-01", "2024-01"} }, ErrDuplicateMonth},
		{func(p *NewPayment) { p.Months = []MonthKey{"Jan"} }, ErrInvalidMonthKey},
		{func(p *NewPayment) { p.StudentID = "" }, ErrEmptyField},
		{func(p *NewPayment) { p.PaymentDate = time.Time{} }, ErrInvalidDate},
		{func(p *NewPayment) { p.Amount = Money{Cents: -1} }, ErrInvalidAmount},
	}
	for i, tc := range cases {
		p := good
		p.Months = append([]MonthKey(nil), good.Months...)
		tc.mutate(&p)
		if err := p.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: want %v, got %v", i, tc.want, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	if !IsNotFound(ErrStudentNotFound) || !IsNotFound(ErrPaymentNotFound) {
		t.Fatalf("not-found errors must classify as ErrNotFound")
	}
	if IsValidation(ErrStudentNotFound) {
		t.Fatalf("not-found must not classify as validation")
	}
	if !IsValidation(ErrEmptyMonthSelection) || !IsValidation(ErrStudentInactiveOrMissing) {
		t.Fatalf("mutation errors must classify as validation")
	}
}
