// Package export renders ledgers and payment lists as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"feeledger/internal/core"
	"feeledger/internal/ledger"
)

const (
	paymentsSheet = "Payments"
	ledgerSheet   = "Ledger"
	dateLayout    = "2006-01-02"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var paymentHeader = []any{"Payment date", "Student", "Months", "Amount", "Remarks", "Payment ID"}

// WritePayments writes every payment, newest first, joined with student
// names. Dates are rendered in loc.
func WritePayments(w io.Writer, students []core.Student, payments []core.Payment, loc *time.Location) error {
	f, err := PaymentsWorkbook(students, payments, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f, w)
}

// WriteLedger writes one student's ledger with dates rendered in loc.
func WriteLedger(w io.Writer, l ledger.Ledger, loc *time.Location) error {
	f, err := LedgerWorkbook(l, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f, w)
}

// PaymentsWorkbook builds the payments workbook. Callers must Close it.
func PaymentsWorkbook(students []core.Student, payments []core.Payment, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), paymentsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	s := sheet{f: f, name: paymentsSheet, next: 1}
	s.row(paymentHeader...)
	for _, v := range ledger.RecentPaymentViews(students, payments, len(payments)) {
		s.row(formatDate(v.Payment.PaymentDate, loc), v.StudentName, monthsLabel(v.Payment.Months), v.Payment.Amount.Rupees(), v.Payment.Remarks, v.Payment.ID)
	}
	s.row()
	s.row("Total", "", "", sumAmounts(payments).Rupees())
	s.finish(1, len(paymentHeader))
	if s.err != nil {
		f.Close()
		return nil, s.err
	}
	return f, nil
}

// LedgerWorkbook builds a single-student ledger workbook. Callers must Close it.
func LedgerWorkbook(l ledger.Ledger, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ledgerSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	st := l.Student
	status := "Active"
	if !st.Active {
		status = "Inactive"
	}
	s := sheet{f: f, name: ledgerSheet, next: 1}
	s.row("Student", st.Name)
	s.row("Parent", st.ParentName)
	s.row("Phone", st.Phone)
	s.row("Class", st.Class)
	s.row("Monthly fee", st.MonthlyFee.Rupees())
	s.row("Status", status)
	s.row("Total paid", l.TotalPaid.Rupees())
	s.row("Months paid", l.PaidMonthCount)
	s.row()
	headerRow := s.next
	s.row("Payment date", "Months", "Amount", "Remarks")
	for _, p := range l.History {
		s.row(formatDate(p.PaymentDate, loc), monthsLabel(p.Months), p.Amount.Rupees(), p.Remarks)
	}
	s.finish(headerRow, 4)
	if s.err != nil {
		f.Close()
		return nil, s.err
	}
	return f, nil
}

// sheet appends rows and keeps the first error.
type sheet struct {
	f    *excelize.File
	name string
	next int
	err  error
}

func (s *sheet) row(values ...any) {
	if s.err != nil {
		return
	}
	if len(values) > 0 {
		cell, err := excelize.CoordinatesToCellName(1, s.next)
		if err != nil {
			s.err = err
			return
		}
		if err := s.f.SetSheetRow(s.name, cell, &values); err != nil {
			s.err = fmt.Errorf("write row %d: %w", s.next, err)
			return
		}
	}
	s.next++
}

// finish bolds the header row and widens the used columns.
func (s *sheet) finish(headerRow, cols int) {
	if s.err != nil {
		return
	}
	style, err := s.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		s.err = fmt.Errorf("create header style: %w", err)
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(cols, headerRow)
	if err := s.f.SetCellStyle(s.name, first, last, style); err != nil {
		s.err = fmt.Errorf("style header: %w", err)
		return
	}
	lastCol, _ := excelize.ColumnNumberToName(cols)
	if err := s.f.SetColWidth(s.name, "A", lastCol, 20); err != nil {
		s.err = fmt.Errorf("set column width: %w", err)
	}
}

func write(f *excelize.File, w io.Writer) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}

func monthsLabel(months []core.MonthKey) string {
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.ShortLabel()
	}
	return strings.Join(labels, ", ")
}

func sumAmounts(payments []core.Payment) core.Money {
	var total core.Money
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
