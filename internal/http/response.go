package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"feeledger/internal/core"
	"feeledger/internal/ledger"
	applog "feeledger/internal/log"
)

const dateLayout = "2006-01-02"

type errorBody struct {
	Error string `json:"error"`
}

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps an error kind to its status code. Internal errors are
// logged and their detail withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case core.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case core.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		fields := applog.NewFields().WithHTTPRequest(r, false)
		s.logger.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, fields)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// amount renders money as a JSON number with two decimals.
func amount(m core.Money) json.Number {
	return json.Number(m.Decimal())
}

type studentJSON struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	ParentName string      `json:"parentName"`
	Phone      string      `json:"phone"`
	Class      string      `json:"class"`
	MonthlyFee json.Number `json:"monthlyFee"`
	Active     bool        `json:"active"`
	JoinedDate string      `json:"joinedDate"`
}

func toStudentJSON(s core.Student, loc *time.Location) studentJSON {
	return studentJSON{
		ID:         s.ID,
		Name:       s.Name,
		ParentName: s.ParentName,
		Phone:      s.Phone,
		Class:      s.Class,
		MonthlyFee: amount(s.MonthlyFee),
		Active:     s.Active,
		JoinedDate: formatDate(s.JoinedDate, loc),
	}
}

func toStudentsJSON(students []core.Student, loc *time.Location) []studentJSON {
	out := make([]studentJSON, 0, len(students))
	for _, s := range students {
		out = append(out, toStudentJSON(s, loc))
	}
	return out
}

type paymentJSON struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"studentId"`
	StudentName string      `json:"studentName,omitempty"`
	Amount      json.Number `json:"amount"`
	Months      []string    `json:"months"`
	MonthLabels []string    `json:"monthLabels"`
	PaymentDate string      `json:"paymentDate"`
	Remarks     string      `json:"remarks"`
}

func toPaymentJSON(p core.Payment, loc *time.Location) paymentJSON {
	months := make([]string, len(p.Months))
	labels := make([]string, len(p.Months))
	for i, m := range p.Months {
		months[i] = m.String()
		labels[i] = m.ShortLabel()
	}
	return paymentJSON{
		ID:          p.ID,
		StudentID:   p.StudentID,
		Amount:      amount(p.Amount),
		Months:      months,
		MonthLabels: labels,
		PaymentDate: formatDate(p.PaymentDate, loc),
		Remarks:     p.Remarks,
	}
}

func toPaymentsJSON(payments []core.Payment, loc *time.Location) []paymentJSON {
	out := make([]paymentJSON, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentJSON(p, loc))
	}
	return out
}

func toPaymentViewsJSON(views []ledger.PaymentView, loc *time.Location) []paymentJSON {
	out := make([]paymentJSON, 0, len(views))
	for _, v := range views {
		p := toPaymentJSON(v.Payment, loc)
		p.StudentName = v.StudentName
		out = append(out, p)
	}
	return out
}

type monthJSON struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Paid  bool   `json:"paid"`
}

type statsJSON struct {
	TotalStudents       int         `json:"totalStudents"`
	ActiveStudents      int         `json:"activeStudents"`
	TotalRevenue        json.Number `json:"totalRevenue"`
	CurrentMonthRevenue json.Number `json:"currentMonthRevenue"`
}

func toStatsJSON(st ledger.DashboardStats) statsJSON {
	return statsJSON{
		TotalStudents:       st.TotalStudents,
		ActiveStudents:      st.ActiveStudents,
		TotalRevenue:        amount(st.TotalRevenue),
		CurrentMonthRevenue: amount(st.CurrentMonthRevenue),
	}
}

type ledgerJSON struct {
	Student        studentJSON   `json:"student"`
	TotalPaid      json.Number   `json:"totalPaid"`
	PaidMonthCount int           `json:"paidMonthCount"`
	PaidMonths     []monthJSON   `json:"paidMonths"`
	History        []paymentJSON `json:"history"`
}

func toLedgerJSON(l ledger.Ledger, loc *time.Location) ledgerJSON {
	paid := make([]monthJSON, 0, len(l.PaidMonths))
	for _, m := range l.PaidMonths {
		paid = append(paid, monthJSON{Key: m.String(), Label: m.Label(), Paid: true})
	}
	return ledgerJSON{
		Student:        toStudentJSON(l.Student, loc),
		TotalPaid:      amount(l.TotalPaid),
		PaidMonthCount: l.PaidMonthCount,
		PaidMonths:     paid,
		History:        toPaymentsJSON(l.History, loc),
	}
}

type summaryJSON struct {
	Student         studentJSON `json:"student"`
	TotalPaid       json.Number `json:"totalPaid"`
	PaidMonthCount  int         `json:"paidMonthCount"`
	LastPaymentDate string      `json:"lastPaymentDate,omitempty"`
}

type dashboardJSON struct {
	Stats          statsJSON     `json:"stats"`
	RecentPayments []paymentJSON `json:"recentPayments"`
	Students       []summaryJSON `json:"students"`
}

// formatDate renders the calendar date of t in loc, the zone that decides
// which month a payment belongs to.
func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(dateLayout)
}
