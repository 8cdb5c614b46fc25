package http

import (
	"net/http"

	"feeledger/internal/core"
	applog "feeledger/internal/log"
)

// handleDashboardStats serves the totals from the cache, keyed by the
// current month so a month rollover never reuses stale revenue.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	key := core.MonthOf(now).String()
	if st, ok := s.statsCache.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, toStatsJSON(st))
		return
	}
	st, err := s.ledger.DashboardStats(r.Context(), now)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	s.statsCache.Set(key, st)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, toStatsJSON(st))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	d, err := s.ledger.Dashboard(r.Context(), now)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	s.statsCache.Set(core.MonthOf(now).String(), d.Stats)

	students := make([]summaryJSON, 0, len(d.Students))
	for _, sum := range d.Students {
		out := summaryJSON{
			Student:        toStudentJSON(sum.Student, s.location),
			TotalPaid:      amount(sum.TotalPaid),
			PaidMonthCount: sum.PaidMonthCount,
		}
		if sum.LastPayment != nil {
			out.LastPaymentDate = formatDate(sum.LastPayment.PaymentDate, s.location)
		}
		students = append(students, out)
	}
	writeJSON(w, http.StatusOK, dashboardJSON{
		Stats:          toStatsJSON(d.Stats),
		RecentPayments: toPaymentViewsJSON(d.Recent, s.location),
		Students:       students,
	})
}
