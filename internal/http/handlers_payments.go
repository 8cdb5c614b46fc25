package http

import (
	"net/http"

	applog "feeledger/internal/log"
	"feeledger/internal/services"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.ListPayments(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentsJSON(payments, s.location))
}

func (s *Server) handleStudentPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.StudentPayments(r.Context(), r.PathValue("studentId"))
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentsJSON(payments, s.location))
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	if err := s.validateStruct(req); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	p, err := s.ledger.RecordPayment(r.Context(), services.RecordPaymentInput{
		StudentID:   req.StudentID,
		Months:      req.Months,
		PaymentDate: req.paymentDate(s.location),
		Remarks:     req.Remarks,
	})
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.invalidate()
	s.logger.LogPaymentRecorded(r.Context(), p.ID, p.StudentID, p.Amount.Cents, len(p.Months))
	writeJSON(w, http.StatusCreated, toPaymentJSON(p, s.location))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeletePayment(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	s.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetCurrentMonth(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.ResetCurrentMonth(r.Context(), s.now())
	s.writeReset(w, r, "current-month", n, err)
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.ResetAll(r.Context())
	s.writeReset(w, r, "all", n, err)
}

func (s *Server) writeReset(w http.ResponseWriter, r *http.Request, scope string, n int, err error) {
	if err != nil {
		s.writeError(w, r, applog.OpReset, err)
		return
	}
	s.invalidate()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Payments reset",
		applog.FieldOperation, applog.OpReset, "scope", scope, "deleted", n)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}
