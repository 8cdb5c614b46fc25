package http

import (
	"net/http"
	"strconv"

	"feeledger/internal/core"
	applog "feeledger/internal/log"
)

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	students, err := s.ledger.ListStudents(r.Context(), activeOnly)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentsJSON(students, s.location))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	if err := s.validateStruct(req); err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	fields, joined, err := req.fields(s.location)
	if err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	st, err := s.ledger.AddStudent(r.Context(), fields, joined)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.invalidate()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Student added", applog.FieldStudentID, st.ID)
	writeJSON(w, http.StatusCreated, toStudentJSON(st, s.location))
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req updateStudentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	st, err := s.ledger.UpdateStudent(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, toStudentJSON(st, s.location))
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	id := r.PathValue("id")
	var (
		st  core.Student
		err error
	)
	if req.Active == nil {
		st, err = s.ledger.ToggleStudentActive(r.Context(), id)
	} else {
		st, err = s.ledger.SetStudentActive(r.Context(), id, *req.Active)
	}
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, toStudentJSON(st, s.location))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteStudent(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	s.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStudentLedger(w http.ResponseWriter, r *http.Request) {
	l, err := s.ledger.StudentLedger(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerJSON(l, s.location))
}

func (s *Server) handleMonthOptions(w http.ResponseWriter, r *http.Request) {
	choices, err := s.ledger.MonthOptions(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	out := make([]monthJSON, 0, len(choices))
	for _, c := range choices {
		out = append(out, monthJSON{Key: c.Key.String(), Label: c.Label, Paid: c.Paid})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStudentDues(w http.ResponseWriter, r *http.Request) {
	dues, err := s.ledger.StudentDues(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	months := make([]monthJSON, 0, len(dues.Months))
	for _, m := range dues.Months {
		months = append(months, monthJSON{Key: m.String(), Label: m.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"studentId": dues.StudentID,
		"months":    months,
		"amount":    amount(dues.Amount),
	})
}
