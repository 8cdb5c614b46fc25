package http

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"feeledger/internal/export"
	applog "feeledger/internal/log"
)

func (s *Server) handlePaymentsXLSX(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePayments(&buf, snap.Students, snap.Payments, s.location); err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	writeWorkbook(w, fmt.Sprintf("payments-%s.xlsx", s.now().Format(dateLayout)), buf.Bytes())
}

func (s *Server) handleStudentLedgerXLSX(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	l, err := s.ledger.StudentLedger(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, l, s.location); err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	writeWorkbook(w, fmt.Sprintf("ledger-%s.xlsx", id), buf.Bytes())
}

// writeWorkbook sends b, which must already hold the complete workbook.
func writeWorkbook(w http.ResponseWriter, filename string, b []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
