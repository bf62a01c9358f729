package http

import (
	"net/http"

	"monea/internal/log"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	// Exports ignore pagination defaults.
	f.Limit, f.Offset = 0, 0

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := s.svc.Exports.ExportCSV(r.Context(), userID(r), f, w); err != nil {
		// Headers are already sent, log and drop the connection.
		s.logger.ErrorContext(r.Context(), "CSV export failed", log.FieldError, err)
	}
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	f.Limit, f.Offset = 0, 0

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.json"`)
	if err := s.svc.Exports.ExportJSON(r.Context(), userID(r), f, w); err != nil {
		s.logger.ErrorContext(r.Context(), "JSON export failed", log.FieldError, err)
	}
}
