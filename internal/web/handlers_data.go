package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/web/templates"
)

var errInvalidLoadID = errors.New("invalid load id")

// exportFlushInterval is how many rows are written between flushes.
const exportFlushInterval = 500

// handleExport writes the current view as CSV, header row first, columns in
// display order.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	state := s.service.View()
	if !state.Loaded() {
		s.respondError(w, r, core.ErrNoSaveLoaded)
		return
	}

	filename := fmt.Sprintf("roster_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := writeCSV(w, state.Rows); err != nil {
		// Headers are already sent.
		logRenderError(r, err)
	}
}

// writeCSV streams records as CSV, flushing periodically.
func writeCSV(w http.ResponseWriter, rows []roster.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(roster.ColumnNames()); err != nil {
		return err
	}
	for i, rec := range rows {
		if err := cw.Write(rec.Row()); err != nil {
			return err
		}
		if (i+1)%exportFlushInterval == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// handleHistory lists recent loads. ?limit= caps the page.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context(), parseIntParam(r, "limit", core.DefaultHistoryLimit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.History(entries).Render(r.Context(), w); err != nil {
			logRenderError(r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHistoryRecords returns the records stored for one past load.
func (s *Server) handleHistoryRecords(w http.ResponseWriter, r *http.Request) {
	loadID, err := uuid.Parse(chi.URLParam(r, "loadID"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidLoadID, err))
		return
	}

	records, err := s.service.HistoryRecords(r.Context(), loadID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
