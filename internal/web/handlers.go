package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/web/templates"
)

// handleIndex renders the roster page with the current view.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(s.service.View()).Render(r.Context(), w); err != nil {
		logRenderError(r, err)
	}
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string                 `json:"status"`
	Loaded  bool                   `json:"loaded"`
	Loads   core.LoadLimiterStatus `json:"loads"`
	History bool                   `json:"history"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Loaded:  s.service.Current() != nil,
		Loads:   s.service.LimiterStatus(),
		History: s.service.HistoryEnabled(),
	})
}

// handleView returns the current view.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.service.View())
}

// handleColumns returns the display schema.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Columns())
}

// handleSort toggles the sort on a column. Selecting the active column
// flips its direction; any other column sorts ascending.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.SortBy(chi.URLParam(r, "column"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondState(w, r, state)
}

// handleSetFilters replaces the filter controls.
func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	in, err := parseFilterInput(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	filters, err := core.ParseFilters(in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	state, err := s.service.SetFilters(filters)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondState(w, r, state)
}

// handleClearFilters removes every filter.
func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.ClearFilters()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondState(w, r, state)
}

// respondState sends the table partial to HTMX and JSON to everyone else.
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, state core.ViewState) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Table(state).Render(r.Context(), w); err != nil {
			logRenderError(r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, state)
}
