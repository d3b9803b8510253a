package http

import (
	"net/http"

	"bilancio/internal/core"
)

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	sections, err := s.budget.Hierarchy(r.Context())
	if err != nil {
		writeError(w, r, "Load hierarchy failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toHierarchyDTO(sections))
}

func (s *Server) handleGetValues(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return
	}
	kind, err := queryKind(r)
	if err != nil {
		writeError(w, r, "Invalid kind", err)
		return
	}

	values, err := s.budget.Values(r.Context(), kind, year)
	if err != nil {
		writeError(w, r, "Load values failed", err)
		return
	}
	if values == nil {
		values = map[core.ComponentID]core.Months{}
	}
	writeJSON(w, r, http.StatusOK, ValuesDTO{Year: year, Kind: kind, Components: values})
}

// handlePutValues upserts a sparse payload; months not named keep their
// stored value.
func (s *Server) handlePutValues(w http.ResponseWriter, r *http.Request) {
	id, err := pathComponentID(r)
	if err != nil {
		writeError(w, r, "Invalid component", err)
		return
	}
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return
	}
	kind, err := queryKind(r)
	if err != nil {
		writeError(w, r, "Invalid kind", err)
		return
	}

	var req UpsertValuesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid values payload", err)
		return
	}
	if err := core.ValidateMonthKeys(req.Values); err != nil {
		writeError(w, r, "Invalid values payload", err)
		return
	}

	if err := s.budget.UpsertValues(r.Context(), kind, id, year, req.Values); err != nil {
		writeError(w, r, "Save values failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return
	}
	notes, err := s.budget.Notes(r.Context(), year)
	if err != nil {
		writeError(w, r, "Load notes failed", err)
		return
	}
	if notes == nil {
		notes = map[core.ComponentID]core.MonthNotes{}
	}
	writeJSON(w, r, http.StatusOK, NotesDTO{Year: year, Components: notes})
}

// handlePutNotes upserts notes; a blank text deletes that month's note.
func (s *Server) handlePutNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathComponentID(r)
	if err != nil {
		writeError(w, r, "Invalid component", err)
		return
	}
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return
	}

	var req UpsertNotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid notes payload", err)
		return
	}
	if err := core.ValidateMonthKeys(req.Notes); err != nil {
		writeError(w, r, "Invalid notes payload", err)
		return
	}
	notes := make(map[int]string, len(req.Notes))
	for month, text := range req.Notes {
		notes[month] = sanitizeInput(text)
	}

	if err := s.budget.UpsertNotes(r.Context(), id, year, notes); err != nil {
		writeError(w, r, "Save notes failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
