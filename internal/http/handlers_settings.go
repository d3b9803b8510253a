package http

import "net/http"

func (s *Server) handleGetAnchor(w http.ResponseWriter, r *http.Request) {
	a, err := s.budget.CashflowAnchor(r.Context())
	if err != nil {
		writeError(w, r, "Load cashflow anchor failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAnchorDTO(a))
}

// handlePutAnchor replaces the anchor wholesale.
func (s *Server) handlePutAnchor(w http.ResponseWriter, r *http.Request) {
	var req AnchorDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid cashflow anchor payload", err)
		return
	}
	a := req.toCore()
	if err := a.Validate(); err != nil {
		writeError(w, r, "Invalid cashflow anchor", err)
		return
	}
	if err := s.budget.SetCashflowAnchor(r.Context(), a); err != nil {
		writeError(w, r, "Save cashflow anchor failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAnchorDTO(a))
}

func (s *Server) handleGetCutoff(w http.ResponseWriter, r *http.Request) {
	c, err := s.budget.ActualsCutoff(r.Context())
	if err != nil {
		writeError(w, r, "Load actuals cutoff failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCutoffDTO(c))
}

func (s *Server) handlePutCutoff(w http.ResponseWriter, r *http.Request) {
	var req CutoffDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid actuals cutoff payload", err)
		return
	}
	c := req.toCore()
	if err := c.Validate(); err != nil {
		writeError(w, r, "Invalid actuals cutoff", err)
		return
	}
	if err := s.budget.SetActualsCutoff(r.Context(), c); err != nil {
		writeError(w, r, "Save actuals cutoff failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCutoffDTO(c))
}
