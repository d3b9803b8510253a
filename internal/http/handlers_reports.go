package http

import (
	"bytes"
	"fmt"
	"net/http"

	"bilancio/internal/export"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

// yearReport resolves {year} and loads its cached report. It writes the
// error response itself and returns nil on failure.
func (s *Server) yearReport(w http.ResponseWriter, r *http.Request) *services.YearReport {
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return nil
	}
	rep, err := s.budget.Report(r.Context(), year)
	if err != nil {
		writeError(w, r, "Build report failed", err)
		return nil
	}
	return rep
}

func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	kind, err := queryKind(r)
	if err != nil {
		writeError(w, r, "Invalid kind", err)
		return
	}
	rep := s.yearReport(w, r)
	if rep == nil {
		return
	}
	writeJSON(w, r, http.StatusOK, toRollupDTO(rep.Snapshot.Hierarchy, kind, rep.Rollup(kind)))
}

func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	rep := s.yearReport(w, r)
	if rep == nil {
		return
	}
	snap := rep.Snapshot
	dto := CashflowDTO{
		Year:          snap.Year,
		Anchor:        toAnchorDTO(snap.Anchor),
		Budget:        rep.BudgetCashflow,
		Actual:        rep.ActualCashflow,
		BudgetClosing: closing(rep.BudgetCashflow),
		ActualClosing: closing(rep.ActualCashflow),
		Cutoff:        toCutoffDTO(snap.Cutoff),
	}
	for m := 1; m <= 12; m++ {
		dto.Reviewed[m-1] = snap.Cutoff.Reviewed(snap.Year, m)
	}
	writeJSON(w, r, http.StatusOK, dto)
}

func (s *Server) handleVariance(w http.ResponseWriter, r *http.Request) {
	rep := s.yearReport(w, r)
	if rep == nil {
		return
	}
	writeJSON(w, r, http.StatusOK, toVarianceDTO(rep.Snapshot.Hierarchy, rep.Variance))
}

// handleExport renders the workbook into memory first so a rendering
// failure still produces a clean 500.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rep := s.yearReport(w, r)
	if rep == nil {
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, rep); err != nil {
		writeError(w, r, "Export workbook failed", err)
		return
	}

	s.logger.DebugContext(r.Context(), "Workbook exported",
		applog.FieldYear, rep.Snapshot.Year,
		applog.FieldOperation, applog.OpExport,
		"bytes", buf.Len())

	NewResponse().
		Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(rep.Snapshot.Year))).
		Bytes(export.ContentType, buf.Bytes()).
		Write(w, r)
}
