package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
)

// session resolves {sid}, writing a 404 when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *editSession {
	sess, err := s.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, "Unknown edit session", err)
		return nil
	}
	return sess
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/sessions/"+sess.id).
		JSON(sess.dto()).
		Write(w, r)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeJSON(w, r, http.StatusOK, sess.dto())
	}
}

// handleCloseSession makes the final flush and waits for it.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Remove(r.Context(), chi.URLParam(r, "sid")); err != nil {
		writeError(w, r, "Unknown edit session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBegin switches the session to another entity. The previous entity's
// flush is dispatched before the new values are loaded.
func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req BeginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid begin payload", err)
		return
	}
	kind, err := core.ParseValueKind(string(req.Kind))
	if err != nil {
		writeError(w, r, "Invalid kind", err)
		return
	}
	ref := core.EntityRef{ComponentID: req.ComponentID, Year: req.Year, Kind: kind}
	if err := sess.ctrl.Begin(r.Context(), ref); err != nil {
		writeError(w, r, "Begin edit failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, sess.dto())
}

func (s *Server) handleKeystroke(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req KeystrokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid keystroke payload", err)
		return
	}
	v, err := sess.ctrl.ApplyKeystroke(req.Month, sanitizeInput(req.Raw))
	if err != nil {
		writeError(w, r, "Apply keystroke failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, KeystrokeResponse{Month: req.Month, Value: v, Session: sess.dto()})
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid note payload", err)
		return
	}
	if err := sess.ctrl.SetNote(req.Month, sanitizeInput(req.Text)); err != nil {
		writeError(w, r, "Set note failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, sess.dto())
}

// handlePastePreview parses without touching the buffer.
func (s *Server) handlePastePreview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req PasteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid paste payload", err)
		return
	}
	res := sess.ctrl.PreviewPaste(sanitizeInput(req.Text))
	writeJSON(w, r, http.StatusOK, toClipboardDTO(res))
}

func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req PasteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid paste payload", err)
		return
	}
	res, err := sess.ctrl.ApplyPaste(sanitizeInput(req.Text), req.AnchorMonth)
	if err != nil {
		writeError(w, r, "Apply paste failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, PasteResponse{Clipboard: toClipboardDTO(res), Session: sess.dto()})
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req FillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "Invalid fill payload", err)
		return
	}
	applied, err := sess.ctrl.ApplyFillDrag(req.Source, req.Target)
	if err != nil {
		writeError(w, r, "Apply fill failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, FillResponse{Applied: applied, Session: sess.dto()})
}

// handleCommit dispatches the flush and returns without waiting for it.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.ctrl.Commit(r.Context()); err != nil {
		writeError(w, r, "Commit failed", err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, sess.dto())
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.ctrl.Discard()
	writeJSON(w, r, http.StatusOK, sess.dto())
}
