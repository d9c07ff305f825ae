package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/logging"
)

// sessionResponse describes the editor session.
type sessionResponse struct {
	Selected string           `json:"selected,omitempty"`
	Draft    *datatable.Draft `json:"draft,omitempty"`
	Editor   EditorState      `json:"editor"`
}

func (s *Server) sessionState() sessionResponse {
	resp := sessionResponse{Editor: s.views.Editor()}
	if sel := s.ctrl.Selected(); sel != nil {
		resp.Selected = sel.ID()
	}
	if d, ok := s.ctrl.Draft(); ok {
		resp.Draft = &d
	}
	return resp
}

// handleSession returns the selected table, the pending draft and the
// editor view state.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := s.sessionState()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleSelectTable opens a table in the editor. When a draft is pending the
// request must carry ?confirm=true (save it) or ?confirm=false (discard it).
func (s *Server) handleSelectTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var table *datatable.TableSource
	if req.ID != "" {
		table = s.ctrl.GetSource(req.ID)
		if table == nil {
			s.respondError(w, r, fmt.Errorf("select %q: %w", req.ID, datatable.ErrTableNotFound))
			return
		}
	}

	if _, err := s.ctrl.SelectTable(withConfirm(r), table); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "table_id", req.ID).Debug("table selected")
	writeJSON(w, http.StatusOK, s.sessionState())
}

// handleShowEditor opens the editor.
func (s *Server) handleShowEditor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctrl.Show()
	writeJSON(w, http.StatusOK, s.sessionState())
}

// handleHideEditor closes the editor.
func (s *Server) handleHideEditor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctrl.Hide()
	writeJSON(w, http.StatusOK, s.sessionState())
}

// handleSetDraft records an unsaved edit.
func (s *Server) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	var d datatable.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctrl.SetDraft(d)
	writeJSON(w, http.StatusOK, s.sessionState())
}

// handleSubmitDraft validates and saves a draft.
func (s *Server) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	var d datatable.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.SaveTable(d); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithTable(r.Context(), d.ID, d.Title).Info("table saved")
	writeJSON(w, http.StatusOK, s.sessionState())
}

// handleEditorEvent forwards a widget event to the controller.
func (s *Server) handleEditorEvent(w http.ResponseWriter, r *http.Request) {
	var ev datatable.EditorEvent
	if err := decodeJSON(r, &ev); err != nil || ev.Kind == "" {
		writeError(w, http.StatusBadRequest, "invalid editor event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.HandleEditorEvent(r.Context(), ev); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionState())
}
