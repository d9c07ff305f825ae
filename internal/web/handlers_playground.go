package web

import (
	"net/http"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/logging"
)

// handleDashboard renders the overview page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := dashboardData{
		Project: s.cfg.Editor.Project,
		Tables:  s.ctrl.GetTableJSON(),
		Editor:  s.views.Editor(),
		Engine:  s.host.State(),
	}
	if sel := s.ctrl.Selected(); sel != nil {
		data.Selected = sel.Name()
	}
	_, data.HasDraft = s.ctrl.Draft()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboard(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAddBlock places a block in the workspace.
func (s *Server) handleAddBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Block    datatable.Block `json:"block"`
		Category string          `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Block.Type == "" {
		writeError(w, http.StatusBadRequest, "invalid block")
		return
	}
	if req.Category == "" {
		req.Category = s.cfg.Editor.Category
	}

	if !s.host.AddBlock(req.Block, req.Category) {
		writeError(w, http.StatusConflict, "block category is banned")
		return
	}
	writeJSON(w, http.StatusCreated, s.host.State())
}

// handleBlockTables returns the tables the program's table blocks refer to.
// Blocks in the request body take precedence over the workspace.
func (s *Server) handleBlockTables(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocks []datatable.Block `json:"blocks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	blocks := req.Blocks
	if len(blocks) == 0 {
		blocks = s.host.Workspace()
	}

	s.mu.Lock()
	tables := s.ctrl.GetTables(blocks)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, tables)
}

// handleRemoveAllBlocks deletes every table block and bans the category.
func (s *Server) handleRemoveAllBlocks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.ctrl.RemoveAllBlocks()
	s.mu.Unlock()

	logging.FromContext(r.Context()).Info("table blocks removed")
	writeJSON(w, http.StatusOK, s.host.State())
}

// handlePlaygroundState returns the host's state.
func (s *Server) handlePlaygroundState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.State())
}

// handleUndo reverts the last collection command.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dispatcher.Undo(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.GetTableJSON())
}

// handleRedo reapplies the last undone command.
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dispatcher.Redo(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.GetTableJSON())
}

// handleSaveSnapshot stores the collection.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	s.mu.Lock()
	tables := s.ctrl.GetTableJSON()
	s.mu.Unlock()

	if err := s.snapshots.Save(r.Context(), tables); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(tables)})
}

// handleLoadSnapshot replaces the collection with the stored one.
func (s *Server) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	stored, err := s.snapshots.Load(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.ctrl.Tables() {
		if err := s.ctrl.RemoveSource(r.Context(), t); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	inputs := make([]datatable.TableInput, len(stored))
	for i, t := range stored {
		inputs[i] = datatable.RawFromJSON(t)
	}
	if err := s.ctrl.SetTables(r.Context(), inputs); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("snapshot loaded", "tables", len(stored))
	writeJSON(w, http.StatusOK, s.ctrl.GetTableJSON())
}

// handleNotifications drains the queued alerts and toasts.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notices, modalOpen := s.views.Notifier().Drain()
	writeJSON(w, http.StatusOK, map[string]any{
		"notices":   notices,
		"modalOpen": modalOpen,
	})
}
