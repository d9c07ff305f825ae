package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/sheetimport"
	"github.com/go-chi/chi/v5"
)

// handleListTables returns the collection in order.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tables := s.ctrl.GetTableJSON()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, tables)
}

// handleAddTable adds a table. An empty body adds an empty table with the
// default name.
func (s *Server) handleAddTable(w http.ResponseWriter, r *http.Request) {
	var raw datatable.RawTable
	if err := decodeJSON(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.ctrl.Tables())
	if err := s.ctrl.AddSource(r.Context(), raw); err != nil {
		s.respondError(w, r, err)
		return
	}

	tables := s.ctrl.GetTableJSON()
	if len(tables) > before {
		added := tables[len(tables)-1]
		logging.WithTable(r.Context(), added.ID, added.Name).Info("table added")
		writeJSON(w, http.StatusCreated, added)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleGetTable returns one table.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.ctrl.GetSource(id)
	if src == nil {
		s.respondError(w, r, fmt.Errorf("get table %q: %w", id, datatable.ErrTableNotFound))
		return
	}
	writeJSON(w, http.StatusOK, src.ToJSON())
}

// handleTableIndex returns the position of a table, -1 when absent.
func (s *Server) handleTableIndex(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	index, ok := s.ctrl.GetIndex(id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusBadRequest, "missing table id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"index": index})
}

// handleRenameTable renames a table in place. The new name must not be used
// by another table.
func (s *Server) handleRenameTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.respondError(w, r, fmt.Errorf("rename %q: %w", id, datatable.ErrEmptyTableName))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, _ := s.ctrl.GetIndex(id)
	if index < 0 {
		s.respondError(w, r, fmt.Errorf("rename %q: %w", id, datatable.ErrTableNotFound))
		return
	}
	if s.host.IsDuplicatedTableName(req.Name, index) {
		s.respondError(w, r, fmt.Errorf("rename %q to %q: %w", id, req.Name, datatable.ErrDuplicateTableName))
		return
	}
	if !s.ctrl.SetTableName(id, req.Name) {
		s.respondError(w, r, fmt.Errorf("rename %q: %w", id, datatable.ErrTableNotFound))
		return
	}
	s.host.InjectTable()
	writeJSON(w, http.StatusOK, s.ctrl.GetSource(id).ToJSON())
}

// handleRemoveTable removes a table and closes its chart preview.
func (s *Server) handleRemoveTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.ctrl.GetSource(id)
	if src == nil {
		s.respondError(w, r, fmt.Errorf("remove %q: %w", id, datatable.ErrTableNotFound))
		return
	}
	if err := s.ctrl.RemoveSource(r.Context(), src); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithTable(r.Context(), id, src.Name()).Info("table removed")
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveTable reorders the collection.
func (s *Server) handleMoveTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	}
	if err := decodeJSON(r, &req); err != nil || req.From == nil || req.To == nil {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.ChangeItemPosition(r.Context(), *req.From, *req.To); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.GetTableJSON())
}

// handleExport downloads the collection as JSON or YAML.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tables := s.ctrl.GetTableJSON()
	s.mu.Unlock()

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="tables.json"`)
		if err := sheetimport.EncodeJSON(w, tables); err != nil {
			logging.FromContext(r.Context()).Error("export", "error", err)
		}
	case "yaml", "yml":
		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Content-Disposition", `attachment; filename="tables.yaml"`)
		if err := sheetimport.EncodeYAML(w, tables); err != nil {
			logging.FromContext(r.Context()).Error("export", "error", err)
		}
	default:
		writeError(w, http.StatusBadRequest, "format must be json or yaml")
	}
}

// handleImport adds every table of an uploaded xlsx, CSV, JSON or YAML file.
// A JSON request body is read as a list of tables.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := s.imports.acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.imports.release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	var (
		raws []datatable.RawTable
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			writeError(w, http.StatusBadRequest, "missing file")
			return
		}
		defer file.Close()
		raws, err = sheetimport.Read(file, header.Filename)
	} else {
		raws, err = sheetimport.DecodeJSON(r.Body)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.SetTables(r.Context(), sheetimport.Inputs(raws)); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("tables imported", "count", len(raws))
	writeJSON(w, http.StatusOK, s.ctrl.GetTableJSON())
}
