// Package playground is the host editor surface the data table controller
// talks to: the block palette and the user's workspace blocks, category bans,
// the run engine's pause/stop state and redraw bookkeeping.
package playground

import (
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/google/uuid"
)

// TableLister returns the current table collection in order.
type TableLister func() []*datatable.TableSource

// EngineState is the run engine's state.
type EngineState string

const (
	EngineStopped EngineState = "stopped"
	EngineRunning EngineState = "running"
	EnginePaused  EngineState = "paused"
)

// State is a point-in-time view of the host.
type State struct {
	Engine           EngineState         `json:"engine"`
	BannedCategories []string            `json:"bannedCategories"`
	Palette          map[string][]string `json:"palette"`
	WorkspaceBlocks  int                 `json:"workspaceBlocks"`
	Reloads          int                 `json:"reloads"`
	Refreshes        int                 `json:"refreshes"`
	TableInjections  int                 `json:"tableInjections"`
}

// Host implements datatable.Playground and datatable.BlockEngine. It is safe
// for concurrent use.
type Host struct {
	mu        sync.RWMutex
	palette   map[string][]string
	banned    map[string]bool
	workspace []datatable.Block
	engine    EngineState
	category  string

	reloads    int
	refreshes  int
	injections int

	tables TableLister
	logger *slog.Logger
}

// New creates a Host with the given block palette (category -> block types).
func New(palette map[string][]string, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	p := make(map[string][]string, len(palette))
	for category, types := range palette {
		p[category] = append([]string(nil), types...)
	}
	return &Host{
		palette:  p,
		banned:   make(map[string]bool),
		engine:   EngineStopped,
		category: datatable.DefaultCategory,
		tables:   func() []*datatable.TableSource { return nil },
		logger:   logger.With("component", "playground"),
	}
}

// DefaultPalette returns the built-in table blocks of the analysis category.
func DefaultPalette() map[string][]string {
	return map[string][]string{
		datatable.DefaultCategory: {
			"append_row_to_table",
			"insert_row_to_table",
			"delete_row_from_table",
			"set_value_from_table",
			"get_table_count",
			"get_value_from_table",
			"calc_values_from_table",
			"open_table_chart",
			"close_table_chart",
		},
	}
}

// BindTables sets the source used by IsDuplicatedTableName.
func (h *Host) BindTables(l TableLister) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tables = l
}

// SetTableCategory sets the block category whose parameters refer to tables.
func (h *Host) SetTableCategory(category string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.category = category
}

// BlockTypes returns the block types of a category.
func (h *Host) BlockTypes(category string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.palette[category]...)
}

// RemoveBlockType deletes every workspace block of the given type.
func (h *Host) RemoveBlockType(blockType string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.workspace[:0]
	removed := 0
	for _, b := range h.workspace {
		if b.Type == blockType {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	h.workspace = kept
	if removed > 0 {
		h.logger.Debug("blocks removed", "type", blockType, "count", removed)
	}
}

// BanCategory hides a category from the block menu.
func (h *Host) BanCategory(category string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.banned[category] = true
}

// UnbanCategory shows a banned category again.
func (h *Host) UnbanCategory(category string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.banned, category)
}

// IsBanned reports whether a category is banned.
func (h *Host) IsBanned(category string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.banned[category]
}

// AddBlock places a block in the workspace. Blocks of a banned category are
// refused.
func (h *Host) AddBlock(b datatable.Block, category string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.banned[category] {
		return false
	}
	h.workspace = append(h.workspace, cloneBlock(b))
	return true
}

// Workspace returns the blocks of the user's program.
func (h *Host) Workspace() []datatable.Block {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]datatable.Block, len(h.workspace))
	for i, b := range h.workspace {
		out[i] = cloneBlock(b)
	}
	return out
}

// cloneBlock copies the slices of b so the workspace never shares them with
// callers.
func cloneBlock(b datatable.Block) datatable.Block {
	b.Schema.IsFor = slices.Clone(b.Schema.IsFor)
	b.Schema.IsNotFor = slices.Clone(b.Schema.IsNotFor)
	b.Params = slices.Clone(b.Params)
	return b
}

// ReloadPlayground records a full redraw.
func (h *Host) ReloadPlayground() {
	h.mu.Lock()
	h.reloads++
	h.mu.Unlock()
}

// RefreshPlayground records a light redraw.
func (h *Host) RefreshPlayground() {
	h.mu.Lock()
	h.refreshes++
	h.mu.Unlock()
}

// InjectTable refreshes the table blocks after a table changed. Block
// parameters that point at tables no longer in the collection are cleared.
func (h *Host) InjectTable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.injections++

	known := make(map[string]bool)
	for _, t := range h.tables() {
		known[t.ID()] = true
	}
	for i, b := range h.workspace {
		if len(b.Schema.IsNotFor) == 0 || b.Schema.IsNotFor[0] != h.category {
			continue
		}
		for j, p := range b.Params {
			if id, ok := p.(string); ok && looksLikeTableRef(id) && !known[id] {
				h.workspace[i].Params[j] = nil
			}
		}
	}
}

// looksLikeTableRef reports whether a block parameter is a generated table id.
func looksLikeTableRef(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsDuplicatedTableName reports whether a table other than the one at
// excludeIndex already uses name.
func (h *Host) IsDuplicatedTableName(name string, excludeIndex int) bool {
	h.mu.RLock()
	lister := h.tables
	h.mu.RUnlock()

	for i, t := range lister() {
		if i == excludeIndex || t == nil {
			continue
		}
		if t.Name() == name {
			return true
		}
	}
	return false
}

// TogglePause switches the engine between running and paused. A stopped
// engine stays stopped.
func (h *Host) TogglePause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.engine {
	case EngineRunning:
		h.engine = EnginePaused
	case EnginePaused:
		h.engine = EngineRunning
	}
	h.logger.Debug("engine pause toggled", "state", h.engine)
}

// ToggleStop starts a stopped engine and stops a running or paused one.
func (h *Host) ToggleStop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.engine == EngineStopped {
		h.engine = EngineRunning
	} else {
		h.engine = EngineStopped
	}
	h.logger.Debug("engine stop toggled", "state", h.engine)
}

// State returns a snapshot of the host.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()

	banned := make([]string, 0, len(h.banned))
	for c := range h.banned {
		banned = append(banned, c)
	}
	sort.Strings(banned)

	palette := make(map[string][]string, len(h.palette))
	for c, types := range h.palette {
		palette[c] = append([]string(nil), types...)
	}

	return State{
		Engine:           h.engine,
		BannedCategories: banned,
		Palette:          palette,
		WorkspaceBlocks:  len(h.workspace),
		Reloads:          h.reloads,
		Refreshes:        h.refreshes,
		TableInjections:  h.injections,
	}
}
