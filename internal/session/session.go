// Package session keeps per-viewer filter state outside the core: the filter a
// viewer last applied, what they have staged since, and the view it produced.
package session

import (
	"sync"
	"time"

	"orderdash/internal/orders"
	"orderdash/internal/pipeline"
	"orderdash/pkg/models"
)

// Session is one viewer's filter state over a shared dense table.
type Session struct {
	ID string

	mu       sync.Mutex
	dataset  pipeline.Dataset
	defaults models.FilterSpec
	applied  models.FilterSpec
	staged   models.FilterSpec
	dirty    bool
	view     pipeline.Result
	lastSeen time.Time
}

// View is a copy of a session's state safe to hand to renderers.
type View struct {
	pipeline.Result
	Defaults models.FilterSpec `json:"defaults"`
	Staged   models.FilterSpec `json:"staged"`
	Dirty    bool              `json:"filters_changed"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// New starts a session on ds with the default filter applied.
func New(id string, ds pipeline.Dataset) *Session {
	s := &Session{ID: id, lastSeen: time.Now()}
	s.load(ds, true)
	return s
}

func (s *Session) load(ds pipeline.Dataset, reset bool) {
	s.dataset = ds
	s.defaults = orders.DefaultSpec(ds.Rows)
	if reset {
		s.applied = s.defaults
		s.staged = s.defaults
		s.dirty = false
	}
	s.view = pipeline.Evaluate(ds.Rows, s.applied)
}

// Sync swaps in a freshly loaded dataset, keeping the applied filter. It is a
// no-op when ds is the dataset the session already holds.
func (s *Session) Sync(ds pipeline.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	if ds.LoadedAt.Equal(s.dataset.LoadedAt) && len(ds.Rows) == len(s.dataset.Rows) {
		return
	}
	s.load(ds, false)
}

// Stage records spec as the pending selection and reports whether it differs
// from the applied one.
func (s *Session) Stage(spec models.FilterSpec) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = models.NewFilterSpec(spec.StartDate, spec.EndDate, spec.Warehouses)
	s.dirty = !s.staged.Equal(s.applied)
	return s.dirty
}

// Apply makes the staged filter current and recomputes the view when it changed.
func (s *Session) Apply() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty {
		s.applied = s.staged
		s.view = pipeline.Evaluate(s.dataset.Rows, s.applied)
		s.dirty = false
	}
	return s.snapshot()
}

// Reset restores the default filter.
func (s *Session) Reset() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applied = s.defaults
	s.staged = s.defaults
	s.dirty = false
	s.view = pipeline.Evaluate(s.dataset.Rows, s.applied)
	return s.snapshot()
}

// Snapshot returns the current view without changing state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Dirty reports whether a staged filter is waiting to be applied.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) snapshot() View {
	return View{
		Result:   s.view,
		Defaults: s.defaults,
		Staged:   s.staged,
		Dirty:    s.dirty,
		LoadedAt: s.dataset.LoadedAt,
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
