// Package positions holds the authoritative field-id to box mapping for the
// template being edited. Boxes are stored in percentage space only; pixel
// boxes are produced on demand for whatever reference frame the caller has.
package positions

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
)

// DefaultBox is the pixel box given to a field that has no saved position.
var DefaultBox = geometry.Box{X: 100, Y: 100, Width: 250, Height: 40}

// PositionMap maps field ids to percentage boxes. It is the only persisted
// geometric state and serializes as {"id": {"x":..,"y":..,"width":..,"height":..}}.
type PositionMap map[string]geometry.Box

// Clone returns an independent copy.
func (m PositionMap) Clone() PositionMap {
	if m == nil {
		return PositionMap{}
	}
	return maps.Clone(m)
}

// Store is the single source of truth for field positions. There is no
// pixel-space setter other than Set, which converts before storing.
//
// The zero value is not usable; call New.
type Store struct {
	mu      sync.RWMutex
	entries PositionMap
	// natural is the frame DefaultBox is measured against. When unset the
	// caller's frame is used.
	natural geometry.Frame
}

// New returns a store seeded with a copy of initial, which must already be in
// percentage space. Use Ingest for data of unknown provenance.
func New(initial PositionMap) *Store {
	return &Store{entries: initial.Clone()}
}

// SetDefaultFrame fixes the frame DefaultBox is measured against, normally
// the template's natural image size. Defaults then come out the same no
// matter which display or export frame reaches Resolve first.
func (s *Store) SetDefaultFrame(ref geometry.Frame) {
	s.mu.Lock()
	s.natural = ref
	s.mu.Unlock()
}

// Default returns DefaultBox in percentage space: against the default frame
// when one is set, otherwise against ref. An unusable frame yields the zero
// box and false.
func (s *Store) Default(ref geometry.Frame) (geometry.Box, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultLocked(ref)
}

func (s *Store) defaultLocked(ref geometry.Frame) (geometry.Box, bool) {
	if s.natural.Valid() {
		ref = s.natural
	}
	if !ref.Valid() {
		return geometry.Zero, false
	}
	return geometry.ToPercentage(DefaultBox, ref), true
}

// Clone returns an independent store with the same entries and default frame.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Store{entries: s.entries.Clone(), natural: s.natural}
}

// Get returns the stored percentage box for id, or DefaultBox when the field
// has no entry.
func (s *Store) Get(id string) geometry.Box {
	if b, ok := s.Lookup(id); ok {
		return b
	}
	return DefaultBox
}

// Lookup returns the stored percentage box and whether one exists.
func (s *Store) Lookup(id string) (geometry.Box, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.entries[id]
	return b, ok
}

// GetAllForDisplay converts every stored box to pixels against ref. The store
// keeps no pixel cache, so call it again whenever the frame changes.
func (s *Store) GetAllForDisplay(ref geometry.Frame) map[string]geometry.Box {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]geometry.Box, len(s.entries))
	for id, b := range s.entries {
		out[id] = geometry.ToPixels(b, ref)
	}
	return out
}

// Set converts a pixel box measured against ref to percentage space and
// replaces the entry for id.
func (s *Store) Set(id string, pixel geometry.Box, ref geometry.Frame) {
	pct := geometry.ToPercentage(pixel, ref)

	s.mu.Lock()
	s.entries[id] = pct
	s.mu.Unlock()
}

// Resolve returns the pixel box for id against ref. A field without an entry
// gets the Default box, which is stored so later reads are deterministic.
func (s *Store) Resolve(id string, ref geometry.Frame) geometry.Box {
	s.mu.Lock()
	defer s.mu.Unlock()

	pct, ok := s.entries[id]
	if !ok {
		if !ref.Valid() {
			logging.Logger().Warn("cannot resolve position without a frame",
				"field", id, "frame", ref.String())
			return geometry.Zero
		}
		pct, ok = s.defaultLocked(ref)
		if !ok {
			return geometry.Zero
		}
		s.entries[id] = pct
		logging.Logger().Debug("stored default position", "field", id, "box", pct.String())
	}
	return geometry.ToPixels(pct, ref)
}

// Ingest stores a box of declared (or sniffed) space for id. Percentage input
// is stored unchanged, so ingesting the same data twice never re-converts it.
func (s *Store) Ingest(id string, b geometry.Box, space geometry.Space, ref geometry.Frame) {
	resolved := space.Resolve(b)
	pct := geometry.Normalize(b, space, ref)
	if resolved == geometry.SpacePixel {
		logging.Logger().Debug("migrated pixel position", "field", id,
			"from", b.String(), "to", pct.String(), "frame", ref.String())
	}

	s.mu.Lock()
	s.entries[id] = pct
	s.mu.Unlock()
}

// IngestAll ingests every entry of m.
func (s *Store) IngestAll(m map[string]geometry.Box, space geometry.Space, ref geometry.Frame) {
	for id, b := range m {
		s.Ingest(id, b, space, ref)
	}
}

// Remove drops the entry for id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Prune removes entries whose id is not in existing and returns the removed ids.
func (s *Store) Prune(existing []string) []string {
	keep := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		keep[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id := range s.entries {
		if _, ok := keep[id]; !ok {
			delete(s.entries, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// Snapshot returns a copy of the percentage map for persistence.
func (s *Store) Snapshot() PositionMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Clone()
}

// IDs returns the stored field ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.entries))
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MarshalJSON encodes the percentage map.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}
