// Package configstore implements the 1.6-style ConfigurationKey store
// (§3 ConfigurationKey) that also serves as the single persistence layer
// backing the 2.0.1 Variable Manager's Persistent variables (§4.F).
package configstore

import "sync"

// Key is one configuration entry. Order of insertion is preserved for
// GetConfiguration-style full dumps; lookup by Key is unique.
type Key struct {
	Key      string
	Value    string
	ReadOnly bool
	Visible  bool
	Reboot   bool
}

// Store is a station-scoped configuration key/value table. Only the
// owning station's single logical thread of control mutates it (§5); the
// mutex exists for the diagnostics surface's read-only access.
type Store struct {
	mu     sync.RWMutex
	order  []string
	byKey  map[string]*Key
}

// New creates an empty Store.
func New() *Store {
	return &Store{byKey: make(map[string]*Key)}
}

// Seed installs an initial entry, used when loading a Template's
// Configuration list or a VariableRecord default at startup self-check.
// Existing entries are left untouched (first write wins).
func (s *Store) Seed(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[k.Key]; ok {
		return
	}
	cp := k
	s.byKey[k.Key] = &cp
	s.order = append(s.order, k.Key)
}

// Get returns the entry for key and whether it exists.
func (s *Store) Get(key string) (Key, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byKey[key]
	if !ok {
		return Key{}, false
	}
	return *k, true
}

// Set writes value to an existing key, returning false if the key is
// unknown (NotSupported) or readonly (Rejected) — callers make that
// distinction with Exists; Set itself refuses both alike.
func (s *Store) Set(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.byKey[key]
	if !ok || k.ReadOnly {
		return false
	}
	k.Value = value
	return true
}

// Exists reports whether key is known, regardless of readonly/visibility.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[key]
	return ok
}

// All returns every entry in insertion order (for GetConfiguration with
// no keys requested).
func (s *Store) All() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Key, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}

// SetMirrored writes the same value under two aliases, used for the
// HeartBeatInterval/HeartbeatInterval vendor-compatibility special case
// in §4.D/§4.E.
func (s *Store) SetMirrored(primary, alias, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{primary, alias} {
		k, ok := s.byKey[key]
		if !ok {
			k = &Key{Key: key, Visible: true}
			s.byKey[key] = k
			s.order = append(s.order, key)
		}
		k.Value = value
	}
}
