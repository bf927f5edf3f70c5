package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshotData holds the in-memory settings values.
type snapshotData struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// Snapshot is an atomically replaced, read-mostly copy of the settings table.
type Snapshot struct {
	current atomic.Value // stores snapshotData
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.current.Store(snapshotData{values: map[string]json.RawMessage{}})
	return s
}

// Store replaces the snapshot contents.
func (s *Snapshot) Store(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if v == nil {
			next[key] = nil
			continue
		}
		copied := make([]byte, len(v))
		copy(copied, v)
		next[key] = copied
	}
	s.current.Store(snapshotData{updatedAt: updatedAt.UTC(), values: next})
}

// UpdatedAt returns the newest row timestamp seen by the last refresh.
func (s *Snapshot) UpdatedAt() time.Time {
	return s.load().updatedAt
}

// Value returns a copy of the raw value for key.
func (s *Snapshot) Value(key string) (json.RawMessage, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	val, ok := s.load().values[key]
	if !ok {
		return nil, false
	}
	if val == nil {
		return nil, true
	}
	copied := make([]byte, len(val))
	copy(copied, val)
	return copied, true
}

func (s *Snapshot) load() snapshotData {
	if s == nil {
		return snapshotData{values: map[string]json.RawMessage{}}
	}
	data, ok := s.current.Load().(snapshotData)
	if !ok || data.values == nil {
		return snapshotData{updatedAt: data.updatedAt, values: map[string]json.RawMessage{}}
	}
	return data
}
