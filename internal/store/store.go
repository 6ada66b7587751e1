// Package store persists analyzed playlists so a fixed copy can be downloaded
// after the analysis page has been rendered. Records carry the original text
// plus the serialized fix list; the fixed document is rebuilt on demand rather
// than stored twice.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for unknown or expired ids.
var ErrNotFound = errors.New("store: record not found")

// Record is one stored analysis.
type Record struct {
	Name      string // original upload filename, used for the download name
	Content   string // original playlist text
	Fixes     []byte // JSON-encoded fix list
	CreatedAt time.Time
}

// Store saves and retrieves analysis records.
type Store interface {
	Put(rec Record) (id string, err error)
	Get(id string) (Record, error)
}

// Memory is an in-process Store. Used by default and in tests; records vanish
// on restart.
type Memory struct {
	mu   sync.Mutex
	recs map[string]Record
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[string]Record)}
}

func (m *Memory) Put(rec Record) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.mu.Lock()
	m.recs[id] = rec
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) Get(id string) (Record, error) {
	m.mu.Lock()
	rec, ok := m.recs[id]
	m.mu.Unlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Sweep drops records older than ttl and returns how many were removed.
func (m *Memory) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, rec := range m.recs {
		if rec.CreatedAt.Before(cutoff) {
			delete(m.recs, id)
			n++
		}
	}
	return n
}

func newID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
