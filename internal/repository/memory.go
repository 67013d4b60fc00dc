package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/paybazaar/retailer-portal/internal/models"
)

// MemoryAudit is an in-memory audit log for tests and database-less runs
type MemoryAudit struct {
	mu     sync.RWMutex
	seq    int64
	events []models.AuditEvent
}

// NewMemoryAudit builds an empty in-memory audit log
func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (m *MemoryAudit) RecordAudit(_ context.Context, event *models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	event.ID = m.seq
	event.CreatedAt = time.Now()
	m.events = append(m.events, *event)
	return nil
}

func (m *MemoryAudit) ListAudit(_ context.Context, retailerID string, limit int) ([]models.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.AuditEvent
	for _, e := range m.events {
		if e.RetailerID == retailerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events returns every recorded event in insertion order
func (m *MemoryAudit) Events() []models.AuditEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AuditEvent(nil), m.events...)
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryFlowStore keeps flow snapshots in process memory with the same TTL
// semantics as the Redis store.
type MemoryFlowStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
	claims  map[string]time.Time
}

// NewMemoryFlowStore builds an in-memory flow store
func NewMemoryFlowStore(ttl time.Duration) *MemoryFlowStore {
	return &MemoryFlowStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry), claims: make(map[string]time.Time)}
}

func (m *MemoryFlowStore) Load(_ context.Context, kind, retailerID string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := flowKey(kind, retailerID)
	e, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if m.ttl > 0 && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return false, nil
	}
	return true, decodeFlow(e.data, out)
}

func (m *MemoryFlowStore) Save(_ context.Context, kind, retailerID string, v any) error {
	data, err := encodeFlow(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[flowKey(kind, retailerID)] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryFlowStore) Delete(_ context.Context, kind, retailerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, flowKey(kind, retailerID))
	return nil
}

// Claim takes the retailer's exclusive lock on kind for at most ttl
func (m *MemoryFlowStore) Claim(_ context.Context, kind, retailerID string, ttl time.Duration) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := claimKey(kind, retailerID)
	if expires, held := m.claims[key]; held && m.now().Before(expires) {
		return nil, false, nil
	}
	expires := m.now().Add(ttl)
	m.claims[key] = expires
	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.claims[key] == expires {
			delete(m.claims, key)
		}
	}
	return release, true, nil
}
