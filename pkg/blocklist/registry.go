// Package blocklist manages the process-wide persisted set of blocked
// hostnames. The registry is loaded once at startup and written through on
// every new permanent block; sessions consult it but never remove entries.
// Persistence failures degrade to an empty blocklist rather than failing the
// session.
package blocklist

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Record is the single durable document holding all blocked hostnames.
// Saves rewrite the whole record; duplicate entries across concurrent
// processes are idempotent so linearizability is not required.
type Record struct {
	Blocked   map[string]string `json:"blocked" firestore:"blocked"`
	UpdatedAt time.Time         `json:"updated_at" firestore:"updated_at"`
}

// Store loads and saves the full registry record.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
}

// Registry is the in-memory view of the persisted record with write-through
// semantics. It is safe for concurrent use.
type Registry struct {
	store  Store
	logger *zap.Logger

	mu  sync.RWMutex
	rec Record
}

// NewRegistry loads the persisted record through the given store. A load
// failure is logged and treated as an empty blocklist.
func NewRegistry(ctx context.Context, store Store, logger *zap.Logger) *Registry {
	r := &Registry{
		store:  store,
		logger: logger,
		rec:    Record{Blocked: make(map[string]string)},
	}

	rec, err := store.Load(ctx)
	if err != nil {
		logger.Warn("failed to load domain blocklist, starting empty", zap.Error(err))
		return r
	}
	if rec.Blocked != nil {
		r.rec = rec
	}
	return r
}

// Block records a permanent block for the hostname and writes the registry
// through to stable storage. Re-blocking an already blocked hostname is a
// no-op save-wise.
func (r *Registry) Block(ctx context.Context, hostname, reason string) {
	if hostname == "" {
		return
	}

	r.mu.Lock()
	if _, exists := r.rec.Blocked[hostname]; exists {
		r.mu.Unlock()
		return
	}
	r.rec.Blocked[hostname] = reason
	r.rec.UpdatedAt = time.Now()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if err := r.store.Save(ctx, snapshot); err != nil {
		r.logger.Warn("failed to persist domain blocklist",
			zap.String("hostname", hostname), zap.Error(err))
	}
	r.logger.Info("permanently blocked domain",
		zap.String("hostname", hostname), zap.String("reason", reason))
}

// Contains reports whether the hostname is permanently blocked.
func (r *Registry) Contains(hostname string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rec.Blocked[hostname]
	return ok
}

// Hostnames returns the blocked hostnames in sorted order.
func (r *Registry) Hostnames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hosts := make([]string, 0, len(r.rec.Blocked))
	for h := range r.rec.Blocked {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Entries returns a copy of the hostname -> reason map.
func (r *Registry) Entries() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make(map[string]string, len(r.rec.Blocked))
	for h, reason := range r.rec.Blocked {
		entries[h] = reason
	}
	return entries
}

// Clear empties the registry and persists the empty record. This is the only
// way persisted blocks are ever removed.
func (r *Registry) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.rec = Record{Blocked: make(map[string]string), UpdatedAt: time.Now()}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.store.Save(ctx, snapshot)
}

func (r *Registry) snapshotLocked() Record {
	blocked := make(map[string]string, len(r.rec.Blocked))
	for h, reason := range r.rec.Blocked {
		blocked[h] = reason
	}
	return Record{Blocked: blocked, UpdatedAt: r.rec.UpdatedAt}
}
