// Package store persists the room -> message-list map. Two backends
// share one contract: the legacy single-blob file and a Pebble-backed
// layout with one encrypted value per room. All mutations funnel
// through WithRoom, a read-modify-write cycle held under a per-room
// lock so concurrent mutations to one room serialize while different
// rooms proceed in parallel.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"havenstore/pkg/config"
	"havenstore/pkg/models"
)

// ErrNoChange, returned from an UpdateFunc, aborts the cycle without
// persisting anything; WithRoom then returns nil. Without it a no-op
// mutation on an unknown room would materialize an empty room key.
var ErrNoChange = errors.New("no change")

// UpdateFunc receives the room's current (deduplicated) message list
// and returns the list to persist.
type UpdateFunc func(msgs []models.Message) ([]models.Message, error)

type Store interface {
	// Get returns the room's messages, deduplicated by id (first
	// occurrence wins). If duplicates were removed, the cleaned list is
	// persisted back before returning.
	Get(room string) ([]models.Message, error)
	// WithRoom applies fn to the room's list and persists the result.
	// Returning an error from fn aborts without writing.
	WithRoom(room string, fn UpdateFunc) error
	// Rooms lists all room keys, sorted.
	Rooms() ([]string, error)
	Close() error
}

// Open creates the backend selected by cfg.Storage.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "blob":
		return OpenBlob(cfg.Storage.BlobPath)
	case "", "pebble":
		return OpenPebble(cfg.Storage.DBPath, cfg.Storage.BlobPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// roomLocks hands out one mutex per room key.
type roomLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{m: make(map[string]*sync.Mutex)}
}

func (r *roomLocks) get(room string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.m[room]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.m[room] = l
	return l
}

// dedupByID removes messages repeating an earlier id, preserving first
// occurrence and order. Returns the number removed.
func dedupByID(msgs []models.Message) ([]models.Message, int) {
	if len(msgs) < 2 {
		return msgs, 0
	}
	seen := make(map[string]struct{}, len(msgs))
	out := msgs[:0]
	removed := 0
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			removed++
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out, removed
}

func sortedKeys(rooms models.RoomMap) []string {
	out := make([]string, 0, len(rooms))
	for k := range rooms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
