package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"havenstore/pkg/codec"
	"havenstore/pkg/logger"
	"havenstore/pkg/models"
)

// Blob is the legacy single-file backend: the whole room map lives in
// one iv|ciphertext blob and every write rewrites the file. Correct but
// serial; a store-wide mutex stands in for per-room locking because
// every mutation touches the same file.
type Blob struct {
	path string
	mu   sync.Mutex
}

func OpenBlob(path string) (*Blob, error) {
	if path == "" {
		return nil, fmt.Errorf("blob path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	b := &Blob{path: path}
	// Fail fast on a corrupt store rather than at first request.
	if _, err := b.load(); err != nil {
		return nil, err
	}
	logger.Info("blob_store_opened", "path", path)
	return b, nil
}

func (b *Blob) Close() error { return nil }

// load reads and decodes the blob. A missing file is first boot and
// yields an empty map; an undecodable file is a hard error. A legacy
// plaintext file is re-encrypted immediately.
func (b *Blob) load() (models.RoomMap, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.RoomMap{}, nil
		}
		return nil, fmt.Errorf("read store blob: %w", err)
	}
	rooms, legacy, err := codec.Decode(raw)
	if err != nil {
		CorruptDetected.Inc()
		logger.Error("store_blob_corrupt", "path", b.path, "bytes", len(raw))
		return nil, fmt.Errorf("store blob %s: %w", b.path, err)
	}
	if legacy {
		LegacyMigrations.Inc()
		logger.Warn("store_blob_legacy_plaintext", "path", b.path)
		if err := b.save(rooms); err != nil {
			return nil, fmt.Errorf("re-encrypt legacy store: %w", err)
		}
	}
	StoreLoads.Inc()
	return rooms, nil
}

// save encodes and writes the blob atomically with owner-only access.
func (b *Blob) save(rooms models.RoomMap) error {
	blob, err := codec.Encode(rooms)
	if err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("write store blob: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace store blob: %w", err)
	}
	StoreWrites.Inc()
	RoomCount.Set(float64(len(rooms)))
	return nil
}

func (b *Blob) Get(room string) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.load()
	if err != nil {
		return nil, err
	}
	msgs, removed := dedupByID(rooms[room])
	if removed > 0 {
		DedupRemoved.Add(float64(removed))
		logger.Warn("room_dedup", "room", room, "removed", removed)
		rooms[room] = msgs
		if err := b.save(rooms); err != nil {
			return nil, err
		}
	}
	return append([]models.Message(nil), msgs...), nil
}

func (b *Blob) WithRoom(room string, fn UpdateFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.load()
	if err != nil {
		return err
	}
	msgs, removed := dedupByID(rooms[room])
	if removed > 0 {
		DedupRemoved.Add(float64(removed))
	}
	next, err := fn(msgs)
	if err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	if len(next) == 0 {
		// keep the room key; rooms persist once created
		next = []models.Message{}
	}
	rooms[room] = next
	return b.save(rooms)
}

func (b *Blob) Rooms() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rooms, err := b.load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(rooms), nil
}
