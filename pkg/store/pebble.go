package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"

	"havenstore/pkg/codec"
	"havenstore/pkg/errs"
	"havenstore/pkg/logger"
	"havenstore/pkg/models"
	"havenstore/pkg/security"
)

const (
	roomKeyPrefix     = "room:"
	legacyImportedKey = "meta:legacy_imported"
)

// Pebble keeps one encrypted value per room under "room:<key>", so a
// mutation rewrites a single room instead of the whole store and rooms
// can be locked independently.
type Pebble struct {
	db    *pebble.DB
	locks *roomLocks
}

// OpenPebble opens (or creates) the database at dbPath. If a legacy
// blob file exists at legacyBlobPath and has not been imported yet, its
// rooms are migrated in once and the marker key is set.
func OpenPebble(dbPath, legacyBlobPath string) (*Pebble, error) {
	logger.Info("opening_pebble_db", "path", dbPath)
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", dbPath, "err", err)
		return nil, err
	}
	p := &Pebble{db: db, locks: newRoomLocks()}
	if err := p.importLegacy(legacyBlobPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("pebble_opened", "path", dbPath)
	return p, nil
}

func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// importLegacy migrates a pre-existing single-blob store into pebble.
// Runs once; a corrupt legacy file aborts the open so an operator can
// intervene instead of silently starting empty.
func (p *Pebble) importLegacy(blobPath string) error {
	if blobPath == "" {
		return nil
	}
	if _, closer, err := p.db.Get([]byte(legacyImportedKey)); err == nil {
		_ = closer.Close()
		return nil
	}
	raw, err := os.ReadFile(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read legacy blob: %w", err)
	}
	rooms, legacy, err := codec.Decode(raw)
	if err != nil {
		CorruptDetected.Inc()
		logger.Error("legacy_blob_corrupt", "path", blobPath)
		return fmt.Errorf("legacy blob %s: %w", blobPath, err)
	}
	for room, msgs := range rooms {
		if err := p.putRoom(room, msgs); err != nil {
			return fmt.Errorf("import room %s: %w", room, err)
		}
	}
	if err := p.db.Set([]byte(legacyImportedKey), []byte("1"), pebble.Sync); err != nil {
		return err
	}
	LegacyMigrations.Inc()
	logger.Info("legacy_blob_imported", "path", blobPath, "rooms", len(rooms), "was_plaintext", legacy)
	return nil
}

func roomKey(room string) []byte { return []byte(roomKeyPrefix + room) }

// getRoom reads and decrypts one room list. Missing key means the room
// does not exist yet.
func (p *Pebble) getRoom(room string) ([]models.Message, error) {
	v, closer, err := p.db.Get(roomKey(room))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()
	pt := append([]byte(nil), v...)
	if security.Enabled() {
		pt, err = security.Decrypt(pt)
		if err != nil {
			CorruptDetected.Inc()
			logger.Error("room_value_undecryptable", "room", room, "err", err)
			return nil, fmt.Errorf("room %s: %w", room, errs.ErrCorruptStore)
		}
	}
	var msgs []models.Message
	if err := json.Unmarshal(pt, &msgs); err != nil {
		CorruptDetected.Inc()
		return nil, fmt.Errorf("room %s: %w", room, errs.ErrCorruptStore)
	}
	StoreLoads.Inc()
	return msgs, nil
}

func (p *Pebble) putRoom(room string, msgs []models.Message) error {
	if msgs == nil {
		msgs = []models.Message{}
	}
	blob, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", room, err)
	}
	if security.Enabled() {
		blob, err = security.Encrypt(blob)
		if err != nil {
			return fmt.Errorf("encrypt room %s: %w", room, err)
		}
	}
	if err := p.db.Set(roomKey(room), blob, pebble.Sync); err != nil {
		logger.Error("room_write_failed", "room", room, "err", err)
		return err
	}
	StoreWrites.Inc()
	return nil
}

func (p *Pebble) Get(room string) ([]models.Message, error) {
	l := p.locks.get(room)
	l.Lock()
	defer l.Unlock()
	msgs, err := p.getRoom(room)
	if err != nil {
		return nil, err
	}
	deduped, removed := dedupByID(msgs)
	if removed > 0 {
		DedupRemoved.Add(float64(removed))
		logger.Warn("room_dedup", "room", room, "removed", removed)
		if err := p.putRoom(room, deduped); err != nil {
			return nil, err
		}
	}
	return append([]models.Message(nil), deduped...), nil
}

func (p *Pebble) WithRoom(room string, fn UpdateFunc) error {
	l := p.locks.get(room)
	l.Lock()
	defer l.Unlock()
	msgs, err := p.getRoom(room)
	if err != nil {
		return err
	}
	deduped, removed := dedupByID(msgs)
	if removed > 0 {
		DedupRemoved.Add(float64(removed))
	}
	next, err := fn(deduped)
	if err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return p.putRoom(room, next)
}

func (p *Pebble) Rooms() ([]string, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	prefix := []byte(roomKeyPrefix)
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		out = append(out, string(iter.Key()[len(prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	RoomCount.Set(float64(len(out)))
	return out, nil
}
