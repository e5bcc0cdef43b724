package store

import (
	"errors"
	"path/filepath"
	"testing"

	"havenstore/pkg/config"
	"havenstore/pkg/models"
	"havenstore/pkg/security"
)

// openBackends builds one store per backend over fresh temp paths, so
// every contract test runs against both.
func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	security.SetSecret("store-test")
	t.Cleanup(func() { security.SetSecret("") })

	blob, err := OpenBlob(filepath.Join(t.TempDir(), "history.bin"))
	if err != nil {
		t.Fatalf("open blob: %v", err)
	}
	peb, err := OpenPebble(filepath.Join(t.TempDir(), "db"), "")
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = blob.Close(); _ = peb.Close() })
	return map[string]Store{"blob": blob, "pebble": peb}
}

func TestRoundTrip(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.WithRoom("general", func(msgs []models.Message) ([]models.Message, error) {
				return append(msgs, models.Message{ID: "m1", User: "ari", Text: "hello", Timestamp: 1}), nil
			})
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			msgs, err := s.Get("general")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(msgs) != 1 || msgs[0].Text != "hello" {
				t.Fatalf("unexpected messages: %+v", msgs)
			}
		})
	}
}

func TestGetMissingRoomIsEmpty(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			msgs, err := s.Get("never-written")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(msgs) != 0 {
				t.Fatalf("expected empty, got %+v", msgs)
			}
		})
	}
}

func TestDedupByIDPersists(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.WithRoom("dups", func(msgs []models.Message) ([]models.Message, error) {
				return []models.Message{
					{ID: "a", Text: "first"},
					{ID: "b", Text: "other"},
					{ID: "a", Text: "duplicate"},
				}, nil
			})
			if err != nil {
				t.Fatalf("seed: %v", err)
			}
			msgs, err := s.Get("dups")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(msgs) != 2 {
				t.Fatalf("dedup failed: %+v", msgs)
			}
			// first occurrence wins
			if msgs[0].Text != "first" || msgs[1].ID != "b" {
				t.Fatalf("wrong survivors: %+v", msgs)
			}
			// cleaned list was written back
			again, err := s.Get("dups")
			if err != nil {
				t.Fatalf("re-get: %v", err)
			}
			if len(again) != 2 {
				t.Fatalf("dedup not persisted: %+v", again)
			}
		})
	}
}

func TestWithRoomErrorAborts(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed := func() error {
				return s.WithRoom("r", func(msgs []models.Message) ([]models.Message, error) {
					return append(msgs, models.Message{ID: "keep"}), nil
				})
			}
			if err := seed(); err != nil {
				t.Fatal(err)
			}
			boom := errors.New("boom")
			err := s.WithRoom("r", func(msgs []models.Message) ([]models.Message, error) {
				return nil, boom
			})
			if err == nil {
				t.Fatal("expected error from fn to propagate")
			}
			msgs, err := s.Get("r")
			if err != nil {
				t.Fatal(err)
			}
			if len(msgs) != 1 || msgs[0].ID != "keep" {
				t.Fatalf("aborted update still wrote: %+v", msgs)
			}
		})
	}
}

func TestWithRoomNoChangeSkipsWrite(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.WithRoom("phantom", func(msgs []models.Message) ([]models.Message, error) {
				return nil, ErrNoChange
			})
			if err != nil {
				t.Fatalf("ErrNoChange must not surface: %v", err)
			}
			rooms, err := s.Rooms()
			if err != nil {
				t.Fatal(err)
			}
			if len(rooms) != 0 {
				t.Fatalf("no-op update materialized a room: %v", rooms)
			}
		})
	}
}

func TestRoomsSorted(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, room := range []string{"zeta", "alpha", "acme__general"} {
				err := s.WithRoom(room, func(msgs []models.Message) ([]models.Message, error) {
					return append(msgs, models.Message{ID: room + "-1"}), nil
				})
				if err != nil {
					t.Fatal(err)
				}
			}
			rooms, err := s.Rooms()
			if err != nil {
				t.Fatal(err)
			}
			want := []string{"acme__general", "alpha", "zeta"}
			if len(rooms) != len(want) {
				t.Fatalf("rooms: %v", rooms)
			}
			for i := range want {
				if rooms[i] != want[i] {
					t.Fatalf("rooms out of order: %v", rooms)
				}
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "etcd"
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
