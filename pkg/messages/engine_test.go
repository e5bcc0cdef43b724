package messages

import (
	"errors"
	"path/filepath"
	"testing"

	"havenstore/pkg/errs"
	"havenstore/pkg/models"
	"havenstore/pkg/security"
	"havenstore/pkg/store"
)

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	security.SetSecret("messages-test")
	t.Cleanup(func() { security.SetSecret("") })
	s, err := store.OpenBlob(filepath.Join(t.TempDir(), "history.bin"))
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(s, 3, 1024), s
}

func TestCreateAndGet(t *testing.T) {
	e, s := newTestEngine(t)

	m, err := e.Create("general", CreateInput{Author: "ari", Text: "hello there"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == "" || m.Timestamp == 0 {
		t.Fatalf("id/timestamp not assigned: %+v", m)
	}
	if m.Reactions == nil || m.EditHistory == nil {
		t.Fatal("maps/slices not initialized")
	}

	msgs, err := s.Get("general")
	if err != nil || len(msgs) != 1 {
		t.Fatalf("persisted: %v %+v", err, msgs)
	}
	if msgs[0].ID != m.ID {
		t.Fatal("stored id differs")
	}
}

func TestCreateRejectsEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Create("general", CreateInput{Author: "ari", Text: "   "})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestCreateAttachmentOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	m, err := e.Create("general", CreateInput{
		Author:      "ari",
		Attachments: []models.Attachment{{URL: "/u/cat.png", Name: "cat.png", Size: 512}},
	})
	if err != nil {
		t.Fatalf("attachment-only message should be valid: %v", err)
	}
	if len(m.Attachments) != 1 {
		t.Fatalf("attachment lost: %+v", m)
	}
}

func TestCreateAttachmentLimits(t *testing.T) {
	e, _ := newTestEngine(t)

	many := make([]models.Attachment, 4)
	for i := range many {
		many[i] = models.Attachment{URL: "/u/f", Name: "f", Size: 1}
	}
	if _, err := e.Create("r", CreateInput{Author: "a", Attachments: many}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("too many attachments: %v", err)
	}
	big := []models.Attachment{{URL: "/u/big", Name: "big", Size: 2048}}
	if _, err := e.Create("r", CreateInput{Author: "a", Attachments: big}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("oversized attachment: %v", err)
	}
}

func TestCallSummarySingleton(t *testing.T) {
	e, s := newTestEngine(t)

	first, err := e.Create("general", CreateInput{Author: "system", Text: "Call lasted 10m", SystemType: models.SystemCallSummary})
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Create("general", CreateInput{Author: "system", Text: "Call lasted 12m", SystemType: models.SystemCallSummary})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("second call-summary created a new message: %s vs %s", second.ID, first.ID)
	}
	if second.Text != "Call lasted 10m" {
		t.Fatalf("existing summary text overwritten: %q", second.Text)
	}
	msgs, _ := s.Get("general")
	if len(msgs) != 1 {
		t.Fatalf("room should hold one summary, got %d", len(msgs))
	}

	// after deletion a fresh one may be created
	if ok, err := e.Delete("general", first.ID); err != nil || !ok {
		t.Fatalf("delete summary: %v %v", ok, err)
	}
	third, err := e.Create("general", CreateInput{Author: "system", Text: "Call lasted 2m", SystemType: models.SystemCallSummary})
	if err != nil {
		t.Fatal(err)
	}
	if third.ID == first.ID {
		t.Fatal("recreated summary reused the old id")
	}
}

func TestEditKeepsHistoryChain(t *testing.T) {
	e, _ := newTestEngine(t)

	m, err := e.Create("general", CreateInput{Author: "ari", Text: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Edit("general", m.ID, "b"); err != nil {
		t.Fatal(err)
	}
	got, err := e.Edit("general", m.ID, "c")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "c" || !got.Edited {
		t.Fatalf("edit result: %+v", got)
	}
	hist, err := e.EditHistory("general", m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].Text != "a" || hist[1].Text != "b" {
		t.Fatalf("history chain wrong: %+v", hist)
	}
}

func TestEditCallSummaryForbidden(t *testing.T) {
	e, _ := newTestEngine(t)
	m, err := e.Create("general", CreateInput{Author: "system", Text: "summary", SystemType: models.SystemCallSummary})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Edit("general", m.ID, "rewritten"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestEditMissingMessage(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Edit("general", "nope", "x"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestReactToggles(t *testing.T) {
	e, _ := newTestEngine(t)
	m, err := e.Create("general", CreateInput{Author: "ari", Text: "react to me"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := e.React("general", m.ID, "🔥", "bo")
	if err != nil {
		t.Fatal(err)
	}
	if users := got.Reactions["🔥"]; len(users) != 1 || users[0] != "bo" {
		t.Fatalf("add reaction: %+v", got.Reactions)
	}

	got, err = e.React("general", m.ID, "🔥", "cam")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Reactions["🔥"]) != 2 {
		t.Fatalf("second reactor: %+v", got.Reactions)
	}

	// toggling off removes only that user
	got, err = e.React("general", m.ID, "🔥", "bo")
	if err != nil {
		t.Fatal(err)
	}
	if users := got.Reactions["🔥"]; len(users) != 1 || users[0] != "cam" {
		t.Fatalf("toggle off: %+v", got.Reactions)
	}

	// last reactor leaving removes the emoji key entirely
	got, err = e.React("general", m.ID, "🔥", "cam")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Reactions["🔥"]; ok {
		t.Fatalf("empty emoji key kept: %+v", got.Reactions)
	}
}

func TestPinIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	m, err := e.Create("general", CreateInput{Author: "ari", Text: "pin me"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		got, err := e.Pin("general", m.ID, true)
		if err != nil || !got.Pinned {
			t.Fatalf("pin: %v %+v", err, got)
		}
	}
	got, err := e.Pin("general", m.ID, false)
	if err != nil || got.Pinned {
		t.Fatalf("unpin: %v %+v", err, got)
	}
}

func TestDeleteReportsPresence(t *testing.T) {
	e, _ := newTestEngine(t)
	m, err := e.Create("general", CreateInput{Author: "ari", Text: "bye"})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Delete("general", m.ID)
	if err != nil || !ok {
		t.Fatalf("delete existing: %v %v", ok, err)
	}
	ok, err = e.Delete("general", m.ID)
	if err != nil || ok {
		t.Fatalf("delete absent should report false: %v %v", ok, err)
	}
}

func TestDeleteAbsentDoesNotCreateRoom(t *testing.T) {
	e, s := newTestEngine(t)

	ok, err := e.Delete("never-existed", "ghost")
	if err != nil || ok {
		t.Fatalf("delete in unknown room: %v %v", ok, err)
	}
	rooms, err := s.Rooms()
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 0 {
		t.Fatalf("failed delete materialized a room: %v", rooms)
	}
}
