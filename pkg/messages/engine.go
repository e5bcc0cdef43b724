// Package messages implements the per-message operations: create,
// delete, edit with history, reaction toggling and pinning. Every
// mutation runs inside a single store.WithRoom cycle.
package messages

import (
	"fmt"
	"strings"
	"time"

	"havenstore/pkg/errs"
	"havenstore/pkg/logger"
	"havenstore/pkg/models"
	"havenstore/pkg/store"
	"havenstore/pkg/utils"
)

type Engine struct {
	store              store.Store
	maxAttachments     int
	maxAttachmentBytes int64
}

func NewEngine(s store.Store, maxAttachments int, maxAttachmentBytes int64) *Engine {
	if maxAttachments <= 0 {
		maxAttachments = 10
	}
	if maxAttachmentBytes <= 0 {
		maxAttachmentBytes = 25 << 20
	}
	return &Engine{store: s, maxAttachments: maxAttachments, maxAttachmentBytes: maxAttachmentBytes}
}

// CreateInput carries everything a new message may hold. Poll, when
// set, must already be validated and built; it attaches only at
// creation time.
type CreateInput struct {
	Author      string
	Text        string
	ReplyToID   string
	SystemType  string
	Attachments []models.Attachment
	Poll        *models.Poll
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// Create appends a new message to the room. For call-summary messages
// the room is checked first: if one already exists it is returned
// unchanged and nothing new is written.
func (e *Engine) Create(room string, in CreateInput) (models.Message, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Attachments) == 0 && in.Poll == nil {
		return models.Message{}, fmt.Errorf("%w: empty message", errs.ErrValidation)
	}
	if len(in.Attachments) > e.maxAttachments {
		return models.Message{}, fmt.Errorf("%w: too many attachments (max %d)", errs.ErrValidation, e.maxAttachments)
	}
	for _, a := range in.Attachments {
		if a.Size > e.maxAttachmentBytes {
			return models.Message{}, fmt.Errorf("%w: attachment %q exceeds %d bytes", errs.ErrValidation, a.Name, e.maxAttachmentBytes)
		}
	}

	var out models.Message
	err := e.store.WithRoom(room, func(msgs []models.Message) ([]models.Message, error) {
		if in.SystemType == models.SystemCallSummary {
			for _, m := range msgs {
				if m.SystemType == models.SystemCallSummary {
					out = m
					return nil, store.ErrNoChange
				}
			}
		}
		out = models.Message{
			ID:          utils.GenID(),
			User:        in.Author,
			Text:        in.Text,
			Timestamp:   nowMillis(),
			ReplyToID:   in.ReplyToID,
			Reactions:   map[string][]string{},
			Attachments: in.Attachments,
			EditHistory: []models.EditEntry{},
			SystemType:  in.SystemType,
			Poll:        in.Poll,
		}
		return append(msgs, out), nil
	})
	if err != nil {
		return models.Message{}, err
	}
	logger.Info("message_created", "room", room, "id", out.ID, "author", in.Author, "system", in.SystemType)
	return out, nil
}

// Delete removes the message if present and reports whether it did.
// Deleting a call-summary message is allowed.
func (e *Engine) Delete(room, id string) (bool, error) {
	removed := false
	err := e.store.WithRoom(room, func(msgs []models.Message) ([]models.Message, error) {
		out := msgs[:0]
		for _, m := range msgs {
			if m.ID == id {
				removed = true
				continue
			}
			out = append(out, m)
		}
		if !removed {
			// nothing to write; in particular the room key must not be
			// created for a room that never existed
			return nil, store.ErrNoChange
		}
		return out, nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		logger.Info("message_deleted", "room", room, "id", id)
	}
	return removed, nil
}

// Edit replaces the message text, snapshotting the previous text into
// editHistory first. Call-summary messages are immutable via edit.
func (e *Engine) Edit(room, id, newText string) (models.Message, error) {
	var out models.Message
	err := e.store.WithRoom(room, func(msgs []models.Message) ([]models.Message, error) {
		i := indexByID(msgs, id)
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		if msgs[i].SystemType == models.SystemCallSummary {
			return nil, fmt.Errorf("%w: call-summary messages cannot be edited", errs.ErrForbidden)
		}
		msgs[i].EditHistory = append(msgs[i].EditHistory, models.EditEntry{
			Text:      msgs[i].Text,
			Timestamp: nowMillis(),
		})
		msgs[i].Text = newText
		msgs[i].Edited = true
		out = msgs[i]
		return msgs, nil
	})
	if err != nil {
		return models.Message{}, err
	}
	logger.Info("message_edited", "room", room, "id", id)
	return out, nil
}

// React toggles the user's presence under the emoji. The emoji key is
// removed entirely when its last reactor leaves.
func (e *Engine) React(room, id, emoji, user string) (models.Message, error) {
	var out models.Message
	err := e.store.WithRoom(room, func(msgs []models.Message) ([]models.Message, error) {
		i := indexByID(msgs, id)
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		if msgs[i].Reactions == nil {
			msgs[i].Reactions = map[string][]string{}
		}
		users := msgs[i].Reactions[emoji]
		if j := indexOf(users, user); j >= 0 {
			users = append(users[:j], users[j+1:]...)
			if len(users) == 0 {
				delete(msgs[i].Reactions, emoji)
			} else {
				msgs[i].Reactions[emoji] = users
			}
		} else {
			msgs[i].Reactions[emoji] = append(users, user)
		}
		out = msgs[i]
		return msgs, nil
	})
	if err != nil {
		return models.Message{}, err
	}
	return out, nil
}

// Pin sets the pinned flag unconditionally; repeat calls are no-ops.
func (e *Engine) Pin(room, id string, pinned bool) (models.Message, error) {
	var out models.Message
	err := e.store.WithRoom(room, func(msgs []models.Message) ([]models.Message, error) {
		i := indexByID(msgs, id)
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		msgs[i].Pinned = pinned
		out = msgs[i]
		return msgs, nil
	})
	if err != nil {
		return models.Message{}, err
	}
	return out, nil
}

// EditHistory returns the pre-edit snapshots for a message.
func (e *Engine) EditHistory(room, id string) ([]models.EditEntry, error) {
	msgs, err := e.store.Get(room)
	if err != nil {
		return nil, err
	}
	i := indexByID(msgs, id)
	if i < 0 {
		return nil, errs.ErrNotFound
	}
	return append([]models.EditEntry(nil), msgs[i].EditHistory...), nil
}

func indexByID(msgs []models.Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}
