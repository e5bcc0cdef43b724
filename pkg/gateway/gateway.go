// Package gateway dispatches inbound mutation requests to the message
// and poll engines, applying the permission and rate checks supplied by
// the host. Authentication happens upstream: the username reaching this
// package is trusted.
package gateway

import (
	"fmt"
	"time"

	"havenstore/pkg/errs"
	"havenstore/pkg/logger"
	"havenstore/pkg/messages"
	"havenstore/pkg/models"
	"havenstore/pkg/polls"
	"havenstore/pkg/store"
)

// Actions accepted in MutationRequest. An absent action creates a plain
// message from Msg.
const (
	ActionCreate     = ""
	ActionDelete     = "delete"
	ActionEdit       = "edit"
	ActionReact      = "react"
	ActionPin        = "pin"
	ActionHistory    = "history"
	ActionCreatePoll = "create_poll"
	ActionPollVote   = "poll_vote"
)

type MutationRequest struct {
	Room      string      `json:"room"`
	Action    string      `json:"action,omitempty"`
	MessageID string      `json:"messageId,omitempty"`
	NewText   string      `json:"newText,omitempty"`
	Emoji     string      `json:"emoji,omitempty"`
	Pin       *bool       `json:"pin,omitempty"`
	Msg       *NewMessage `json:"msg,omitempty"`

	// poll_vote payload
	OptionID  string   `json:"optionId,omitempty"`
	OptionIDs []string `json:"optionIds,omitempty"`
	Text      string   `json:"text,omitempty"`
	Rating    int      `json:"rating,omitempty"`
}

type NewMessage struct {
	Text        string              `json:"text"`
	ReplyToID   string              `json:"replyToId,omitempty"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	SystemType  string              `json:"systemType,omitempty"`
	Poll        *polls.Spec         `json:"poll,omitempty"`
}

type MutationResult struct {
	Success bool                     `json:"success"`
	Message *models.SanitizedMessage `json:"message,omitempty"`
	History []models.EditEntry       `json:"history,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

type Gateway struct {
	store     store.Store
	messages  *messages.Engine
	polls     *polls.Engine
	perms     Permissions
	limiter   RateLimiter
	broadcast Broadcaster
	exempt    map[string]struct{}
}

type Options struct {
	Permissions Permissions
	RateLimiter RateLimiter
	Broadcaster Broadcaster
	// RateExempt usernames skip creation rate limiting.
	RateExempt []string
	// Attachment bounds forwarded to the message engine.
	MaxAttachments     int
	MaxAttachmentBytes int64
}

func New(s store.Store, opts Options) *Gateway {
	g := &Gateway{
		store:     s,
		messages:  messages.NewEngine(s, opts.MaxAttachments, opts.MaxAttachmentBytes),
		polls:     polls.NewEngine(s),
		perms:     opts.Permissions,
		limiter:   opts.RateLimiter,
		broadcast: opts.Broadcaster,
		exempt:    make(map[string]struct{}, len(opts.RateExempt)),
	}
	if g.perms == nil {
		g.perms = DenyAllPermissions{}
	}
	if g.broadcast == nil {
		g.broadcast = NopBroadcaster{}
	}
	for _, u := range opts.RateExempt {
		g.exempt[u] = struct{}{}
	}
	return g
}

// History returns the full room history sanitized for the viewer. No
// pagination: the entire room is returned every time.
func (g *Gateway) History(room, viewer string) ([]models.SanitizedMessage, error) {
	msgs, err := g.store.Get(room)
	if err != nil {
		return nil, err
	}
	return polls.SanitizeAll(msgs, viewer), nil
}

// Apply runs one mutation for the given trusted username and returns
// the caller-visible result. Errors stay inside the result; HTTP status
// mapping happens at the transport layer via errs.HTTPStatus.
func (g *Gateway) Apply(req MutationRequest, user string) (MutationResult, error) {
	started := time.Now()
	res, err := g.dispatch(req, user)
	observeMutation(req.Action, err, time.Since(started))
	if err != nil {
		logger.Warn("mutation_rejected", "room", req.Room, "action", req.Action, "user", user, "err", err)
		return MutationResult{Success: false, Error: err.Error()}, err
	}
	return res, nil
}

func (g *Gateway) dispatch(req MutationRequest, user string) (MutationResult, error) {
	if req.Room == "" {
		return MutationResult{}, fmt.Errorf("%w: room required", errs.ErrValidation)
	}
	switch req.Action {
	case ActionCreate, ActionCreatePoll:
		return g.create(req, user)
	case ActionDelete:
		return g.delete(req, user)
	case ActionEdit:
		return g.edit(req, user)
	case ActionReact:
		return g.react(req, user)
	case ActionPin:
		return g.pin(req, user)
	case ActionHistory:
		hist, err := g.messages.EditHistory(req.Room, req.MessageID)
		if err != nil {
			return MutationResult{}, err
		}
		return MutationResult{Success: true, History: hist}, nil
	case ActionPollVote:
		return g.pollVote(req, user)
	default:
		return MutationResult{}, fmt.Errorf("%w: unknown action %q", errs.ErrValidation, req.Action)
	}
}

func (g *Gateway) create(req MutationRequest, user string) (MutationResult, error) {
	if req.Msg == nil {
		return MutationResult{}, fmt.Errorf("%w: msg required", errs.ErrValidation)
	}
	if _, exempt := g.exempt[user]; !exempt && g.limiter != nil && !g.limiter.Allow(user) {
		return MutationResult{}, errs.ErrRateLimited
	}
	in := messages.CreateInput{
		Author:      user,
		Text:        req.Msg.Text,
		ReplyToID:   req.Msg.ReplyToID,
		SystemType:  req.Msg.SystemType,
		Attachments: req.Msg.Attachments,
	}
	if req.Action == ActionCreatePoll && req.Msg.Poll == nil {
		return MutationResult{}, fmt.Errorf("%w: poll spec required", errs.ErrValidation)
	}
	if req.Msg.Poll != nil {
		// An invalid poll spec fails the whole create; no bare message
		// is left behind.
		p, err := polls.Build(*req.Msg.Poll, user)
		if err != nil {
			return MutationResult{}, err
		}
		in.Poll = p
	}
	m, err := g.messages.Create(req.Room, in)
	if err != nil {
		return MutationResult{}, err
	}
	return g.committed(req.Room, "create", m, user), nil
}

func (g *Gateway) delete(req MutationRequest, user string) (MutationResult, error) {
	target, err := g.find(req.Room, req.MessageID)
	if err != nil {
		return MutationResult{}, err
	}
	if err := g.requireAuthorOr(req.Room, user, target, CapManageMessages); err != nil {
		return MutationResult{}, err
	}
	ok, err := g.messages.Delete(req.Room, req.MessageID)
	if err != nil {
		return MutationResult{}, err
	}
	if !ok {
		return MutationResult{}, errs.ErrNotFound
	}
	g.broadcast.Publish(req.Room, "delete", target)
	return MutationResult{Success: true}, nil
}

func (g *Gateway) edit(req MutationRequest, user string) (MutationResult, error) {
	target, err := g.find(req.Room, req.MessageID)
	if err != nil {
		return MutationResult{}, err
	}
	if err := g.requireAuthorOr(req.Room, user, target, CapManageMessages); err != nil {
		return MutationResult{}, err
	}
	m, err := g.messages.Edit(req.Room, req.MessageID, req.NewText)
	if err != nil {
		return MutationResult{}, err
	}
	return g.committed(req.Room, "edit", m, user), nil
}

func (g *Gateway) react(req MutationRequest, user string) (MutationResult, error) {
	if req.Emoji == "" {
		return MutationResult{}, fmt.Errorf("%w: emoji required", errs.ErrValidation)
	}
	m, err := g.messages.React(req.Room, req.MessageID, req.Emoji, user)
	if err != nil {
		return MutationResult{}, err
	}
	return g.committed(req.Room, "react", m, user), nil
}

func (g *Gateway) pin(req MutationRequest, user string) (MutationResult, error) {
	if req.Pin == nil {
		return MutationResult{}, fmt.Errorf("%w: pin flag required", errs.ErrValidation)
	}
	if haven, _, isChannel := SplitRoom(req.Room); isChannel {
		if !g.perms.Can(haven, user, CapPinMessages) {
			return MutationResult{}, fmt.Errorf("%w: %s", errs.ErrForbidden, CapPinMessages)
		}
	}
	m, err := g.messages.Pin(req.Room, req.MessageID, *req.Pin)
	if err != nil {
		return MutationResult{}, err
	}
	return g.committed(req.Room, "pin", m, user), nil
}

func (g *Gateway) pollVote(req MutationRequest, user string) (MutationResult, error) {
	payload := polls.VotePayload{
		OptionID:  req.OptionID,
		OptionIDs: req.OptionIDs,
		Text:      req.Text,
		Rating:    req.Rating,
	}
	m, err := g.polls.Vote(req.Room, req.MessageID, payload, user)
	if err != nil {
		return MutationResult{}, err
	}
	return g.committed(req.Room, "poll_vote", m, user), nil
}

// requireAuthorOr enforces the channel-room moderation rule: the author
// may always act on their own message; anyone else needs the
// capability. DM rooms skip the check entirely.
func (g *Gateway) requireAuthorOr(room, user string, target models.Message, capability string) error {
	haven, _, isChannel := SplitRoom(room)
	if !isChannel {
		return nil
	}
	if target.User == user {
		return nil
	}
	if g.perms.Can(haven, user, capability) {
		return nil
	}
	return fmt.Errorf("%w: %s", errs.ErrForbidden, capability)
}

func (g *Gateway) find(room, id string) (models.Message, error) {
	if id == "" {
		return models.Message{}, fmt.Errorf("%w: messageId required", errs.ErrValidation)
	}
	msgs, err := g.store.Get(room)
	if err != nil {
		return models.Message{}, err
	}
	for _, m := range msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Message{}, errs.ErrNotFound
}

// committed publishes the raw mutated message to the fanout port and
// builds the sanitized result for the caller.
func (g *Gateway) committed(room, action string, m models.Message, viewer string) MutationResult {
	g.broadcast.Publish(room, action, m)
	sm := polls.SanitizeMessage(m, viewer)
	return MutationResult{Success: true, Message: &sm}
}
