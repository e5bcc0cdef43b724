package polls

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"havenstore/pkg/errs"
	"havenstore/pkg/logger"
	"havenstore/pkg/models"
	"havenstore/pkg/store"
)

type Engine struct {
	store store.Store
}

func NewEngine(s store.Store) *Engine { return &Engine{store: s} }

// VotePayload carries the variant-specific ballot. Option-based polls
// use OptionID or OptionIDs; text polls use Text; star polls use Rating.
type VotePayload struct {
	OptionID  string   `json:"optionId,omitempty"`
	OptionIDs []string `json:"optionIds,omitempty"`
	Text      string   `json:"text,omitempty"`
	Rating    int      `json:"rating,omitempty"`
}

// Vote applies the ballot to the poll attached to the message and
// returns the mutated message. Re-submitting an unchanged ballot is
// always a no-op success, even when vote changes are disallowed.
func (e *Engine) Vote(room, messageID string, payload VotePayload, user string) (models.Message, error) {
	var out models.Message
	err := e.store.WithRoom(room, func(msgs []models.Message) ([]models.Message, error) {
		i := -1
		for j := range msgs {
			if msgs[j].ID == messageID {
				i = j
				break
			}
		}
		if i < 0 {
			return nil, errs.ErrNotFound
		}
		p := msgs[i].Poll
		if p == nil {
			return nil, fmt.Errorf("%w: message has no poll", errs.ErrValidation)
		}
		if p.ClosesAt != 0 && time.Now().UnixMilli() > p.ClosesAt {
			return nil, errs.ErrPollClosed
		}
		var err error
		switch p.Type {
		case models.PollText:
			err = voteText(p, payload, user)
		case models.PollStar:
			err = voteStar(p, payload, user)
		default:
			err = voteOptions(p, payload, user)
		}
		if err != nil {
			return nil, err
		}
		out = msgs[i]
		return msgs, nil
	})
	if err != nil {
		return models.Message{}, err
	}
	logger.Debug("poll_voted", "room", room, "message", messageID, "user", user)
	return out, nil
}

// voteText upserts the caller's single free-text response. Identical
// resubmission is a no-op; a different text needs allowVoteChange.
func voteText(p *models.Poll, payload VotePayload, user string) error {
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return fmt.Errorf("%w: text response required", errs.ErrValidation)
	}
	if p.TextMaxLength > 0 {
		text = truncate(text, p.TextMaxLength)
	}
	for i, r := range p.TextResponses {
		if r.User != user {
			continue
		}
		if r.Text == text {
			return nil
		}
		if !p.AllowVoteChange {
			return errs.ErrVoteChange
		}
		p.TextResponses[i].Text = text
		p.TextResponses[i].Timestamp = time.Now().UnixMilli()
		return nil
	}
	p.TextResponses = append(p.TextResponses, models.TextResponse{
		User: user, Text: text, Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// voteStar upserts the caller's single rating, clamped to [1, scale].
func voteStar(p *models.Poll, payload VotePayload, user string) error {
	if payload.Rating == 0 {
		return fmt.Errorf("%w: rating required", errs.ErrValidation)
	}
	stars := payload.Rating
	if stars < 1 {
		stars = 1
	}
	if scale := p.StarScale; scale > 0 && stars > scale {
		stars = scale
	}
	for i, r := range p.Ratings {
		if r.User != user {
			continue
		}
		if r.Stars == stars {
			return nil
		}
		if !p.AllowVoteChange {
			return errs.ErrVoteChange
		}
		p.Ratings[i].Stars = stars
		p.Ratings[i].Timestamp = time.Now().UnixMilli()
		return nil
	}
	p.Ratings = append(p.Ratings, models.StarRating{
		User: user, Stars: stars, Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// voteOptions replaces the caller's selection set wholesale for the
// option-based variants.
func voteOptions(p *models.Poll, payload VotePayload, user string) error {
	requested := payload.OptionIDs
	if len(requested) == 0 && payload.OptionID != "" {
		requested = []string{payload.OptionID}
	}
	requested = lo.Uniq(requested)
	if len(requested) == 0 {
		return fmt.Errorf("%w: option id required", errs.ErrValidation)
	}
	known := lo.SliceToMap(p.Options, func(o models.PollOption) (string, struct{}) {
		return o.ID, struct{}{}
	})
	for _, id := range requested {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: option %s", errs.ErrNotFound, id)
		}
	}

	// Single-select variants honor only the first requested id.
	single := p.Type.SingleSelect() || (p.Type == models.PollChoice && !p.Multiple)
	if single {
		requested = requested[:1]
	}

	current := lo.FilterMap(p.Options, func(o models.PollOption, _ int) (string, bool) {
		return o.ID, lo.Contains(o.Votes, user)
	})

	// Unchanged ballot: succeed without touching anything. This is what
	// lets clients re-submit under allowVoteChange=false.
	if sameSet(requested, current) {
		return nil
	}
	if !p.AllowVoteChange && len(current) > 0 {
		return errs.ErrVoteChange
	}
	if !single {
		limit := p.MaxSelections
		if limit <= 0 {
			limit = len(p.Options)
		}
		if len(requested) > limit {
			return fmt.Errorf("%w: %d selections, cap %d", errs.ErrSelectionLimit, len(requested), limit)
		}
	}

	want := lo.SliceToMap(requested, func(id string) (string, struct{}) {
		return id, struct{}{}
	})
	for i := range p.Options {
		o := &p.Options[i]
		o.Votes = lo.Without(o.Votes, user)
		if _, ok := want[o.ID]; ok {
			o.Votes = append(o.Votes, user)
		}
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := lo.SliceToMap(a, func(s string) (string, struct{}) { return s, struct{}{} })
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
