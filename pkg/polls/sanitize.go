package polls

import (
	"math"

	"github.com/samber/lo"

	"havenstore/pkg/models"
)

// SanitizeMessage produces the caller-visible projection of a message.
// It is pure: the stored message is never modified and the result is
// never persisted. Messages without a poll pass through unchanged
// (deep-copied).
func SanitizeMessage(m models.Message, viewer string) models.SanitizedMessage {
	out := models.SanitizedMessage{
		ID:          m.ID,
		User:        m.User,
		Text:        m.Text,
		Timestamp:   m.Timestamp,
		Edited:      m.Edited,
		ReplyToID:   m.ReplyToID,
		Pinned:      m.Pinned,
		SystemType:  m.SystemType,
		Attachments: append([]models.Attachment(nil), m.Attachments...),
		EditHistory: append([]models.EditEntry(nil), m.EditHistory...),
	}
	if len(m.Reactions) > 0 {
		out.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			out.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	if m.Poll != nil {
		out.Poll = sanitizePoll(m.Poll, viewer)
	}
	return out
}

// SanitizeAll maps a whole room history for one viewer.
func SanitizeAll(msgs []models.Message, viewer string) []models.SanitizedMessage {
	return lo.Map(msgs, func(m models.Message, _ int) models.SanitizedMessage {
		return SanitizeMessage(m, viewer)
	})
}

func sanitizePoll(p *models.Poll, viewer string) *models.SanitizedPoll {
	out := &models.SanitizedPoll{
		Type:             p.Type,
		Question:         p.Question,
		ClosesAt:         p.ClosesAt,
		CreatedBy:        p.CreatedBy,
		Multiple:         p.Multiple,
		AllowVoteChange:  p.AllowVoteChange,
		Anonymous:        p.Anonymous,
		ShowDemographics: p.ShowDemographics,
		MaxSelections:    p.MaxSelections,
		OnlineOnly:       p.OnlineOnly,
		IncludeSelf:      p.IncludeSelf,
		SourceScope:      p.SourceScope,
		TextMaxLength:    p.TextMaxLength,
		StarScale:        p.StarScale,
		SliderLeftLabel:  p.SliderLeftLabel,
		SliderRightLabel: p.SliderRightLabel,
	}

	for _, o := range p.Options {
		so := models.SanitizedOption{ID: o.ID, Text: o.Text, VoteCount: len(o.Votes)}
		if !p.Anonymous {
			so.Votes = append([]string(nil), o.Votes...)
		}
		out.Options = append(out.Options, so)
		if lo.Contains(o.Votes, viewer) {
			// The viewer always sees their own selection, anonymity
			// hides everyone else, not oneself.
			out.ViewerSelection = append(out.ViewerSelection, o.ID)
		}
	}

	out.RatingCount = len(p.Ratings)
	if len(p.Ratings) > 0 {
		sum := lo.SumBy(p.Ratings, func(r models.StarRating) int { return r.Stars })
		out.RatingAverage = math.Round(float64(sum)/float64(len(p.Ratings))*100) / 100
	}
	for _, r := range p.Ratings {
		if r.User == viewer {
			out.ViewerRating = r.Stars
			break
		}
	}

	out.TextResponseCount = len(p.TextResponses)
	for _, r := range p.TextResponses {
		if r.User == viewer {
			out.ViewerTextSubmitted = true
			break
		}
	}

	if !p.Anonymous {
		out.Ratings = append([]models.StarRating(nil), p.Ratings...)
		out.TextResponses = append([]models.TextResponse(nil), p.TextResponses...)
	}
	return out
}
