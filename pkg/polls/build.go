// Package polls implements the six poll variants: construction and
// validation, the vote algorithms, and the read-time viewer
// sanitization that hides voter identity on anonymous polls.
package polls

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"havenstore/pkg/errs"
	"havenstore/pkg/models"
	"havenstore/pkg/utils"
)

const (
	maxQuestionLen = 300
	maxOptionLen   = 100
	maxOptions     = 12

	defaultTextMaxLen = 280
	minTextMaxLen     = 20
	maxTextMaxLen     = 500

	defaultStarScale = 5
	minStarScale     = 3
	maxStarScale     = 10

	minSelections = 1
	maxSelections = 10
)

// Spec is the raw poll description supplied at message creation.
type Spec struct {
	Type             string   `json:"type"`
	Question         string   `json:"question"`
	Options          []string `json:"options,omitempty"`
	ClosesAt         int64    `json:"closesAt,omitempty"`
	Multiple         bool     `json:"multiple,omitempty"`
	AllowVoteChange  *bool    `json:"allowVoteChange,omitempty"`
	Anonymous        bool     `json:"anonymous,omitempty"`
	ShowDemographics bool     `json:"showDemographics,omitempty"`
	MaxSelections    int      `json:"maxSelections,omitempty"`
	TextMaxLength    int      `json:"textMaxLength,omitempty"`
	StarScale        int      `json:"starScale,omitempty"`
	OnlineOnly       bool     `json:"onlineOnly,omitempty"`
	IncludeSelf      bool     `json:"includeSelf,omitempty"`
	SourceScope      string   `json:"sourceScope,omitempty"`
	SliderLeftLabel  string   `json:"sliderLeftLabel,omitempty"`
	SliderRightLabel string   `json:"sliderRightLabel,omitempty"`
}

// Build validates the spec and constructs the poll. Any failure returns
// an error and no poll; the enclosing message create must then fail too.
func Build(spec Spec, creator string) (*models.Poll, error) {
	t := models.PollType(strings.TrimSpace(spec.Type))
	switch t {
	case models.PollChoice, models.PollDropdown, models.PollSlider,
		models.PollUserSelect, models.PollText, models.PollStar:
	default:
		return nil, fmt.Errorf("%w: unknown poll type %q", errs.ErrValidation, spec.Type)
	}

	question := strings.TrimSpace(spec.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: poll question required", errs.ErrValidation)
	}
	question = truncate(question, maxQuestionLen)

	p := &models.Poll{
		Type:             t,
		Question:         question,
		CreatedBy:        creator,
		Anonymous:        spec.Anonymous,
		ShowDemographics: spec.ShowDemographics,
		// Changing one's vote is allowed unless the creator opts out.
		AllowVoteChange: spec.AllowVoteChange == nil || *spec.AllowVoteChange,
	}

	if spec.ClosesAt > time.Now().UnixMilli() {
		p.ClosesAt = spec.ClosesAt
	}

	if t.OptionBased() {
		opts, err := buildOptions(spec.Options)
		if err != nil {
			return nil, err
		}
		p.Options = opts
	}

	switch t {
	case models.PollChoice:
		p.Multiple = spec.Multiple
		if spec.Multiple {
			p.MaxSelections = clamp(spec.MaxSelections, minSelections, maxSelections, len(p.Options))
		}
	case models.PollUserSelect:
		p.MaxSelections = clamp(spec.MaxSelections, minSelections, maxSelections, minSelections)
		p.OnlineOnly = spec.OnlineOnly
		p.IncludeSelf = spec.IncludeSelf
		p.SourceScope = strings.TrimSpace(spec.SourceScope)
	case models.PollSlider:
		p.SliderLeftLabel = strings.TrimSpace(spec.SliderLeftLabel)
		p.SliderRightLabel = strings.TrimSpace(spec.SliderRightLabel)
	case models.PollText:
		p.TextMaxLength = clamp(spec.TextMaxLength, minTextMaxLen, maxTextMaxLen, defaultTextMaxLen)
		p.TextResponses = []models.TextResponse{}
	case models.PollStar:
		p.StarScale = clamp(spec.StarScale, minStarScale, maxStarScale, defaultStarScale)
		p.Ratings = []models.StarRating{}
	}
	return p, nil
}

// buildOptions trims, length-caps and case-insensitively dedups option
// texts, keeping at most maxOptions; at least two distinct options must
// survive.
func buildOptions(raw []string) ([]models.PollOption, error) {
	texts := lo.FilterMap(raw, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false
		}
		return truncate(s, maxOptionLen), true
	})
	texts = lo.UniqBy(texts, strings.ToLower)
	if len(texts) > maxOptions {
		texts = texts[:maxOptions]
	}
	if len(texts) < 2 {
		return nil, fmt.Errorf("%w: at least 2 distinct options required", errs.ErrValidation)
	}
	return lo.Map(texts, func(text string, _ int) models.PollOption {
		return models.PollOption{ID: utils.GenOptionID(), Text: text, Votes: []string{}}
	}), nil
}

// truncate caps s at max bytes, backing up so a multi-byte rune is
// never split. The stored text stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// clamp bounds v to [floor, ceil]; non-positive v takes def.
func clamp(v, floor, ceil, def int) int {
	if v <= 0 {
		v = def
	}
	if v < floor {
		return floor
	}
	if v > ceil {
		return ceil
	}
	return v
}
