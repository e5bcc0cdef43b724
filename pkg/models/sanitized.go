package models

// Sanitized view types. These are read-time, per-viewer projections and
// are never persisted; the store always holds the raw Message.

type SanitizedMessage struct {
	ID          string              `json:"id"`
	User        string              `json:"user"`
	Text        string              `json:"text"`
	Timestamp   int64               `json:"timestamp"`
	Edited      bool                `json:"edited,omitempty"`
	ReplyToID   string              `json:"replyToId,omitempty"`
	Reactions   map[string][]string `json:"reactions,omitempty"`
	Pinned      bool                `json:"pinned,omitempty"`
	Attachments []Attachment        `json:"attachments,omitempty"`
	EditHistory []EditEntry         `json:"editHistory,omitempty"`
	SystemType  string              `json:"systemType,omitempty"`
	Poll        *SanitizedPoll      `json:"poll,omitempty"`
}

type SanitizedPoll struct {
	Type             PollType          `json:"type"`
	Question         string            `json:"question"`
	Options          []SanitizedOption `json:"options,omitempty"`
	ClosesAt         int64             `json:"closesAt,omitempty"`
	CreatedBy        string            `json:"createdBy"`
	Multiple         bool              `json:"multiple,omitempty"`
	AllowVoteChange  bool              `json:"allowVoteChange"`
	Anonymous        bool              `json:"anonymous"`
	ShowDemographics bool              `json:"showDemographics,omitempty"`

	MaxSelections int    `json:"maxSelections,omitempty"`
	OnlineOnly    bool   `json:"onlineOnly,omitempty"`
	IncludeSelf   bool   `json:"includeSelf,omitempty"`
	SourceScope   string `json:"sourceScope,omitempty"`

	TextMaxLength int            `json:"textMaxLength,omitempty"`
	TextResponses []TextResponse `json:"textResponses,omitempty"`

	StarScale int          `json:"starScale,omitempty"`
	Ratings   []StarRating `json:"ratings,omitempty"`

	SliderLeftLabel  string `json:"sliderLeftLabel,omitempty"`
	SliderRightLabel string `json:"sliderRightLabel,omitempty"`

	// Viewer-specific fields, visible even on anonymous polls
	ViewerSelection     []string `json:"viewerSelection,omitempty"`
	ViewerRating        int      `json:"viewerRating,omitempty"`
	ViewerTextSubmitted bool     `json:"viewerTextSubmitted,omitempty"`

	// Aggregates, visible regardless of anonymity
	RatingAverage     float64 `json:"ratingAverage,omitempty"`
	RatingCount       int     `json:"ratingCount,omitempty"`
	TextResponseCount int     `json:"textResponseCount,omitempty"`
}

// SanitizedOption carries the voter list only for non-anonymous polls;
// anonymous polls surface VoteCount alone.
type SanitizedOption struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Votes     []string `json:"votes,omitempty"`
	VoteCount int      `json:"voteCount"`
}
