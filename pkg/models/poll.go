package models

type PollType string

const (
	PollChoice     PollType = "choice"
	PollDropdown   PollType = "dropdown"
	PollSlider     PollType = "slider"
	PollUserSelect PollType = "user_select"
	PollText       PollType = "text"
	PollStar       PollType = "star"
)

// OptionBased reports whether the variant carries a fixed option list
// that users vote on (as opposed to free text / ratings).
func (t PollType) OptionBased() bool {
	switch t {
	case PollChoice, PollDropdown, PollSlider, PollUserSelect:
		return true
	}
	return false
}

// SingleSelect reports whether the variant forces exactly one selection.
// A non-multiple choice poll is also single-select, but that is decided
// per poll, not per type.
func (t PollType) SingleSelect() bool {
	return t == PollDropdown || t == PollSlider
}

// Poll is owned by its parent message, created atomically with it and
// mutated only through the vote operation.
type Poll struct {
	Type      PollType     `json:"type"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options,omitempty"`
	// Unix ms deadline; zero means no expiry
	ClosesAt         int64  `json:"closesAt,omitempty"`
	CreatedBy        string `json:"createdBy"`
	Multiple         bool   `json:"multiple,omitempty"`
	AllowVoteChange  bool   `json:"allowVoteChange"`
	Anonymous        bool   `json:"anonymous"`
	ShowDemographics bool   `json:"showDemographics,omitempty"`

	// user_select
	MaxSelections int    `json:"maxSelections,omitempty"`
	OnlineOnly    bool   `json:"onlineOnly,omitempty"`
	IncludeSelf   bool   `json:"includeSelf,omitempty"`
	SourceScope   string `json:"sourceScope,omitempty"`

	// text
	TextMaxLength int            `json:"textMaxLength,omitempty"`
	TextResponses []TextResponse `json:"textResponses,omitempty"`

	// star
	StarScale int          `json:"starScale,omitempty"`
	Ratings   []StarRating `json:"ratings,omitempty"`

	// slider layout hints
	SliderLeftLabel  string `json:"sliderLeftLabel,omitempty"`
	SliderRightLabel string `json:"sliderRightLabel,omitempty"`
}

// PollOption id is generated at poll creation and stable for the poll's
// lifetime. Votes holds voter usernames.
type PollOption struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Votes []string `json:"votes"`
}

type TextResponse struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type StarRating struct {
	User      string `json:"user"`
	Stars     int    `json:"stars"`
	Timestamp int64  `json:"timestamp"`
}
