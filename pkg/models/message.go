package models

// RoomMap is the whole-store document: room key -> ordered message list.
// Room keys are either a DM identifier or "<haven>__<channel>".
type RoomMap map[string][]Message

type Message struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Text string `json:"text"`
	// Unix milliseconds
	Timestamp int64 `json:"timestamp"`
	Edited    bool  `json:"edited,omitempty"`
	// Soft reference; existence of the target is not enforced
	ReplyToID string `json:"replyToId,omitempty"`
	// Reactions maps emoji -> usernames. Never holds an empty set: the
	// key is removed when the last reactor un-reacts.
	Reactions   map[string][]string `json:"reactions,omitempty"`
	Pinned      bool                `json:"pinned,omitempty"`
	Attachments []Attachment        `json:"attachments,omitempty"`
	// Snapshots of the body taken before each edit, oldest first
	EditHistory []EditEntry `json:"editHistory,omitempty"`
	// System tag, e.g. SystemCallSummary for voice-call end markers
	SystemType string `json:"systemType,omitempty"`
	Poll       *Poll  `json:"poll,omitempty"`
}

// SystemCallSummary marks the auto-generated "voice call ended" message.
// At most one exists per room and its text cannot be edited.
const SystemCallSummary = "call-summary"

type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type EditEntry struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
