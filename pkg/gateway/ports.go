package gateway

import (
	"strings"

	"havenstore/pkg/models"
)

// Capabilities resolved by the host's permission layer.
const (
	CapManageMessages = "manage_messages"
	CapPinMessages    = "pin_messages"
)

// RoomSeparator joins haven and channel into a channel room key.
const RoomSeparator = "__"

// Permissions answers capability questions for haven-scoped users. The
// resolver itself lives in the host application.
type Permissions interface {
	Can(haven, user, capability string) bool
}

// RateLimiter gates message creation for non-exempt usernames.
type RateLimiter interface {
	Allow(user string) bool
}

// Broadcaster receives every committed mutation so the host can fan it
// out to other room subscribers. Implementations get the raw message
// and must sanitize per recipient (polls.SanitizeMessage).
type Broadcaster interface {
	Publish(room, action string, msg models.Message)
}

// NopBroadcaster drops every event; the default when the host wires no
// transport.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(string, string, models.Message) {}

// DenyAllPermissions holds no capabilities for anyone; author-only
// moderation applies until the host wires a real resolver.
type DenyAllPermissions struct{}

func (DenyAllPermissions) Can(string, string, string) bool { return false }

// SplitRoom breaks a room key into haven and channel. DM rooms carry no
// separator and report isChannel=false; they bypass permission checks
// entirely.
func SplitRoom(room string) (haven, channel string, isChannel bool) {
	haven, channel, isChannel = strings.Cut(room, RoomSeparator)
	if !isChannel {
		return "", "", false
	}
	return haven, channel, true
}
