// Package codec translates the whole-store room map to and from its
// durable byte form: iv|ciphertext over the JSON document. It also
// recognizes legacy unencrypted stores and flags them for rewrite.
package codec

import (
	"encoding/json"
	"fmt"

	"havenstore/pkg/errs"
	"havenstore/pkg/models"
	"havenstore/pkg/security"
)

// Encode serializes the room map and encrypts it with a fresh iv.
func Encode(rooms models.RoomMap) ([]byte, error) {
	if rooms == nil {
		rooms = models.RoomMap{}
	}
	raw, err := json.Marshal(rooms)
	if err != nil {
		return nil, fmt.Errorf("marshal store: %w", err)
	}
	if !security.Enabled() {
		return raw, nil
	}
	blob, err := security.Encrypt(raw)
	if err != nil {
		return nil, fmt.Errorf("encrypt store: %w", err)
	}
	return blob, nil
}

// Decode parses a durable blob. The second return is true when the blob
// was legacy plaintext JSON: the caller must re-encode it promptly so
// the store self-heals to the encrypted format.
//
// An empty blob decodes to an empty map (first boot). A non-empty blob
// that fails both as ciphertext and as plaintext JSON returns
// errs.ErrCorruptStore; it is never silently discarded.
func Decode(blob []byte) (models.RoomMap, bool, error) {
	if len(blob) == 0 {
		return models.RoomMap{}, false, nil
	}
	if !security.Enabled() {
		var rooms models.RoomMap
		if err := json.Unmarshal(blob, &rooms); err != nil {
			return nil, false, errs.ErrCorruptStore
		}
		if rooms == nil {
			rooms = models.RoomMap{}
		}
		return rooms, false, nil
	}
	if pt, err := security.Decrypt(blob); err == nil {
		var rooms models.RoomMap
		if jerr := json.Unmarshal(pt, &rooms); jerr == nil {
			if rooms == nil {
				rooms = models.RoomMap{}
			}
			return rooms, false, nil
		}
	}
	// Cipher failed (or produced garbage): maybe a legacy plaintext store.
	if likelyJSON(blob) {
		var rooms models.RoomMap
		if err := json.Unmarshal(blob, &rooms); err == nil {
			if rooms == nil {
				rooms = models.RoomMap{}
			}
			return rooms, true, nil
		}
	}
	return nil, false, errs.ErrCorruptStore
}

// likelyJSON heuristically checks whether the bytes start a JSON object
// or array, skipping leading whitespace.
func likelyJSON(b []byte) bool {
	for _, c := range b {
		if c == ' ' || c == '\n' || c == '\r' || c == '\t' {
			continue
		}
		return c == '{' || c == '['
	}
	return false
}
