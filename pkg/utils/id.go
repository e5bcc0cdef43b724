package utils

import "github.com/google/uuid"

// GenID returns a new message id. Ids are v4 UUIDs so uniqueness holds
// across the whole store, not just within one room.
func GenID() string { return uuid.NewString() }

// GenOptionID returns a new poll option id, stable for the poll's lifetime.
func GenOptionID() string { return uuid.NewString() }
