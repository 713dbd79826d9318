package utils

import (
	"github.com/google/uuid"
)

// GetUUID returns a random identifier for events and participants.
func GetUUID() string {
	return uuid.New().String()
}
