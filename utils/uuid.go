package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewShareToken returns an opaque random share token.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
