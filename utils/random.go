package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ShortToken returns the first n lowercase hex characters of a random UUID.
// n is capped at 32.
func ShortToken(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}
