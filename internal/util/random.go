// Package util provides small helpers shared across Philview components: random ids and
// environment variable parsing.
package util

import (
	"math/rand"
	"strings"
)

const hexChars = "0123456789abcdef"

// GenerateRandomID returns "{prefix}{hex}" with hexLength random hex characters.
// Not suitable for secrets; payload nonces use UUIDs instead.
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex returns a random lowercase hex string of the given length.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.Intn(len(hexChars))])
	}
	return builder.String()
}

// GenerateOutboxID returns an id for a queued outbound notice.
func GenerateOutboxID() string {
	return GenerateRandomID("outbox_", 32)
}
