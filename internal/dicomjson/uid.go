package dicomjson

import (
	"math/big"
	"regexp"

	"github.com/google/uuid"
)

// UUIDRoot is the OID arc under which UUID-derived UIDs live (PS3.5 B.2).
const UUIDRoot = "2.25."

// uidPattern matches a syntactically valid UID: dot separated numeric
// components without leading zeros, at most 64 characters.
var uidPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)(\.(0|[1-9][0-9]*))*$`)

// UIDPattern exposes the UID syntax for validators.
func UIDPattern() *regexp.Regexp {
	return uidPattern
}

// ValidUID reports whether s is a syntactically valid UID.
func ValidUID(s string) bool {
	return len(s) <= 64 && uidPattern.MatchString(s)
}

// NewUID returns a fresh UID under 2.25 derived from a random UUID.
func NewUID() string {
	return UIDFromUUID(uuid.New())
}

// UIDFromUUID renders u as "2.25." followed by its 128-bit integer value.
func UIDFromUUID(u uuid.UUID) string {
	n := new(big.Int).SetBytes(u[:])
	return UUIDRoot + n.String()
}
