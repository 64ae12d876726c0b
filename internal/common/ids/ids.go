// Package ids generates the identifiers used by the console: UUIDv7 request ids
// and lexically sortable ULIDs for form sessions.
package ids

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RequestID returns a new UUIDv7 string, falling back to a timestamp id when the
// random source fails.
func RequestID() string {
	u, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return u.String()
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// SessionID returns a new ULID. IDs generated within the same millisecond are
// strictly increasing.
func SessionID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// IsSessionID reports whether s parses as a ULID.
func IsSessionID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
