package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// MessageID keeps a producer supplied identifier and falls back to a fresh
// ULID when the producer did not send one.
func MessageID(candidate string) string {
	if id := strings.TrimSpace(candidate); id != "" {
		return id
	}
	return CreateULID()
}

// Timestamp reports the creation time encoded in a ULID. Identifiers that are
// not ULIDs return false.
func Timestamp(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
