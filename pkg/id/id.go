// Package id mints the ULID identifiers attached to runs and journaled
// trades. ULIDs embed their creation time, so journal rows ordered by id
// are also ordered chronologically.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// generator guards a monotonic ULID entropy source so New stays safe under
// concurrent batch runs.
type generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newGenerator() *generator {
	// Seed from crypto/rand; fall back to the wall clock if the read fails.
	var seed int64
	if err := binary.Read(cryptorand.Reader, binary.LittleEndian, &seed); err != nil || seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

var gen = newGenerator()

// New returns a fresh 26-character ULID. IDs minted within the same
// millisecond remain lexicographically increasing.
func New() string {
	gen.mu.Lock()
	defer gen.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), gen.entropy).String()
}
