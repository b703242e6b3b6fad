package util

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	entropy      = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyMutex sync.Mutex
)

// NewULID returns a lower-case ULID. IDs generated by one process sort in creation order.
func NewULID() string {
	entropyMutex.Lock()
	defer entropyMutex.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}
