package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache; a miss is a nil value and no error
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// Key derives a short, memcache-safe key from arbitrary parts such as a
// search query and a page offset
func Key(namespace string, parts ...string) string {
	sum := xxhash.Sum64String(strings.Join(parts, "\x00"))
	return namespace + ":" + strconv.FormatUint(sum, 16)
}
