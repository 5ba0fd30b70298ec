package session

import (
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrExists is returned when adding a session whose id is already live.
var ErrExists = errors.New("session already exists")

// DefaultIdleTTL is how long an untouched session stays live.
const DefaultIdleTTL = 2 * time.Hour

// Registry holds live sessions in memory. Sessions expire after the idle TTL;
// every Get slides the expiry forward.
type Registry struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRegistry creates a registry. A non-positive ttl uses DefaultIdleTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{
		cache: cache.New(ttl, ttl/4),
		ttl:   ttl,
	}
}

// Add registers a session. It fails if the id is already live.
func (r *Registry) Add(s *Session) error {
	if err := r.cache.Add(s.ID(), s, r.ttl); err != nil {
		return ErrExists
	}
	return nil
}

// Get returns a live session and refreshes its expiry. A session removed
// between the lookup and the refresh is reported as gone.
func (r *Registry) Get(id string) (*Session, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	if err := r.cache.Replace(id, x, r.ttl); err != nil {
		return nil, false
	}
	return x.(*Session), true
}

// Live reports whether id is live without touching its expiry.
func (r *Registry) Live(id string) bool {
	_, found := r.cache.Get(id)
	return found
}

// Remove drops a session. It reports whether the session was live.
func (r *Registry) Remove(id string) bool {
	_, found := r.cache.Get(id)
	r.cache.Delete(id)
	return found
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

// OnEvicted registers a callback for sessions dropped by idle expiry or
// Remove.
func (r *Registry) OnEvicted(fn func(id string)) {
	r.cache.OnEvicted(func(id string, _ interface{}) {
		fn(id)
	})
}
