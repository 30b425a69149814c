// Package imgcache batches and caches profile icon fetches. Entries are
// immutable once set and never evicted for the life of the session, so a
// username is fetched at most once no matter how often the list scrolls.
package imgcache

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/rs/zerolog"
)

// FetchFunc retrieves icons for a batch of usernames in one request. The
// result maps username to base64 image data; absent keys have no icon.
type FetchFunc func(ctx context.Context, usernames []string) (map[string]string, error)

// Entry is one cached icon. Found=false is a cached "no icon" result, which
// is distinct from the username never having been requested.
type Entry struct {
	Data  []byte
	Found bool
}

// Cache is an append-only icon cache with batched, deduplicated fills.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]Entry
	inflight map[string]struct{}
	fetch    FetchFunc
	log      zerolog.Logger
}

// DefaultLookahead is how many rows past the visible end EnsureAhead
// requests.
const DefaultLookahead = 10

// New builds a Cache around the given batch fetcher.
func New(fetch FetchFunc, log zerolog.Logger) *Cache {
	return &Cache{
		entries:  make(map[string]Entry),
		inflight: make(map[string]struct{}),
		fetch:    fetch,
		log:      log,
	}
}

// Lookup returns the cached entry for username. ok=false means the username
// has not been fetched yet and the caller should render a placeholder.
func (c *Cache) Lookup(username string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[username]
	return entry, ok
}

// RequestBatch fetches icons for every listed username that is neither
// cached nor already being fetched. Failures are logged and swallowed; the
// usernames become requestable again so a later trigger retries.
func (c *Cache) RequestBatch(ctx context.Context, usernames []string) {
	c.mu.Lock()
	var missing []string
	for _, u := range usernames {
		if u == "" {
			continue
		}
		if _, cached := c.entries[u]; cached {
			continue
		}
		if _, pending := c.inflight[u]; pending {
			continue
		}
		c.inflight[u] = struct{}{}
		missing = append(missing, u)
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return
	}

	result, err := c.fetch(ctx, missing)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range missing {
		delete(c.inflight, u)
	}
	if err != nil {
		// Placeholders keep rendering; nothing is cached so a future
		// trigger can retry.
		c.log.Warn().Err(err).Int("count", len(missing)).Msg("icon batch fetch failed")
		return
	}
	for _, u := range missing {
		encoded, ok := result[u]
		if !ok || encoded == "" {
			c.entries[u] = Entry{Found: false}
			continue
		}
		data, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr != nil {
			c.log.Warn().Err(decodeErr).Str("username", u).Msg("icon payload undecodable")
			c.entries[u] = Entry{Found: false}
			continue
		}
		c.entries[u] = Entry{Data: data, Found: true}
	}
}

// EnsureAhead requests the icon window covering the visible end of the list
// plus a look-ahead margin. Rapid triggers coalesce naturally because cached
// and in-flight usernames are filtered out before any request is made.
func (c *Cache) EnsureAhead(ctx context.Context, usernames []string, visibleEnd, margin int) {
	if margin <= 0 {
		margin = DefaultLookahead
	}
	if visibleEnd < 0 {
		visibleEnd = 0
	}
	end := visibleEnd + margin
	if end > len(usernames) {
		end = len(usernames)
	}
	if end == 0 {
		return
	}
	c.RequestBatch(ctx, usernames[:end])
}
