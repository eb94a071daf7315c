package regex

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the size of a cache created with a non-positive size.
const DefaultCacheSize = 128

// Cache is a LRU cache of compiled regexes, keyed by their source.
// The cache is implemented with a map and a linked list.
// When the cache exceeds its size, the least recently used regex is purged.
//
// A Cache is safe for concurrent use. Concurrent requests for the same missing source
// are compiled only once. Compile errors are returned but never cached.
type Cache struct {
	mu    sync.Mutex
	size  int
	list  *list.List               // least recently used regexes at the back
	items map[Source]*list.Element // mapping of sources to list elements

	group  singleflight.Group
	logger zerolog.Logger
	opts   []Option
}

// Is necessary, because each list element needs to store the key in the map.
type cacheValue struct {
	re  *Regex
	key Source
}

// CacheOption configures a cache.
type CacheOption func(*Cache)

// WithLogger sets the logger, that receives debug messages about hits, misses and evictions.
func WithLogger(l zerolog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithCompileOptions sets the options used to compile missing regexes.
func WithCompileOptions(opts ...Option) CacheOption {
	return func(c *Cache) {
		c.opts = opts
	}
}

// NewCache creates a cache holding up to size regexes.
func NewCache(size int, opts ...CacheOption) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}

	c := &Cache{
		size:   size,
		list:   list.New(),
		items:  make(map[Source]*list.Element),
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the compiled regex for the source. If the source is not in the cache,
// it is compiled and then added to the cache.
func (c *Cache) Get(src Source) (*Regex, error) {
	if re, ok := c.lookup(src); ok {
		c.logger.Debug().Str("regex", src.String()).Msg("regex cache hit")
		return re, nil
	}

	v, err, shared := c.group.Do(flightKey(src), func() (interface{}, error) {
		// the regex may have been added since the lookup above
		if re, ok := c.lookup(src); ok {
			return re, nil
		}

		re, err := Compile(src, c.opts...)
		if err != nil {
			return nil, err
		}

		c.add(src, re)
		return re, nil
	})
	if err != nil {
		c.logger.Debug().Str("regex", src.String()).Err(err).Msg("regex cache compile failed")
		return nil, err
	}

	c.logger.Debug().Str("regex", src.String()).Bool("shared", shared).Msg("regex cache miss")
	return v.(*Regex), nil
}

// lookup returns the cached regex and marks it as recently used.
func (c *Cache) lookup(src Source) (*Regex, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[src]
	if !ok {
		return nil, false
	}

	c.list.MoveToFront(e) // "refresh" the regex in the linked list
	return e.Value.(*cacheValue).re, true
}

// add stores the regex and purges the oldest regexes, if the size is exceeded.
func (c *Cache) add(src Source, re *Regex) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[src]; ok {
		c.list.MoveToFront(e)
		return
	}

	c.items[src] = c.list.PushFront(&cacheValue{re: re, key: src})

	for c.list.Len() > c.size {
		last := c.list.Back() // determine the oldest element
		key := last.Value.(*cacheValue).key

		delete(c.items, key)
		c.list.Remove(last)

		c.logger.Debug().Str("regex", key.String()).Msg("regex cache eviction")
	}
}

// Len returns the number of cached regexes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.list.Len()
}

// Purge removes all regexes from the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	clear(c.items)
}

// flightKey returns a string, that identifies the source for the singleflight group.
func flightKey(src Source) string {
	if src.caseSensitive {
		return "c" + src.pattern
	}
	return "i" + src.pattern
}
