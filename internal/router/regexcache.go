package router

import (
	"regexp"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// defaultRegexTTL bounds how long a compiled pattern survives after it
// was first compiled and cached; a later install that hits the cache
// does not extend it (touch-on-hit is disabled). Within that window the
// same pattern string recurring across successive
// config snapshots (a common hot-swap shape: one rule's threshold value
// changes, the rest of the ruleset is untouched) reuses the cached
// *regexp.Regexp instead of recompiling. Unlike the outstanding-request
// or sequence-number caches elsewhere in the pack, this cache's entries
// have no natural invalidation signal of their own, so a TTL eviction is
// the simplest correct policy.
const defaultRegexTTL = 30 * time.Minute

// RegexCache compiles MATCH/REGEX_REPLACE patterns once and reuses the
// result across rule installs, keyed by pattern text.
type RegexCache struct {
	cache *ttlcache.Cache[string, *regexp.Regexp]
}

// NewRegexCache returns a RegexCache with the default entry lifetime and
// starts its background eviction loop.
func NewRegexCache() *RegexCache {
	c := &RegexCache{
		cache: ttlcache.New[string, *regexp.Regexp](
			ttlcache.WithTTL[string, *regexp.Regexp](defaultRegexTTL),
			ttlcache.WithDisableTouchOnHit[string, *regexp.Regexp](),
		),
	}
	go c.cache.Start()
	return c
}

// Compile returns the cached *regexp.Regexp for pattern, compiling and
// caching it on first use.
func (c *RegexCache) Compile(pattern string) (*regexp.Regexp, error) {
	if item := c.cache.Get(pattern); item != nil {
		return item.Value(), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.cache.Set(pattern, re, ttlcache.DefaultTTL)
	return re, nil
}

// Close stops the cache's background eviction goroutine.
func (c *RegexCache) Close() { c.cache.Stop() }
