package session

import (
	"crypto/subtle"
	"time"
)

// cookieCacheSize is the fixed slot count of the verified-cookie cache.
const cookieCacheSize = 1000

// DefaultCacheTTL bounds how long a verified cookie short-circuits bcrypt
// verification before the entry is treated as a miss and re-verified.
const DefaultCacheTTL = time.Hour

type cacheSlot struct {
	sessionID  int64
	sessionKey []byte
	atime      time.Time
}

// cookieCache remembers plaintext session keys that already verified
// against their stored hash, so repeated requests with the same cookie skip
// the bcrypt work. It is a single-probe open-addressed table: the slot for
// an entry is (sessionID + first key byte) mod size, and a colliding store
// evicts the previous occupant.
//
// All access happens on loop fibers, so no locking is needed. An entry is
// only ever written after a successful verify; presence implies the key
// matches the stored hash.
type cookieCache struct {
	slots [cookieCacheSize]cacheSlot
	ttl   time.Duration
}

func newCookieCache(ttl time.Duration) *cookieCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &cookieCache{ttl: ttl}
}

func slotIndex(sessionID int64, sessionKey string) int {
	return int((sessionID + int64(sessionKey[0])) % cookieCacheSize)
}

// lookup reports whether (sessionID, sessionKey) is cached as verified.
// The key comparison is constant-time. Entries past the age bound read as
// a miss and are evicted.
func (c *cookieCache) lookup(sessionID int64, sessionKey string, now time.Time) bool {
	if sessionID <= 0 || sessionKey == "" {
		return false
	}
	slot := &c.slots[slotIndex(sessionID, sessionKey)]
	if slot.sessionID != sessionID || slot.sessionKey == nil {
		return false
	}
	if now.Sub(slot.atime) > c.ttl {
		*slot = cacheSlot{}
		return false
	}
	if subtle.ConstantTimeCompare(slot.sessionKey, []byte(sessionKey)) != 1 {
		return false
	}
	slot.atime = now
	return true
}

// store records a verified key, evicting whatever occupied the slot.
func (c *cookieCache) store(sessionID int64, sessionKey string, now time.Time) {
	if sessionID <= 0 || sessionKey == "" {
		return
	}
	c.slots[slotIndex(sessionID, sessionKey)] = cacheSlot{
		sessionID:  sessionID,
		sessionKey: []byte(sessionKey),
		atime:      now,
	}
}

// evict drops any entry for sessionID, regardless of key. Used when the
// session row is deleted.
func (c *cookieCache) evict(sessionID int64) {
	for i := range c.slots {
		if c.slots[i].sessionID == sessionID {
			c.slots[i] = cacheSlot{}
		}
	}
}

// prune sweeps entries past the age bound. Correctness does not depend on
// it; it keeps dead plaintext keys from lingering in memory.
func (c *cookieCache) prune(now time.Time) int {
	var n int
	for i := range c.slots {
		if c.slots[i].sessionKey != nil && now.Sub(c.slots[i].atime) > c.ttl {
			c.slots[i] = cacheSlot{}
			n++
		}
	}
	return n
}
