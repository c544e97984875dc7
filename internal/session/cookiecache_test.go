package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testKey = "AAAABBBBCCCCDDDD"

func TestCookieCacheLookupAfterStore(t *testing.T) {
	c := newCookieCache(time.Hour)
	now := time.Now()

	assert.False(t, c.lookup(42, testKey, now))
	c.store(42, testKey, now)
	assert.True(t, c.lookup(42, testKey, now))
}

func TestCookieCacheRejectsWrongKey(t *testing.T) {
	c := newCookieCache(time.Hour)
	now := time.Now()

	c.store(42, testKey, now)
	// Same first byte, same slot, different tail.
	assert.False(t, c.lookup(42, "AAAABBBBCCCCDDDX", now))
	assert.False(t, c.lookup(42, testKey+"X", now))
}

func TestCookieCacheSlotFunction(t *testing.T) {
	assert.Equal(t, int((42+int64('A'))%cookieCacheSize), slotIndex(42, testKey))
	// Large IDs wrap around the table.
	assert.Equal(t, int((123456789+int64('A'))%cookieCacheSize), slotIndex(123456789, testKey))
}

func TestCookieCacheCollisionsEvict(t *testing.T) {
	c := newCookieCache(time.Hour)
	now := time.Now()

	// Both entries land in the same slot: ids differ by the table size.
	a := int64(7)
	b := a + cookieCacheSize
	assert.Equal(t, slotIndex(a, testKey), slotIndex(b, testKey))

	c.store(a, testKey, now)
	c.store(b, testKey, now)

	assert.True(t, c.lookup(b, testKey, now))
	assert.False(t, c.lookup(a, testKey, now))
}

func TestCookieCacheExpiryReadsAsMiss(t *testing.T) {
	c := newCookieCache(time.Minute)
	now := time.Now()

	c.store(42, testKey, now)
	assert.True(t, c.lookup(42, testKey, now.Add(30*time.Second)))
	assert.False(t, c.lookup(42, testKey, now.Add(2*time.Minute)))
	// The expired entry was evicted, not just skipped.
	assert.Equal(t, int64(0), c.slots[slotIndex(42, testKey)].sessionID)
}

func TestCookieCacheLookupRefreshesAccessTime(t *testing.T) {
	c := newCookieCache(time.Minute)
	now := time.Now()

	c.store(42, testKey, now)
	assert.True(t, c.lookup(42, testKey, now.Add(50*time.Second)))
	// The earlier hit pushed the age bound forward.
	assert.True(t, c.lookup(42, testKey, now.Add(100*time.Second)))
}

func TestCookieCacheEvict(t *testing.T) {
	c := newCookieCache(time.Hour)
	now := time.Now()

	c.store(42, testKey, now)
	c.evict(42)
	assert.False(t, c.lookup(42, testKey, now))
}

func TestCookieCachePrune(t *testing.T) {
	c := newCookieCache(time.Minute)
	now := time.Now()

	c.store(1, testKey, now)
	c.store(2, testKey, now.Add(50*time.Second))

	evicted := c.prune(now.Add(90 * time.Second))
	assert.Equal(t, 1, evicted)
	assert.False(t, c.lookup(1, testKey, now.Add(90*time.Second)))
	assert.True(t, c.lookup(2, testKey, now.Add(90*time.Second)))
}

func TestCookieCacheIgnoresInvalidArguments(t *testing.T) {
	c := newCookieCache(time.Hour)
	now := time.Now()

	c.store(0, testKey, now)
	c.store(-1, testKey, now)
	c.store(42, "", now)

	for i := range c.slots {
		assert.Equal(t, int64(0), c.slots[i].sessionID)
	}
	assert.False(t, c.lookup(0, testKey, now))
	assert.False(t, c.lookup(42, "", now))
}
