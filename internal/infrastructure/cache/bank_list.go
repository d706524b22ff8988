// Package cache keeps short-lived, per-process copies of read-mostly data.
package cache

import (
	"sync"
	"time"

	"banklink/internal/domain/bank"
)

type bankListEntry struct {
	banks     []*bank.LinkedBankAccount
	expiresAt time.Time
}

// BankList caches each user's bank list for a fixed TTL. A zero or
// negative TTL disables caching.
//
// Every invalidation advances a generation. Set only stores a list read
// under the current generation, so a read that raced a write cannot put
// the stale list back.
type BankList struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]bankListEntry

	seq         uint64
	generations map[string]uint64
	allAt       uint64
}

func NewBankList(ttl time.Duration) *BankList {
	return &BankList{
		ttl:         ttl,
		now:         time.Now,
		entries:     make(map[string]bankListEntry),
		generations: make(map[string]uint64),
	}
}

func (c *BankList) Get(userID string) ([]*bank.LinkedBankAccount, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, userID)
		return nil, false
	}

	return append([]*bank.LinkedBankAccount(nil), entry.banks...), true
}

// Generation returns the invalidation generation of userID's list.
func (c *BankList) Generation(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation(userID)
}

func (c *BankList) generation(userID string) uint64 {
	return max(c.generations[userID], c.allAt)
}

// Set stores banks read at generation. It is a no-op when userID was
// invalidated since.
func (c *BankList) Set(userID string, generation uint64, banks []*bank.LinkedBankAccount) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation(userID) != generation {
		return
	}

	c.entries[userID] = bankListEntry{
		banks:     append(make([]*bank.LinkedBankAccount, 0, len(banks)), banks...),
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *BankList) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.seq++
	c.generations[userID] = c.seq
}

func (c *BankList) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]bankListEntry)
	c.seq++
	c.allAt = c.seq
	c.generations = make(map[string]uint64)
}

// Len reports the number of entries, expired ones included.
func (c *BankList) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
