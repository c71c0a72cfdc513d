package gate

import (
	"sync"
	"time"
)

// Cooldown kinds.
const (
	CooldownSong = "song"
	CooldownUser = "user"
)

type cooldownKey struct {
	kind string
	key  string
}

// CooldownLedger tracks per-key cooldown expiries. Expired entries are
// pruned lazily on lookup; Sweep drops the remainder in bulk.
type CooldownLedger struct {
	mu      sync.Mutex
	entries map[cooldownKey]time.Time
	now     func() time.Time
}

// NewCooldownLedger creates an empty ledger.
func NewCooldownLedger() *CooldownLedger {
	return &CooldownLedger{
		entries: make(map[cooldownKey]time.Time),
		now:     time.Now,
	}
}

// Set starts a cooldown of duration d. A non-positive duration is a
// no-op, which is how disabled cooldowns are expressed in config.
func (l *CooldownLedger) Set(kind, key string, d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[cooldownKey{kind, key}] = l.now().Add(d)
}

// Remaining returns the time left on an active cooldown, or false when
// the key is not cooling down.
func (l *CooldownLedger) Remaining(kind, key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := cooldownKey{kind, key}
	expiry, ok := l.entries[k]
	if !ok {
		return 0, false
	}
	left := expiry.Sub(l.now())
	if left <= 0 {
		delete(l.entries, k)
		return 0, false
	}
	return left, true
}

// Sweep removes all expired entries and returns how many were dropped.
func (l *CooldownLedger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for k, expiry := range l.entries {
		if !expiry.After(now) {
			delete(l.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked cooldowns, expired ones included.
func (l *CooldownLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
