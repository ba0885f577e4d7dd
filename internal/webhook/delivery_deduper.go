package webhook

import (
	"sync"
	"time"
)

type deliveryDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newDeliveryDeduper(ttl time.Duration) *deliveryDeduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &deliveryDeduper{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// markIfNew returns true if the delivery ID has not been seen recently.
// When it returns true, the ID is recorded with an expiry timestamp.
func (d *deliveryDeduper) markIfNew(id string) bool {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Remove expired entries
	for key, expiry := range d.entries {
		if now.After(expiry) {
			delete(d.entries, key)
		}
	}

	if expiry, ok := d.entries[id]; ok && now.Before(expiry) {
		return false
	}

	d.entries[id] = now.Add(d.ttl)
	return true
}

// forget drops id so a redelivery of a failed run is processed again.
func (d *deliveryDeduper) forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, id)
}
