package extract

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Deduplicator tracks result links seen during a scan using a Bloom filter
// with an exact map behind it, so a false positive never drops a link.
type Deduplicator struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
	count  int
}

// NewDeduplicator sizes the filter for the expected number of links on a
// results page.
func NewDeduplicator(estimatedLinks int) *Deduplicator {
	if estimatedLinks < 100 {
		estimatedLinks = 100
	}
	return &Deduplicator{
		filter: bloom.NewWithEstimates(uint(estimatedLinks), 0.001),
		exact:  make(map[string]struct{}),
	}
}

// Seen records link and reports whether it had been recorded before.
func (d *Deduplicator) Seen(link string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.filter.TestString(link) {
		if _, exists := d.exact[link]; exists {
			return true
		}
	}
	d.filter.AddString(link)
	d.exact[link] = struct{}{}
	d.count++
	return false
}

// Count returns the number of unique links recorded.
func (d *Deduplicator) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.count
}

// Reset clears the deduplicator for reuse across pages.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.filter.ClearAll()
	d.exact = make(map[string]struct{})
	d.count = 0
}
