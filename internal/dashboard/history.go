package dashboard

import "github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"

// HistoryCache is the client-side history window, keyed by the ISO createdAt string.
// It keeps insertion order and holds at most one entry per key. Not safe for
// concurrent use; Session guards it.
type HistoryCache struct {
	entries []messages.HistoryEntry
	index   map[string]int // createdAt -> position in entries
}

func NewHistoryCache() *HistoryCache {
	return &HistoryCache{index: make(map[string]int)}
}

// Merge replaces the entry with the same createdAt in place, or appends it.
func (c *HistoryCache) Merge(e messages.HistoryEntry) {
	if i, ok := c.index[e.CreatedAt]; ok {
		c.entries[i] = e
		return
	}
	c.index[e.CreatedAt] = len(c.entries)
	c.entries = append(c.entries, e)
}

// Replace discards the cache and loads list, e.g. after a range switch.
func (c *HistoryCache) Replace(list messages.HistorySensorData) {
	c.entries = make([]messages.HistoryEntry, 0, len(list))
	c.index = make(map[string]int, len(list))
	for _, e := range list {
		c.Merge(e)
	}
}

// Entries returns a copy in cache order.
func (c *HistoryCache) Entries() messages.HistorySensorData {
	out := make(messages.HistorySensorData, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *HistoryCache) Len() int { return len(c.entries) }
