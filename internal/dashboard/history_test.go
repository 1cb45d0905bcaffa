package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"
)

func entry(ts string, temp float64) messages.HistoryEntry {
	return messages.HistoryEntry{CreatedAt: ts, Temperature: temp}
}

func TestHistoryCache_MergeUpserts(t *testing.T) {
	c := NewHistoryCache()
	c.Merge(entry("2025-01-01T00:00:00.000Z", 1))
	c.Merge(entry("2025-01-01T00:00:01.000Z", 2))
	c.Merge(entry("2025-01-01T00:00:02.000Z", 3))
	assert.Equal(t, 3, c.Len())

	// same key replaces in place, position kept
	c.Merge(entry("2025-01-01T00:00:01.000Z", 20))
	assert.Equal(t, messages.HistorySensorData{
		entry("2025-01-01T00:00:00.000Z", 1),
		entry("2025-01-01T00:00:01.000Z", 20),
		entry("2025-01-01T00:00:02.000Z", 3),
	}, c.Entries())
}

func TestHistoryCache_MergeIsIdempotent(t *testing.T) {
	c := NewHistoryCache()
	e := entry("2025-01-01T00:00:00.000Z", 1)
	for i := 0; i < 5; i++ {
		c.Merge(e)
	}
	assert.Equal(t, 1, c.Len())
}

func TestHistoryCache_Replace(t *testing.T) {
	c := NewHistoryCache()
	c.Merge(entry("old", 1))
	c.Replace(messages.HistorySensorData{entry("a", 1), entry("b", 2), entry("a", 3)})

	assert.Equal(t, messages.HistorySensorData{entry("a", 3), entry("b", 2)}, c.Entries())

	c.Merge(entry("c", 4))
	assert.Equal(t, 3, c.Len())

	c.Replace(nil)
	assert.Equal(t, 0, c.Len())
	assert.NotNil(t, c.Entries())
}

func TestHistoryCache_EntriesIsACopy(t *testing.T) {
	c := NewHistoryCache()
	c.Merge(entry("a", 1))
	got := c.Entries()
	got[0].Temperature = 99
	assert.Equal(t, 1.0, c.Entries()[0].Temperature)
}
