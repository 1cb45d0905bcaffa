package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

func sample(at time.Time) entities.SensorReading {
	return entities.SensorReading{
		ID:            "r-1",
		ReadingFields: entities.ReadingFields{Temperature: 21.5, Humidity: 40, Moisture: 33, PH: 6.8},
		CreatedAt:     at,
	}
}

func TestFormatISO(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	assert.Equal(t, "2025-01-02T03:04:05.678Z", FormatISO(time.Date(2025, 1, 2, 4, 4, 5, 678900000, loc)))
	assert.Equal(t, "2025-01-02T03:04:05.000Z", FormatISO(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestLatestAndHistoryShareKey(t *testing.T) {
	r := sample(time.Date(2025, 1, 2, 3, 4, 5, 678000000, time.UTC))

	latest := ToLatest(r)
	assert.Equal(t, int64(1735787045678), latest.CreatedAt)
	assert.Equal(t, ToHistoryEntry(r), latest.AsHistoryEntry())
}

func TestLatestJSON(t *testing.T) {
	b, err := json.Marshal(ToLatest(sample(time.UnixMilli(1735787045678))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":21.5,"humidity":40,"moisture":33,"ph":6.8,"createdAt":1735787045678}`, string(b))
}

func TestToHistory(t *testing.T) {
	b, err := json.Marshal(ToHistory(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	a := sample(time.UnixMilli(1000).UTC())
	c := sample(time.UnixMilli(2000).UTC())
	h := ToHistory([]entities.SensorReading{a, c})
	require.Len(t, h, 2)
	assert.Equal(t, "1970-01-01T00:00:01.000Z", h[0].CreatedAt)
	assert.Equal(t, "1970-01-01T00:00:02.000Z", h[1].CreatedAt)
}
