package persistence

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestReadingToPoint(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, int(7*time.Millisecond), time.UTC)
	p := readingToPoint("sensor_data", entities.SensorReading{
		ID:            "abc",
		ReadingFields: entities.ReadingFields{Temperature: 21.5, Humidity: 50, Moisture: 33, PH: 6.8},
		CreatedAt:     at,
	})

	assert.Equal(t, "sensor_data", p.Name())
	assert.Equal(t, at, p.Time())
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, "abc", fields["id"])
	assert.Equal(t, 21.5, fields["temperature"])
	assert.Equal(t, 6.8, fields["ph"])
	assert.Empty(t, p.TagList())
}

func TestReadingFromValues(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	r, err := readingFromValues(at, map[string]interface{}{
		"id":          "r-1",
		"temperature": 19.0,
		"humidity":    int64(60),
		"moisture":    "41.5",
		"ph":          7.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", r.ID)
	assert.Equal(t, entities.ReadingFields{Temperature: 19, Humidity: 60, Moisture: 41.5, PH: 7.1}, r.ReadingFields)
	assert.Equal(t, time.UTC, r.CreatedAt.Location())

	_, err = readingFromValues(at, map[string]interface{}{"temperature": 1.0})
	assert.Error(t, err)
}

func TestFluxBuilders(t *testing.T) {
	latest := buildLatestFlux("readings", "sensor_data")
	assert.Contains(t, latest, `from(bucket: "readings")`)
	assert.Contains(t, latest, `r._measurement == "sensor_data"`)
	assert.Contains(t, latest, `desc: true`)
	assert.Less(t, strings.Index(latest, "last()"), strings.Index(latest, "pivot("),
		"fields are reduced before the pivot")
	assert.NotEqual(t, -1, strings.Index(latest, "last()"))
	assert.Contains(t, latest, `limit(n: 1)`)

	since := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	q := buildSinceFlux("readings", "sensor_data", since)
	assert.Contains(t, q, "range(start: 2025-03-01T11:00:00Z)")
	assert.False(t, strings.Contains(q, "desc: true"))
	assert.NotContains(t, q, "last()")
}

func TestSanitizeMeasurement(t *testing.T) {
	assert.Equal(t, "sensor_data", sanitizeMeasurement("sensor_data"))
	assert.Equal(t, "soil_moisture_s_1", sanitizeMeasurement("soil moisture/s 1"))
}

func TestNewInfluxStore_IncompleteConfig(t *testing.T) {
	_, err := NewInfluxStore(t.Context(), InfluxConfig{InfluxURL: "http://localhost:8086"})
	assert.EqualError(t, err, "influx config incomplete")
}
