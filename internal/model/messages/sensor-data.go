package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

// ISOLayout matches the millisecond ISO-8601 form browsers produce with toISOString.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// LatestSensorData is the shape served by the latest-reading endpoint.
// CreatedAt is epoch milliseconds so clients can compare readings by equality.
type LatestSensorData struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Moisture    float64 `json:"moisture"`
	PH          float64 `json:"ph"`
	CreatedAt   int64   `json:"createdAt"`
}

// HistoryEntry is one point of a history window.
type HistoryEntry struct {
	CreatedAt   string  `json:"createdAt"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Moisture    float64 `json:"moisture"`
	PH          float64 `json:"ph"`
}

// HistorySensorData is a history window, ascending by CreatedAt.
type HistorySensorData []HistoryEntry

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

func ToLatest(r entities.SensorReading) LatestSensorData {
	return LatestSensorData{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Moisture:    r.Moisture,
		PH:          r.PH,
		CreatedAt:   r.CreatedAt.UnixMilli(),
	}
}

func ToHistoryEntry(r entities.SensorReading) HistoryEntry {
	return HistoryEntry{
		CreatedAt:   FormatISO(r.CreatedAt),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Moisture:    r.Moisture,
		PH:          r.PH,
	}
}

// ToHistory projects readings in the order given, always returning a non-nil slice
// so an empty window encodes as [].
func ToHistory(rs []entities.SensorReading) HistorySensorData {
	out := make(HistorySensorData, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToHistoryEntry(r))
	}
	return out
}

// AsHistoryEntry converts a polled latest reading into the history shape, keyed with the
// same ISO form the history endpoint uses.
func (l LatestSensorData) AsHistoryEntry() HistoryEntry {
	return HistoryEntry{
		CreatedAt:   FormatISO(time.UnixMilli(l.CreatedAt)),
		Temperature: l.Temperature,
		Humidity:    l.Humidity,
		Moisture:    l.Moisture,
		PH:          l.PH,
	}
}
