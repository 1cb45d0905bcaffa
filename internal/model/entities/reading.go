package entities

import (
	"math"
	"time"
)

// ReadingFields holds the four measurements a sensor reports.
type ReadingFields struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // % relative humidity
	Moisture    float64 `json:"moisture"`    // % soil moisture
	PH          float64 `json:"ph"`
}

// Finite reports whether every measurement is a finite number.
func (f ReadingFields) Finite() bool {
	for _, v := range [...]float64{f.Temperature, f.Humidity, f.Moisture, f.PH} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SensorReading is one persisted reading. ID and CreatedAt are assigned by the store,
// never by the sender.
type SensorReading struct {
	ID string `json:"id"`
	ReadingFields
	CreatedAt time.Time `json:"created_at"`
}
