package model

import (
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	ReadingFields     = entities.ReadingFields
	SensorReading     = entities.SensorReading
	LatestSensorData  = messages.LatestSensorData
	HistoryEntry      = messages.HistoryEntry
	HistorySensorData = messages.HistorySensorData
)
