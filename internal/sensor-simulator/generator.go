package sensor_simulator

import (
	"math"
	"math/rand"
	"sync"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model"
)

// bounds is the physical range of a measurement and the largest step per tick.
type bounds struct {
	min, max, step float64
}

var (
	temperatureBounds = bounds{min: 0, max: 50, step: 0.3}  // °C
	humidityBounds    = bounds{min: 0, max: 100, step: 1.0} // %
	moistureBounds    = bounds{min: 0, max: 100, step: 0.8} // %
	phBounds          = bounds{min: 0, max: 14, step: 0.05}
)

// DefaultStart is a plausible greenhouse reading.
var DefaultStart = model.ReadingFields{Temperature: 22, Humidity: 55, Moisture: 35, PH: 6.8}

type GeneratorConfig struct {
	Seed  int64
	Start model.ReadingFields
	// MoistureDrift is added to moisture every tick before the random step,
	// e.g. -0.05 for soil slowly drying out.
	MoistureDrift float64
}

// DataGenerator walks each measurement by a bounded random step, clamped to its
// physical range.
type DataGenerator struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	cur   model.ReadingFields
	drift float64
}

func NewDataGenerator(cfg GeneratorConfig) *DataGenerator {
	start := cfg.Start
	if start == (model.ReadingFields{}) {
		start = DefaultStart
	}
	return &DataGenerator{
		rnd: rand.New(rand.NewSource(cfg.Seed)),
		cur: model.ReadingFields{
			Temperature: clamp(start.Temperature, temperatureBounds),
			Humidity:    clamp(start.Humidity, humidityBounds),
			Moisture:    clamp(start.Moisture, moistureBounds),
			PH:          clamp(start.PH, phBounds),
		},
		drift: cfg.MoistureDrift,
	}
}

// Next advances the walk and returns the new reading.
func (g *DataGenerator) Next() model.ReadingFields {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cur.Temperature = g.walk(g.cur.Temperature, temperatureBounds)
	g.cur.Humidity = g.walk(g.cur.Humidity, humidityBounds)
	g.cur.Moisture = g.walk(g.cur.Moisture+g.drift, moistureBounds)
	g.cur.PH = g.walk(g.cur.PH, phBounds)
	return g.cur
}

func (g *DataGenerator) walk(v float64, b bounds) float64 {
	v += (g.rnd.Float64()*2 - 1) * b.step
	return round2(clamp(v, b))
}

func clamp(v float64, b bounds) float64 {
	if math.IsNaN(v) {
		return b.min
	}
	return math.Max(b.min, math.Min(b.max, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
