package persistence

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

// InfluxConfig configures the InfluxDB backend.
type InfluxConfig struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	Measurement  string // default "sensor_data"
}

// InfluxStore writes one point per reading. The reading ID is kept as a string field
// so it survives the pivot on read.
type InfluxStore struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	queryAPI    api.QueryAPI
	bucket      string
	measurement string

	mu    sync.Mutex
	stamp *stamper
}

func NewInfluxStore(ctx context.Context, cfg InfluxConfig, opts ...Option) (*InfluxStore, error) {
	if cfg.InfluxURL == "" || cfg.InfluxToken == "" || cfg.InfluxOrg == "" || cfg.InfluxBucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "sensor_data"
	}

	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	s := &InfluxStore{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		queryAPI:    client.QueryAPI(cfg.InfluxOrg),
		bucket:      cfg.InfluxBucket,
		measurement: sanitizeMeasurement(measurement),
		stamp:       newStamper(opts...),
	}

	// Influx may still be starting; a failed seed only weakens ordering across restarts.
	if latest, err := s.FindLatest(ctx); err != nil {
		log.Printf("persistence: could not seed clock from influx: %v", err)
	} else if latest != nil {
		s.stamp.seed(latest.CreatedAt)
	}
	return s, nil
}

func (s *InfluxStore) Append(ctx context.Context, f entities.ReadingFields) (entities.SensorReading, error) {
	if err := checkFields(f); err != nil {
		return entities.SensorReading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := entities.SensorReading{ID: newID(), ReadingFields: f, CreatedAt: s.stamp.next()}
	if err := s.writeAPI.WritePoint(ctx, readingToPoint(s.measurement, r)); err != nil {
		return entities.SensorReading{}, unavailable("influx append", err)
	}
	return r, nil
}

func (s *InfluxStore) FindLatest(ctx context.Context) (*entities.SensorReading, error) {
	list, err := s.query(ctx, buildLatestFlux(s.bucket, s.measurement))
	if err != nil {
		return nil, unavailable("influx latest", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (s *InfluxStore) FindSince(ctx context.Context, since time.Time) ([]entities.SensorReading, error) {
	list, err := s.query(ctx, buildSinceFlux(s.bucket, s.measurement, since))
	if err != nil {
		return nil, unavailable("influx since", err)
	}
	return list, nil
}

func (s *InfluxStore) query(ctx context.Context, flux string) ([]entities.SensorReading, error) {
	res, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	out := make([]entities.SensorReading, 0)
	for res.Next() {
		rec := res.Record()
		r, err := readingFromValues(rec.Time(), rec.Values())
		if err != nil {
			log.Printf("persistence: skipping influx row at %s: %v", rec.Time().Format(time.RFC3339Nano), err)
			continue
		}
		out = append(out, r)
	}
	if res.Err() != nil {
		return nil, res.Err()
	}
	return out, nil
}

func (s *InfluxStore) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return unavailable("influx ping", err)
	}
	if !ok {
		return unavailable("influx ping", fmt.Errorf("server not ready"))
	}
	return nil
}

func (s *InfluxStore) Close() error {
	s.client.Close()
	return nil
}

func readingToPoint(measurement string, r entities.SensorReading) *write.Point {
	fields := map[string]interface{}{
		"id":          r.ID,
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"moisture":    r.Moisture,
		"ph":          r.PH,
	}
	return influxdb2.NewPoint(measurement, nil, fields, r.CreatedAt)
}

// readingFromValues rebuilds a reading from a pivoted Flux record.
func readingFromValues(t time.Time, values map[string]interface{}) (entities.SensorReading, error) {
	r := entities.SensorReading{CreatedAt: t.UTC()}
	if id, ok := values["id"].(string); ok {
		r.ID = id
	}
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"temperature", &r.Temperature},
		{"humidity", &r.Humidity},
		{"moisture", &r.Moisture},
		{"ph", &r.PH},
	} {
		v, ok := toFloat(values[f.key])
		if !ok {
			return entities.SensorReading{}, fmt.Errorf("field %q missing or not numeric", f.key)
		}
		*f.dst = v
	}
	return r, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
