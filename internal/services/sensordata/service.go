package sensordata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/services/persistence"
)

// Transport names, used as the "transport" metric label.
const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
	TransportGRPC = "grpc"
)

// Service is the transport-independent core: every ingestion path and query goes
// through it so validation and error mapping are the same everywhere.
type Service struct {
	store   persistence.ReadingStore
	now     func() time.Time
	metrics *Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

// WithClock sets the clock used to compute history windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store persistence.ReadingStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		tracer: otel.Tracer("sensordata"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest validates a raw JSON payload and appends it.
func (s *Service) Ingest(ctx context.Context, transport string, body []byte) (entities.SensorReading, error) {
	f, err := ParseReading(body)
	if err != nil {
		s.metrics.ingest(transport, resultInvalid)
		return entities.SensorReading{}, err
	}
	return s.IngestFields(ctx, transport, f)
}

// IngestFields appends already decoded measurements.
func (s *Service) IngestFields(ctx context.Context, transport string, f entities.ReadingFields) (entities.SensorReading, error) {
	ctx, span := s.tracer.Start(ctx, "sensordata.Ingest",
		trace.WithAttributes(attribute.String("transport", transport)))
	defer span.End()

	r, err := s.store.Append(ctx, f)
	if err != nil {
		if errors.Is(err, persistence.ErrValidation) {
			s.metrics.ingest(transport, resultInvalid)
			return entities.SensorReading{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		s.metrics.ingest(transport, resultError)
		return entities.SensorReading{}, fmt.Errorf("append reading: %w", err)
	}

	s.metrics.ingest(transport, resultOK)
	s.metrics.setLatest(r.CreatedAt)
	span.SetAttributes(attribute.String("reading_id", r.ID))
	return r, nil
}

// Latest returns the newest reading, or ErrNotFound on an empty store.
func (s *Service) Latest(ctx context.Context) (messages.LatestSensorData, error) {
	ctx, span := s.tracer.Start(ctx, "sensordata.Latest")
	defer span.End()
	defer s.metrics.observeQuery("latest", time.Now())

	r, err := s.store.FindLatest(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find latest failed")
		return messages.LatestSensorData{}, fmt.Errorf("find latest: %w", err)
	}
	if r == nil {
		span.SetAttributes(attribute.Bool("found", false))
		return messages.LatestSensorData{}, ErrNotFound
	}
	span.SetAttributes(attribute.Bool("found", true))
	return messages.ToLatest(*r), nil
}

// History returns every reading of the window named by token, ascending.
// Unknown tokens fall back to DefaultRange; an empty window is not an error.
func (s *Service) History(ctx context.Context, token string) (messages.HistorySensorData, error) {
	rng, ok := ParseRange(token)
	if !ok && token != "" {
		log.Printf("sensordata: unknown history range %q, using %s", token, rng)
	}

	ctx, span := s.tracer.Start(ctx, "sensordata.History",
		trace.WithAttributes(attribute.String("range", string(rng))))
	defer span.End()
	defer s.metrics.observeQuery("history", time.Now())

	since := s.now().Add(-rng.Duration())
	list, err := s.store.FindSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find since failed")
		return nil, fmt.Errorf("find since %s: %w", since.Format(time.RFC3339), err)
	}
	span.SetAttributes(attribute.Int("result_count", len(list)))
	return messages.ToHistory(list), nil
}

// Ready pings the store.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
