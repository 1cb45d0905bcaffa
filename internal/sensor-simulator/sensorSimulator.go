package sensor_simulator

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model"
	"github.com/LeonardoBeccarini/sensor_dashboard/pkg/rabbitmq"
)

// Sink delivers one reading to the backend.
type Sink interface {
	Send(ctx context.Context, f model.ReadingFields) error
}

// mqttPayload is the reading plus an id the bridge uses to drop QoS1 redeliveries.
type mqttPayload struct {
	MessageID string `json:"message_id"`
	model.ReadingFields
}

type MQTTSink struct {
	publisher rabbitmq.IPublisher
}

func NewMQTTSink(p rabbitmq.IPublisher) *MQTTSink {
	return &MQTTSink{publisher: p}
}

func (s *MQTTSink) Send(_ context.Context, f model.ReadingFields) error {
	return s.publisher.PublishMessage(mqttPayload{MessageID: uuid.NewString(), ReadingFields: f})
}

// Ingester posts a reading over HTTP; dashboard.Client implements it.
type Ingester interface {
	Ingest(ctx context.Context, f model.ReadingFields) error
}

type HTTPSink struct {
	client Ingester
}

func NewHTTPSink(c Ingester) *HTTPSink {
	return &HTTPSink{client: c}
}

func (s *HTTPSink) Send(ctx context.Context, f model.ReadingFields) error {
	return s.client.Ingest(ctx, f)
}

type SensorSimulator struct {
	generator *DataGenerator
	sink      Sink
	interval  time.Duration
}

func NewSensorSimulator(gen *DataGenerator, sink Sink, interval time.Duration) *SensorSimulator {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &SensorSimulator{generator: gen, sink: sink, interval: interval}
}

// Start sends one reading per interval until ctx is cancelled. Send failures are
// logged and the next tick carries on.
func (s *SensorSimulator) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SendOne(ctx); err != nil {
				log.Printf("sensor: send error: %v", err)
			}
		}
	}
}

func (s *SensorSimulator) SendOne(ctx context.Context) error {
	f := s.generator.Next()
	log.Printf("sensor: temp=%.2f hum=%.2f moist=%.2f ph=%.2f", f.Temperature, f.Humidity, f.Moisture, f.PH)
	return s.sink.Send(ctx, f)
}
