package sensordata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/sensor_dashboard/pkg/dedup"
)

// Bridge feeds readings published on MQTT into the service. Payloads are the same
// JSON object the HTTP endpoint takes, plus an optional message_id used to drop
// QoS1 redeliveries.
type Bridge struct {
	svc     *Service
	dedup   *dedup.Deduper
	timeout time.Duration
}

func NewBridge(svc *Service, d *dedup.Deduper) *Bridge {
	return &Bridge{svc: svc, dedup: d, timeout: 5 * time.Second}
}

// Handle has the rabbitmq.Handler signature. Invalid payloads are dropped with an error
// (logged by the consumer); nothing is persisted for them.
func (b *Bridge) Handle(topic string, m mqtt.Message) error {
	raw, err := decodeObject(m.Payload())
	if err != nil {
		b.svc.metrics.ingest(TransportMQTT, resultInvalid)
		return fmt.Errorf("topic %s: %w", topic, err)
	}
	f, err := fieldsFromObject(raw)
	if err != nil {
		b.svc.metrics.ingest(TransportMQTT, resultInvalid)
		return fmt.Errorf("topic %s: %w", topic, err)
	}

	id := messageID(raw)
	if b.dedup != nil && !b.dedup.ShouldProcess(id) {
		b.svc.metrics.ingest(TransportMQTT, resultDup)
		log.Printf("sensordata: dropping duplicate message %s on %s", id, topic)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if _, err := b.svc.IngestFields(ctx, TransportMQTT, f); err != nil {
		// let a redelivery of the same message try again
		if b.dedup != nil && !errors.Is(err, ErrInvalidInput) {
			b.dedup.Forget(id)
		}
		return fmt.Errorf("topic %s: %w", topic, err)
	}
	return nil
}

func messageID(raw map[string]json.RawMessage) string {
	v, ok := raw["message_id"]
	if !ok {
		return ""
	}
	var id string
	if err := json.Unmarshal(v, &id); err != nil {
		return ""
	}
	return id
}
