package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/dashboard"
	sensorSimulator "github.com/LeonardoBeccarini/sensor_dashboard/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/sensor_dashboard/pkg/rabbitmq"
)

func main() {
	mode := flag.String("mode", "mqtt", "transport: mqtt or http")
	apiURL := flag.String("api-url", "http://localhost:8080", "sensor-data API base URL (http mode)")
	host := flag.String("mqtt-host", "localhost", "MQTT broker host")
	port := flag.Int("mqtt-port", 1883, "MQTT broker port")
	user := flag.String("mqtt-user", "guest", "MQTT user")
	pass := flag.String("mqtt-password", "guest", "MQTT password")
	clientID := flag.String("client-id", "sensorPublisher1", "MQTT client ID")
	topic := flag.String("topic", "sensor/data", "MQTT topic")
	interval := flag.Duration("interval", 3*time.Second, "publish interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	drift := flag.Float64("moisture-drift", -0.02, "moisture change per tick before noise")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink sensorSimulator.Sink
	switch *mode {
	case "mqtt":
		cfg := &rabbitmq.RabbitMQConfig{
			Host:     *host,
			Port:     *port,
			User:     *user,
			Password: *pass,
			ClientID: *clientID,
		}
		client, err := rabbitmq.NewRabbitMQConn(ctx, cfg)
		if err != nil {
			log.Fatal(err)
		}
		publisher := rabbitmq.NewPublisher(client, *topic, 1)
		defer publisher.Close()
		sink = sensorSimulator.NewMQTTSink(publisher)
	case "http":
		sink = sensorSimulator.NewHTTPSink(dashboard.NewClient(*apiURL, 5*time.Second))
	default:
		log.Fatalf("unknown mode %q (want mqtt or http)", *mode)
	}

	generator := sensorSimulator.NewDataGenerator(sensorSimulator.GeneratorConfig{
		Seed:          *seed,
		Start:         sensorSimulator.DefaultStart,
		MoistureDrift: *drift,
	})
	sensorSimulator.NewSensorSimulator(generator, sink, *interval).Start(ctx)
}
