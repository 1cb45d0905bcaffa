package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/broker"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/services/persistence"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/services/sensordata"
	"github.com/LeonardoBeccarini/sensor_dashboard/pkg/dedup"
	"github.com/LeonardoBeccarini/sensor_dashboard/pkg/rabbitmq"
)

func openStore(ctx context.Context, cfg Config) (persistence.ReadingStore, error) {
	switch cfg.StoreBackend {
	case "memory":
		return persistence.NewMemoryStore(), nil
	case "sql":
		return persistence.OpenSQLStore(cfg.SQLDSN)
	case "influx":
		return persistence.NewInfluxStore(ctx, persistence.InfluxConfig{
			InfluxURL:    cfg.InfluxURL,
			InfluxToken:  cfg.InfluxToken,
			InfluxOrg:    cfg.InfluxOrg,
			InfluxBucket: cfg.InfluxBucket,
			Measurement:  cfg.Measurement,
		})
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("sensordata: config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	base, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("sensordata: open %s store: %v", cfg.StoreBackend, err)
	}
	defer base.Close()
	store := persistence.NewBreaker(base, cfg.BreakerFailures, time.Duration(cfg.BreakerOpenMs)*time.Millisecond)
	log.Printf("sensordata: using %s store", cfg.StoreBackend)

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc := sensordata.NewService(store, sensordata.WithMetrics(sensordata.NewMetrics(reg)))

	// --- MQTT ---
	var checks []sensordata.ReadinessCheck
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Embedded {
			b, err := broker.New(broker.Config{Address: ":" + strconv.Itoa(cfg.MQTT.Port)})
			if err != nil {
				log.Fatalf("sensordata: embedded broker: %v", err)
			}
			if err := b.Start(); err != nil {
				log.Fatalf("sensordata: embedded broker: %v", err)
			}
			defer b.Close()
		}

		mqClient, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
			Host:              cfg.MQTT.Host,
			Port:              cfg.MQTT.Port,
			User:              cfg.MQTT.User,
			Password:          cfg.MQTT.Password,
			ClientID:          cfg.MQTT.ClientID,
			PersistentSession: true,
		})
		if err != nil {
			log.Fatalf("sensordata: mqtt connect failed: %v", err)
		}
		defer rabbitmq.CloseRabbitMQConn(mqClient)

		bridge := sensordata.NewBridge(svc, dedup.New(10*time.Minute, 20000))
		consumer := rabbitmq.NewConsumer(mqClient, bridge.Handle, 1, cfg.MQTT.Topics()...)
		go func() {
			if err := consumer.ConsumeMessage(ctx); err != nil {
				log.Printf("sensordata: mqtt consumer stopped: %v", err)
			}
		}()

		checks = append(checks, sensordata.ReadinessCheck{
			Name: "mqtt",
			Check: func(context.Context) error {
				if !mqClient.IsConnectionOpen() {
					return errors.New("not connected")
				}
				return nil
			},
		})
	}

	// --- HTTP ---
	router := sensordata.NewRouter(svc, sensordata.RouterConfig{
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Readiness: checks,
		AccessLog: cfg.AccessLog,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("sensordata: HTTP listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("sensordata: http server error: %v", err)
		}
	}()

	// --- gRPC ---
	var stopGrpc func()
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatalf("sensordata: grpc listen: %v", err)
		}
		gs, hs := sensordata.NewGrpcServer(svc)
		go func() {
			log.Printf("sensordata: gRPC listening on :%s", cfg.GRPCPort)
			if err := gs.Serve(lis); err != nil {
				log.Printf("sensordata: grpc server stopped: %v", err)
			}
		}()
		stopGrpc = func() {
			hs.Shutdown()
			gs.GracefulStop()
		}
	}

	<-ctx.Done()
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if stopGrpc != nil {
		stopGrpc()
	}
	_ = srv.Shutdown(shCtx)
	log.Println("sensordata: shutdown complete")
}
