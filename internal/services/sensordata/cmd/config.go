package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Embedded bool   `yaml:"embedded"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"` // comma separated
}

// Topics splits Topic on commas, dropping blanks.
func (m MQTTConfig) Topics() []string {
	parts := strings.Split(m.Topic, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Config struct {
	HTTPPort  string `yaml:"http_port"`
	GRPCPort  string `yaml:"grpc_port"` // empty disables gRPC
	AccessLog bool   `yaml:"access_log"`

	StoreBackend string `yaml:"store_backend"` // memory | sql | influx
	SQLDSN       string `yaml:"sql_dsn"`

	InfluxURL    string `yaml:"influx_url"`
	InfluxToken  string `yaml:"influx_token"`
	InfluxOrg    string `yaml:"influx_org"`
	InfluxBucket string `yaml:"influx_bucket"`
	Measurement  string `yaml:"measurement"`

	BreakerFailures int `yaml:"breaker_failures"`
	BreakerOpenMs   int `yaml:"breaker_open_ms"`

	MQTT MQTTConfig `yaml:"mqtt"`
}

func defaultConfig() Config {
	return Config{
		HTTPPort:        "8080",
		GRPCPort:        "50051",
		AccessLog:       true,
		StoreBackend:    "sql",
		SQLDSN:          "sensor_data.db",
		InfluxURL:       "http://localhost:8086",
		InfluxOrg:       "sdcc",
		InfluxBucket:    "sensors",
		Measurement:     "sensor_data",
		BreakerFailures: 5,
		BreakerOpenMs:   10000,
		MQTT: MQTTConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "sensordata-service",
			Topic:    "sensor/data",
		},
	}
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// loadConfig layers defaults, then CONFIG_FILE (YAML), then the environment.
// A .env file in the working directory is loaded first when present.
func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("sensordata: ignoring .env: %v", err)
	}

	cfg := defaultConfig()
	if path := env("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.HTTPPort = env("HTTP_PORT", cfg.HTTPPort)
	if v, ok := os.LookupEnv("GRPC_PORT"); ok {
		cfg.GRPCPort = strings.TrimSpace(v)
	}
	cfg.AccessLog = envBool("ACCESS_LOG", cfg.AccessLog)

	cfg.StoreBackend = strings.ToLower(env("STORE_BACKEND", cfg.StoreBackend))
	cfg.SQLDSN = env("SQL_DSN", cfg.SQLDSN)

	cfg.InfluxURL = env("INFLUX_URL", cfg.InfluxURL)
	cfg.InfluxToken = env("INFLUX_TOKEN", cfg.InfluxToken)
	cfg.InfluxOrg = env("INFLUX_ORG", cfg.InfluxOrg)
	cfg.InfluxBucket = env("INFLUX_BUCKET", cfg.InfluxBucket)
	cfg.Measurement = env("MEASUREMENT", cfg.Measurement)

	cfg.BreakerFailures = envInt("BREAKER_FAILURES", cfg.BreakerFailures)
	cfg.BreakerOpenMs = envInt("BREAKER_OPEN_MS", cfg.BreakerOpenMs)

	cfg.MQTT.Enabled = envBool("MQTT_ENABLED", cfg.MQTT.Enabled)
	cfg.MQTT.Embedded = envBool("MQTT_EMBEDDED", cfg.MQTT.Embedded)
	cfg.MQTT.Host = env("MQTT_HOST", cfg.MQTT.Host)
	cfg.MQTT.Port = envInt("MQTT_PORT", cfg.MQTT.Port)
	cfg.MQTT.User = env("MQTT_USER", cfg.MQTT.User)
	cfg.MQTT.Password = env("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.ClientID = env("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Topic = env("MQTT_TOPIC", cfg.MQTT.Topic)

	switch cfg.StoreBackend {
	case "memory", "sql", "influx":
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q (want memory, sql or influx)", cfg.StoreBackend)
	}
	if cfg.MQTT.Enabled && len(cfg.MQTT.Topics()) == 0 {
		return Config{}, fmt.Errorf("MQTT_TOPIC is empty")
	}
	return cfg, nil
}
