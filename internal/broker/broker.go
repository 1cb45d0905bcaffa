// Package broker runs an in-process MQTT broker for single-binary deployments
// and tests.
package broker

import (
	"bytes"
	"fmt"
	"log"
	"log/slog"
	"os"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

type Config struct {
	Address string // e.g. ":1883"
}

type Broker struct {
	server  *mqtt.Server
	address string
}

// New builds a broker that accepts every client on a TCP listener.
func New(cfg Config) (*Broker, error) {
	if cfg.Address == "" {
		cfg.Address = ":1883"
	}
	server := mqtt.New(&mqtt.Options{
		InlineClient: false,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add auth hook: %w", err)
	}
	if err := server.AddHook(new(connectionHook), nil); err != nil {
		return nil, fmt.Errorf("add connection hook: %w", err)
	}
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: cfg.Address})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("add listener %s: %w", cfg.Address, err)
	}
	return &Broker{server: server, address: cfg.Address}, nil
}

// Start begins accepting connections and returns immediately.
func (b *Broker) Start() error {
	if err := b.server.Serve(); err != nil {
		return fmt.Errorf("serve mqtt on %s: %w", b.address, err)
	}
	log.Printf("broker: listening on %s", b.address)
	return nil
}

func (b *Broker) Close() error {
	return b.server.Close()
}

type connectionHook struct {
	mqtt.HookBase
}

func (h *connectionHook) ID() string { return "connection-log" }

func (h *connectionHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnConnect,
		mqtt.OnDisconnect,
	}, []byte{b})
}

func (h *connectionHook) OnConnect(cl *mqtt.Client, pk packets.Packet) error {
	log.Printf("broker: client connected: %s", cl.ID)
	return nil
}

func (h *connectionHook) OnDisconnect(cl *mqtt.Client, err error, expire bool) {
	if err != nil {
		log.Printf("broker: client %s disconnected: %v", cl.ID, err)
		return
	}
	log.Printf("broker: client disconnected: %s", cl.ID)
}
