package sensor_simulator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/dashboard"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/services/persistence"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/services/sensordata"
)

func TestDataGenerator_StaysInRange(t *testing.T) {
	g := NewDataGenerator(GeneratorConfig{
		Seed:          7,
		Start:         model.ReadingFields{Temperature: 49.9, Humidity: 0.1, Moisture: 0.5, PH: 13.99},
		MoistureDrift: -1,
	})
	for i := 0; i < 5000; i++ {
		f := g.Next()
		assert.True(t, f.Finite())
		require.True(t, f.Temperature >= 0 && f.Temperature <= 50, "temperature %v", f.Temperature)
		require.True(t, f.Humidity >= 0 && f.Humidity <= 100, "humidity %v", f.Humidity)
		require.True(t, f.Moisture >= 0 && f.Moisture <= 100, "moisture %v", f.Moisture)
		require.True(t, f.PH >= 0 && f.PH <= 14, "ph %v", f.PH)
	}
}

func TestDataGenerator_StepsAreBounded(t *testing.T) {
	g := NewDataGenerator(GeneratorConfig{Seed: 1})
	prev := DefaultStart
	for i := 0; i < 200; i++ {
		f := g.Next()
		assert.LessOrEqual(t, math.Abs(f.Temperature-prev.Temperature), temperatureBounds.step+0.01)
		assert.LessOrEqual(t, math.Abs(f.PH-prev.PH), phBounds.step+0.01)
		prev = f
	}
}

func TestDataGenerator_SeedIsDeterministic(t *testing.T) {
	a := NewDataGenerator(GeneratorConfig{Seed: 42})
	b := NewDataGenerator(GeneratorConfig{Seed: 42})
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestDataGenerator_ClampsStart(t *testing.T) {
	g := NewDataGenerator(GeneratorConfig{Start: model.ReadingFields{Temperature: 90, Humidity: -5, Moisture: math.NaN(), PH: 20}})
	assert.Equal(t, model.ReadingFields{Temperature: 50, Humidity: 0, Moisture: 0, PH: 14}, g.cur)
}

type capturePublisher struct {
	mu       sync.Mutex
	messages []any
	err      error
}

func (p *capturePublisher) PublishMessage(m interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, m)
	return p.err
}

func (p *capturePublisher) Close() {}

func TestMQTTSink_PayloadCarriesMessageID(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewMQTTSink(pub)
	f := model.ReadingFields{Temperature: 20, Humidity: 50, Moisture: 30, PH: 7}

	require.NoError(t, sink.Send(context.Background(), f))
	require.NoError(t, sink.Send(context.Background(), f))
	require.Len(t, pub.messages, 2)

	raw, err := json.Marshal(pub.messages[0])
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 20.0, decoded["temperature"])
	assert.Equal(t, 7.0, decoded["ph"])
	assert.NotEmpty(t, decoded["message_id"])

	// the bridge accepts the payload as a reading
	parsed, err := sensordata.ParseReading(raw)
	require.NoError(t, err)
	assert.Equal(t, f, parsed)

	assert.NotEqual(t,
		pub.messages[0].(mqttPayload).MessageID,
		pub.messages[1].(mqttPayload).MessageID)
}

type collectSink struct {
	mu   sync.Mutex
	got  []model.ReadingFields
	fail bool
}

func (s *collectSink) Send(_ context.Context, f model.ReadingFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, f)
	if s.fail {
		return errors.New("broker down")
	}
	return nil
}

func (s *collectSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestSensorSimulator_SendsEveryInterval(t *testing.T) {
	sink := &collectSink{fail: true}
	sim := NewSensorSimulator(NewDataGenerator(GeneratorConfig{Seed: 3}), sink, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.Len() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"send failures must not stop the simulator")
	cancel()
	<-done
}

func TestHTTPSink_AgainstAPI(t *testing.T) {
	store := persistence.NewMemoryStore()
	srv := httptest.NewServer(sensordata.NewRouter(sensordata.NewService(store), sensordata.RouterConfig{}))
	t.Cleanup(srv.Close)

	sim := NewSensorSimulator(
		NewDataGenerator(GeneratorConfig{Seed: 9}),
		NewHTTPSink(dashboard.NewClient(srv.URL, time.Second)),
		time.Second,
	)
	for i := 0; i < 3; i++ {
		require.NoError(t, sim.SendOne(context.Background()))
	}

	all, err := store.FindSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
