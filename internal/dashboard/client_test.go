package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"
)

func TestClient_Latest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sensor-data/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"temperature":21,"humidity":40,"moisture":30,"ph":7,"createdAt":1735787045678}`))
	}))
	t.Cleanup(srv.Close)

	l, err := NewClient(srv.URL+"/", time.Second).Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, messages.LatestSensorData{Temperature: 21, Humidity: 40, Moisture: 30, PH: 7, CreatedAt: 1735787045678}, l)
}

func TestClient_LatestErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"not found", http.StatusNotFound, `{"error":"No data available"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNoData)
		}},
		{"server error", http.StatusInternalServerError, `{"error":"Internal server error"}`, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, http.StatusInternalServerError, se.Code)
			assert.NotErrorIs(t, err, ErrNoData)
		}},
		{"malformed body", http.StatusOK, `{"temperature":`, func(t *testing.T, err error) {
			assert.Error(t, err)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)
			_, err := NewClient(srv.URL, time.Second).Latest(context.Background())
			tc.check(t, err)
		})
	}
}

func TestClient_LatestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 200*time.Millisecond).Latest(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestClient_History(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sensor-data/history", r.URL.Path)
		if r.URL.Query().Get("range") == "6h" {
			_, _ = w.Write([]byte(`[{"createdAt":"2025-01-02T03:04:05.678Z","temperature":1,"humidity":2,"moisture":3,"ph":4}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, time.Second)

	h, err := c.History(context.Background(), "6h")
	require.NoError(t, err)
	assert.Equal(t, messages.HistorySensorData{{CreatedAt: "2025-01-02T03:04:05.678Z", Temperature: 1, Humidity: 2, Moisture: 3, PH: 4}}, h)

	h, err = c.History(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Empty(t, h)
}

func TestClient_Ingest(t *testing.T) {
	var got entities.ReadingFields
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(srv.Close)

	f := entities.ReadingFields{Temperature: 20, Humidity: 50, Moisture: 30, PH: 6.5}
	require.NoError(t, NewClient(srv.URL, time.Second).Ingest(context.Background(), f))
	assert.Equal(t, f, got)
}
