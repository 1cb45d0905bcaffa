package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/messages"
)

// ErrNoData is returned by Latest when the API has no reading yet.
var ErrNoData = errors.New("no data available")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s -> %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Client incapsula le chiamate HTTP verso l'API sensor-data
type Client struct {
	base   string
	client *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(strings.TrimSpace(base), "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// Latest fetches the newest reading. A 404 becomes ErrNoData.
func (c *Client) Latest(ctx context.Context) (messages.LatestSensorData, error) {
	var out messages.LatestSensorData
	err := c.do(ctx, http.MethodGet, "/sensor-data/latest", nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return messages.LatestSensorData{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if err != nil {
		return messages.LatestSensorData{}, err
	}
	return out, nil
}

// History scarica la finestra indicata da rng ("1h", "6h", "24h", "7d")
func (c *Client) History(ctx context.Context, rng string) (messages.HistorySensorData, error) {
	path := "/sensor-data/history"
	if rng != "" {
		path += "?" + url.Values{"range": {rng}}.Encode()
	}
	out := messages.HistorySensorData{}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = messages.HistorySensorData{}
	}
	return out, nil
}

// Ingest invia una lettura
func (c *Client) Ingest(ctx context.Context, f entities.ReadingFields) error {
	return c.do(ctx, http.MethodPost, "/sensor-data", f, nil)
}
