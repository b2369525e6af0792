package vitals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Forwarder posts each metric to an external monitoring endpoint. Sends run
// in the background; Record never blocks on the network.
type Forwarder struct {
	endpoint    string
	environment string
	client      *http.Client
	onError     func(error)
	wg          sync.WaitGroup
}

// NewForwarder returns a forwarder for endpoint. onError may be nil.
func NewForwarder(endpoint, environment string, onError func(error)) *Forwarder {
	return &Forwarder{
		endpoint:    endpoint,
		environment: environment,
		client:      &http.Client{Timeout: 5 * time.Second},
		onError:     onError,
	}
}

type forwardPayload struct {
	Metric
	Environment string `json:"environment"`
}

func (f *Forwarder) Record(_ context.Context, m Metric) error {
	body, err := json.Marshal(forwardPayload{Metric: m, Environment: f.environment})
	if err != nil {
		return fmt.Errorf("encode metric: %w", err)
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.send(body); err != nil && f.onError != nil {
			f.onError(err)
		}
	}()
	return nil
}

func (f *Forwarder) send(body []byte) error {
	req, err := http.NewRequest(http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send metrics: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send metrics: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send metrics: %s returned %d", f.endpoint, resp.StatusCode)
	}
	return nil
}

// Wait blocks until every pending send has finished.
func (f *Forwarder) Wait() {
	f.wg.Wait()
}
