// Package dispatch wraps the external generation job queue. Enqueues are
// fire-and-forget; a failure after a committed state transition is logged and
// left for reconciliation, never bubbled up to the caller.
package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Regenerate bool `json:"regenerate,omitempty"`
}

type Dispatcher interface {
	EnqueueGeneration(storyID, inputID string, opts Options) error
}

// Func adapts a function to the Dispatcher interface.
type Func func(storyID, inputID string, opts Options) error

func (f Func) EnqueueGeneration(storyID, inputID string, opts Options) error {
	return f(storyID, inputID, opts)
}

// HTTPDispatcher posts generation jobs to the queue's intake endpoint.
type HTTPDispatcher struct {
	URL    string
	Secret string
	Client *http.Client
	Log    zerolog.Logger
}

func NewHTTP(url, secret string, log zerolog.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		URL:    url,
		Secret: secret,
		Client: &http.Client{Timeout: 10 * time.Second},
		Log:    log,
	}
}

func (d *HTTPDispatcher) EnqueueGeneration(storyID, inputID string, opts Options) error {
	payload, err := json.Marshal(map[string]interface{}{
		"story_id": storyID,
		"input_id": inputID,
		"options":  opts,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, d.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.Secret != "" {
		req.Header.Set("X-Dispatch-Secret", d.Secret)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.Log.Error().
			Str("story_id", storyID).
			Int("status", resp.StatusCode).
			Msg("generation enqueue rejected")
		return &EnqueueError{StatusCode: resp.StatusCode}
	}
	return nil
}

type EnqueueError struct {
	StatusCode int
}

func (e *EnqueueError) Error() string {
	return "dispatcher rejected enqueue"
}
