package skills

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"skillgap/internal/config"
	"skillgap/internal/errors"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Entity is a span the tagger labelled in the input text.
// Start and End are character offsets.
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Tagger is a zero-shot named-entity model asked to find skill-like spans
type Tagger interface {
	Predict(ctx context.Context, text string, labels []string, threshold float64) ([]Entity, error)
}

type predictRequest struct {
	Text      string   `json:"text"`
	Labels    []string `json:"labels"`
	Threshold float64  `json:"threshold"`
}

type predictResponse struct {
	Entities []Entity `json:"entities"`
}

// maxTaggerResponse bounds how much of a tagger reply is read
const maxTaggerResponse = 4 << 20

// RemoteTagger calls a GLiNER-compatible inference service over HTTP
type RemoteTagger struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[[]Entity]
}

// NewRemoteTagger creates a tagger client for cfg.Endpoint
func NewRemoteTagger(cfg *config.TaggerConfig, logger *errors.Logger) (*RemoteTagger, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "tagger endpoint is required when the tagger is enabled", nil)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tagger := &RemoteTagger{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	if cfg.CircuitBreaker.Enabled {
		tagger.cb = gobreaker.NewCircuitBreaker[[]Entity](gobreaker.Settings{
			Name:        "Skill-Tagger",
			MaxRequests: cfg.CircuitBreaker.MaxRequests,
			Interval:    cfg.CircuitBreaker.Interval,
			Timeout:     cfg.CircuitBreaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= cfg.CircuitBreaker.MinRequests &&
					failureRatio >= cfg.CircuitBreaker.FailureThreshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				if logger != nil {
					logger.Info("Circuit breaker state changed",
						"name", name,
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}

	return tagger, nil
}

// Predict sends text to the inference service and returns the entities it found
func (t *RemoteTagger) Predict(ctx context.Context, text string, labels []string, threshold float64) ([]Entity, error) {
	call := func() ([]Entity, error) {
		return t.predict(ctx, text, labels, threshold)
	}
	if t.cb == nil {
		return call()
	}
	return t.cb.Execute(call)
}

func (t *RemoteTagger) predict(ctx context.Context, text string, labels []string, threshold float64) ([]Entity, error) {
	body, err := json.Marshal(predictRequest{Text: text, Labels: labels, Threshold: threshold})
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeTaggerFailed, "failed to encode tagger request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeTaggerFailed, "failed to build tagger request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeTaggerFailed, "tagger request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxTaggerResponse))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeTaggerFailed, "failed to read tagger response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetworkError(errors.ErrCodeTaggerFailed,
			fmt.Sprintf("tagger returned status %d", resp.StatusCode), nil).
			WithContext("status_code", resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeTaggerFailed, "tagger returned malformed JSON", err)
	}
	return decoded.Entities, nil
}
