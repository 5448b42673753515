// Package trainer is the client of the remote NLU training service.
//
// Every call authenticates with the caller's repository authorization ID as
// bearer token. Transport failures are retried; any non-2xx response and
// exhausted retries surface as ErrUnavailable.
package trainer

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

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
)

// ErrUnavailable is returned when the trainer could not be reached or
// answered with a non-2xx status.
var ErrUnavailable = errors.New("trainer unavailable")

const (
	pathTrain    = "/v2/train/"
	pathEvaluate = "/v2/evaluate/"
	pathAnalyze  = "/v2/parse/"

	maxErrorBody = 1024
)

// Config configures a Client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxTries        uint
	InitialInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxTries == 0 {
		c.MaxTries = 3
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
}

// Client calls the trainer over HTTP.
type Client struct {
	baseURL         *url.URL
	transport       http.RoundTripper
	timeout         time.Duration
	maxTries        uint
	initialInterval time.Duration
}

// NewClient creates a Client. transport may be nil to use http.DefaultTransport.
func NewClient(cfg Config, transport http.RoundTripper) (*Client, error) {
	cfg.applyDefaults()

	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid trainer URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid trainer URL %q: scheme must be http or https", cfg.BaseURL)
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:         u,
		transport:       transport,
		timeout:         cfg.Timeout,
		maxTries:        cfg.MaxTries,
		initialInterval: cfg.InitialInterval,
	}, nil
}

// TrainRequest asks the trainer to train a version-language.
type TrainRequest struct {
	VersionLanguageID uuid.UUID             `json:"repository_version_language"`
	Language          string                `json:"language"`
	InitiatorID       uuid.UUID             `json:"by_user"`
	Config            models.TrainingConfig `json:"config"`
}

// TrainResponse acknowledges a training request.
type TrainResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id,omitempty"`
}

// EvaluateRequest asks the trainer to evaluate the trained model of a version-language.
type EvaluateRequest struct {
	VersionLanguageID uuid.UUID `json:"repository_version_language"`
	Language          string    `json:"language"`
}

// EvaluateResponse summarises an evaluation run.
type EvaluateResponse struct {
	EvaluationID string  `json:"evaluation_id"`
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	F1Score      float64 `json:"f1_score"`
}

// AnalyzeRequest asks the trained model to interpret a sentence.
type AnalyzeRequest struct {
	VersionLanguageID uuid.UUID `json:"repository_version_language"`
	Language          string    `json:"language"`
	Text              string    `json:"text"`
}

// Prediction is a labelled guess with its confidence.
type Prediction struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// AnalyzedEntity is an entity found in analysed text.
type AnalyzedEntity struct {
	Entity     string  `json:"entity"`
	Value      string  `json:"value"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// AnalyzeResponse is the interpretation of a sentence.
type AnalyzeResponse struct {
	Text          string           `json:"text"`
	Intent        Prediction       `json:"intent"`
	IntentRanking []Prediction     `json:"intent_ranking"`
	Entities      []AnalyzedEntity `json:"entities"`
}

// Train requests training of a version-language.
func (c *Client) Train(ctx context.Context, credential uuid.UUID, req *TrainRequest) (*TrainResponse, error) {
	resp := &TrainResponse{}
	if err := c.post(ctx, "train", pathTrain, credential, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Evaluate requests evaluation of a trained version-language.
func (c *Client) Evaluate(ctx context.Context, credential uuid.UUID, req *EvaluateRequest) (*EvaluateResponse, error) {
	resp := &EvaluateResponse{}
	if err := c.post(ctx, "evaluate", pathEvaluate, credential, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Analyze interprets a sentence with a trained version-language.
func (c *Client) Analyze(ctx context.Context, credential uuid.UUID, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	resp := &AnalyzeResponse{}
	if err := c.post(ctx, "analyze", pathAnalyze, credential, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// httpClient returns a client presenting credential as bearer token.
func (c *Client) httpClient(credential uuid.UUID) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: credential.String(),
				TokenType:   "Bearer",
			}),
			Base: c.transport,
		},
	}
}

func (c *Client) post(ctx context.Context, op, path string, credential uuid.UUID, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	endpoint := c.baseURL.JoinPath(path).String()
	client := c.httpClient(credential)
	attrs := metric.WithAttributes(attribute.String("op", op))
	metrics := telemetry.GetMetrics()

	metrics.TrainerRequestsTotal.Add(ctx, 1, attrs)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval

	attempt := 0
	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("Trainer request failed")
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, backoff.Permanent(fmt.Errorf("%s returned HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg))))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return data, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		metrics.TrainerErrorsTotal.Add(ctx, 1, attrs)
		log.Warn().Err(err).Str("op", op).Int("attempts", attempt).Msg("Trainer unavailable")
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}

	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		metrics.TrainerErrorsTotal.Add(ctx, 1, attrs)
		return fmt.Errorf("%w: %s: invalid response: %v", ErrUnavailable, op, err)
	}

	return nil
}
