package acoustid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// Match is one fingerprint lookup result: a scored AcoustID with the
// MusicBrainz recording ids it maps to.
type Match struct {
	AcoustID     string
	Score        float64
	RecordingIDs []string
}

// Config captures the runtime settings for the AcoustID web service.
type Config struct {
	APIKey         string
	BaseURL        string
	FpcalcBinary   string
	TimeoutSeconds int
}

// Client performs acoustic fingerprint lookups: fpcalc for the raw
// Chromaprint, then the AcoustID lookup API for scored recording ids.
type Client struct {
	cfg        Config
	httpClient *http.Client
	exec       Executor
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithExecutor injects a custom fpcalc executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// NewClient constructs an AcoustID client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if strings.TrimSpace(cfg.FpcalcBinary) == "" {
		cfg.FpcalcBinary = "fpcalc"
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		exec:       commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Lookup fingerprints the audio file and resolves it against the AcoustID
// service, returning matches ordered by descending score.
func (c *Client) Lookup(ctx context.Context, path string) ([]Match, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("acoustid lookup: api key required")
	}

	fp, err := c.fingerprint(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("acoustid lookup: fpcalc: %w", err)
	}

	params := url.Values{}
	params.Set("client", c.cfg.APIKey)
	params.Set("format", "json")
	params.Set("meta", "recordingids")
	params.Set("duration", strconv.Itoa(fp.Duration))
	params.Set("fingerprint", fp.Fingerprint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("acoustid lookup: new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acoustid lookup: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("acoustid lookup: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("acoustid lookup: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("acoustid lookup: decode response: %w", err)
	}
	if payload.Status != "ok" {
		msg := "unknown error"
		if payload.Error != nil {
			msg = payload.Error.Message
		}
		return nil, fmt.Errorf("acoustid lookup: service error: %s", msg)
	}

	matches := make([]Match, 0, len(payload.Results))
	for _, result := range payload.Results {
		match := Match{AcoustID: result.ID, Score: result.Score}
		for _, rec := range result.Recordings {
			if rec.ID != "" {
				match.RecordingIDs = append(match.RecordingIDs, rec.ID)
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

type lookupResponse struct {
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
	Results []struct {
		ID         string  `json:"id"`
		Score      float64 `json:"score"`
		Recordings []struct {
			ID string `json:"id"`
		} `json:"recordings"`
	} `json:"results"`
}
