package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// Recording is the subset of MusicBrainz recording data the pipeline uses.
type Recording struct {
	ID             string
	Title          string
	Artist         string
	ArtistID       string
	LengthMillis   int
	Disambiguation string
	FirstDate      string // earliest release date, ISO-8601 or year-only
}

// Config captures the runtime settings for the MusicBrainz web service.
type Config struct {
	BaseURL            string
	UserAgent          string
	TimeoutSeconds     int
	RateLimitPerSecond int
}

// Client looks up recordings by MusicBrainz id. Requests are rate limited to
// the service's documented open-data policy (default one per second).
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
	sleeper  func(time.Duration)
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

// WithSleeper overrides how rate-limit waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a MusicBrainz client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	rate := cfg.RateLimitPerSecond
	if rate <= 0 {
		rate = 1
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		interval:   time.Second / time.Duration(rate),
		sleeper:    time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// LookupRecording fetches one recording by MusicBrainz id, including artist
// credits and releases.
func (c *Client) LookupRecording(ctx context.Context, recordingID string) (*Recording, error) {
	recordingID = strings.TrimSpace(recordingID)
	if recordingID == "" {
		return nil, fmt.Errorf("musicbrainz lookup: recording id required")
	}

	c.rateLimit()

	endpoint := fmt.Sprintf("%s/recording/%s?inc=artist-credits+releases&fmt=json",
		strings.TrimRight(c.cfg.BaseURL, "/"), recordingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz lookup: new request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz lookup: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz lookup: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz lookup: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload recordingResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("musicbrainz lookup: decode response: %w", err)
	}

	return payload.toRecording(), nil
}

// rateLimit spaces successive requests at least one interval apart.
func (c *Client) rateLimit() {
	c.mu.Lock()
	elapsed := time.Since(c.lastCall)
	var wait time.Duration
	if elapsed < c.interval {
		wait = c.interval - elapsed
	}
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		c.sleeper(wait)
	}
}

type recordingResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Length         int    `json:"length"`
	Disambiguation string `json:"disambiguation"`
	ArtistCredit   []struct {
		Artist struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
	Releases []struct {
		Date string `json:"date"`
	} `json:"releases"`
}

func (r *recordingResponse) toRecording() *Recording {
	rec := &Recording{
		ID:             r.ID,
		Title:          r.Title,
		LengthMillis:   r.Length,
		Disambiguation: r.Disambiguation,
	}
	if len(r.ArtistCredit) > 0 {
		rec.Artist = r.ArtistCredit[0].Artist.Name
		rec.ArtistID = r.ArtistCredit[0].Artist.ID
	}
	for _, release := range r.Releases {
		if release.Date == "" {
			continue
		}
		if rec.FirstDate == "" || release.Date < rec.FirstDate {
			rec.FirstDate = release.Date
		}
	}
	return rec
}
