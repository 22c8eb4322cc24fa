package imdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/IrSokolova/Letterboxd/internal/data"
)

const defaultBaseURL = "https://api.imdbapi.dev"

// randomIDSpace is the numeric suffix range the discovery probe draws from.
const randomIDSpace = 400000

// ErrTitleNotFound is returned when the title service has no entry for an id.
var ErrTitleNotFound = errors.New("title not found")

// Logger receives debug entries for discovery probes. *jsonlog.Logger
// satisfies it.
type Logger interface {
	PrintDebug(message string, properties map[string]string)
}

type noopLogger struct{}

func (noopLogger) PrintDebug(string, map[string]string) {}

// Client talks to the external title-metadata service. The zero value is not
// usable; construct one with New.
type Client struct {
	baseURL string
	client  *http.Client
	logger  Logger

	// probeDelay is the pause between failed random-discovery probes.
	probeDelay time.Duration
	rand       *rand.Rand
}

type Option func(*Client)

// WithBaseURL overrides the title service endpoint. Used by tests to point
// the client at a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithProbeDelay overrides the pause between random-discovery probes.
func WithProbeDelay(delay time.Duration) Option {
	return func(c *Client) { c.probeDelay = delay }
}

// WithLogger sets the logger that receives probe debug entries.
func WithLogger(logger Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     noopLogger{},
		probeDelay: 4 * time.Second,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// titleResponse mirrors the subset of the service response we consume.
type titleResponse struct {
	Type         string  `json:"type"`
	PrimaryTitle string  `json:"primaryTitle"`
	Plot         *string `json:"plot"`
	PrimaryImage *struct {
		URL *string `json:"url"`
	} `json:"primaryImage"`
	StartYear int `json:"startYear"`
}

// Lookup fetches metadata for an IMDb title id and maps it into a movie.
// Returns ErrTitleNotFound when the service has no entry for the id.
func (c *Client) Lookup(ctx context.Context, id string) (*data.Movie, error) {
	title, err := c.fetchTitle(ctx, id)
	if err != nil {
		return nil, err
	}

	movie := &data.Movie{
		ImdbID:      id,
		Name:        title.PrimaryTitle,
		Description: title.Plot,
		StartYear:   title.StartYear,
	}
	if title.PrimaryImage != nil {
		movie.PosterURL = title.PrimaryImage.URL
	}

	return movie, nil
}

// RandomMovieID probes random title ids until one resolves to a
// "movie"-typed title, pausing the probe delay between misses. The loop has
// no attempt bound; it only stops on success or when ctx is done.
func (c *Client) RandomMovieID(ctx context.Context) (string, error) {
	for {
		id := fmt.Sprintf("tt%07d", c.rand.Intn(randomIDSpace)+1)

		title, err := c.fetchTitle(ctx, id)
		if err == nil && title.Type == "movie" {
			return id, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		properties := map[string]string{"id": id}
		if err != nil {
			properties["error"] = err.Error()
		} else {
			properties["type"] = title.Type
		}
		c.logger.PrintDebug("random title probe missed", properties)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.probeDelay):
		}
	}
}

func (c *Client) fetchTitle(ctx context.Context, id string) (*titleResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/titles/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("title service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrTitleNotFound
	}

	var title titleResponse
	if err := json.NewDecoder(resp.Body).Decode(&title); err != nil {
		return nil, fmt.Errorf("decode title response: %w", err)
	}

	return &title, nil
}
