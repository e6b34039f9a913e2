// Package catalog queries an external movie and series database that
// speaks the TMDB v3 API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/cinecircle/server/cache"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/social"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"go.uber.org/zap"
)

const (
	MinQueryLength = 2
	MaxResults     = 10

	genreTTL = 24 * time.Hour
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("catalog: api key not configured")
	// ErrUpstream wraps failed or non-2xx answers from the catalog.
	ErrUpstream = errors.New("catalog: upstream error")
)

type Config struct {
	BaseURL   string
	ImageBase string
	APIKey    string
	Language  string
	RPS       float64
	Timeout   time.Duration
	CacheTTL  time.Duration
	// Retries is the number of extra attempts for a failed request.
	Retries int
}

// Result is one search or listing hit.
type Result struct {
	ExternalID    string          `json:"external_id"`
	Title         string          `json:"title"`
	OriginalTitle string          `json:"original_title,omitempty"`
	Year          string          `json:"year,omitempty"`
	Overview      string          `json:"overview,omitempty"`
	PosterURL     string          `json:"poster_url,omitempty"`
	Genres        []string        `json:"genres"`
	Rating        int             `json:"rating"`
	MediaType     model.MediaType `json:"media_type"`
}

// Details is the full record of one title.
type Details struct {
	Result
	BackdropURL string `json:"backdrop_url,omitempty"`
	// Runtime is in minutes; for series it is the typical episode length.
	Runtime int `json:"runtime,omitempty"`
}

type item struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Name           string  `json:"name"`
	OriginalTitle  string  `json:"original_title"`
	OriginalName   string  `json:"original_name"`
	ReleaseDate    string  `json:"release_date"`
	FirstAirDate   string  `json:"first_air_date"`
	Overview       string  `json:"overview"`
	PosterPath     string  `json:"poster_path"`
	BackdropPath   string  `json:"backdrop_path"`
	VoteAverage    float64 `json:"vote_average"`
	GenreIDs       []int64 `json:"genre_ids"`
	Genres         []genre `json:"genres"`
	Runtime        int     `json:"runtime"`
	EpisodeRuntime []int   `json:"episode_run_time"`
}

type genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type listResponse struct {
	Results []item `json:"results"`
}

type genreResponse struct {
	Genres []genre `json:"genres"`
}

// Client is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *client.Client
	cache  cache.Cache
	logger *zap.Logger
}

// NewClient builds a catalog client. c may be nil to disable caching.
//
// Requests pass through, outermost first: a circuit breaker, retries,
// collapsing of identical in-flight requests and the outbound rate limit.
func NewClient(cfg Config, c cache.Cache, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	middlewares := []middleware.Middleware{
		circuitbreaker.New(5, cfg.Timeout, 30*time.Second),
	}
	if cfg.Retries > 0 {
		middlewares = append(middlewares, retry.New(uint64(cfg.Retries), 200*time.Millisecond, 2*time.Second))
	}
	middlewares = append(middlewares,
		singleflight.New(),
		newRateLimiter(cfg.RPS),
	)

	return &Client{
		cfg: cfg,
		http: client.NewClient(
			client.WithMarshalFunc(sonic.Marshal),
			client.WithUnmarshalFunc(sonic.Unmarshal),
			client.WithLogger(newLogger(logger)),
			client.WithTimeout(cfg.Timeout),
			client.WithMiddleware(middlewares...),
		),
		cache:  c,
		logger: logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// SearchByTitle returns at most MaxResults titles of mediaType matching text.
// Queries shorter than MinQueryLength runes return nothing without a request.
func (c *Client) SearchByTitle(ctx context.Context, text string, mediaType model.MediaType) ([]Result, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinQueryLength {
		return []Result{}, nil
	}
	mediaType = normalize(mediaType)
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	key := "catalog:search:" + string(mediaType) + ":" + strings.ToLower(text)
	return cached(ctx, c, key, c.cfg.CacheTTL, func(ctx context.Context) ([]Result, error) {
		var body listResponse
		if err := c.get(ctx, "/search/"+pathSegment(mediaType), &body, "query", text, "page", "1"); err != nil {
			return nil, err
		}
		return c.results(ctx, body.Results, mediaType), nil
	})
}

// Popular returns at most MaxResults currently popular titles of mediaType.
func (c *Client) Popular(ctx context.Context, mediaType model.MediaType) ([]Result, error) {
	mediaType = normalize(mediaType)
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	key := "catalog:popular:" + string(mediaType)
	return cached(ctx, c, key, c.cfg.CacheTTL, func(ctx context.Context) ([]Result, error) {
		var body listResponse
		if err := c.get(ctx, "/"+pathSegment(mediaType)+"/popular", &body, "page", "1"); err != nil {
			return nil, err
		}
		return c.results(ctx, body.Results, mediaType), nil
	})
}

// Details fetches one title by its catalog id. An unknown id returns
// social.ErrNotFound.
func (c *Client) Details(ctx context.Context, externalID string, mediaType model.MediaType) (*Details, error) {
	id, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("catalog id %q: %w", externalID, social.ErrInvalidInput)
	}
	mediaType = normalize(mediaType)
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	key := "catalog:details:" + string(mediaType) + ":" + externalID
	return cached(ctx, c, key, c.cfg.CacheTTL, func(ctx context.Context) (*Details, error) {
		var it item
		if err := c.get(ctx, "/"+pathSegment(mediaType)+"/"+externalID, &it); err != nil {
			return nil, err
		}
		d := &Details{Result: c.result(it, mediaType, "/w500"), Runtime: it.Runtime}
		for _, g := range it.Genres {
			d.Genres = append(d.Genres, g.Name)
		}
		if d.Runtime == 0 && len(it.EpisodeRuntime) > 0 {
			d.Runtime = it.EpisodeRuntime[0]
		}
		if it.BackdropPath != "" {
			d.BackdropURL = c.image("/w1280", it.BackdropPath)
		}
		return d, nil
	})
}

// results converts listing items, resolving genre ids through the genre
// list of mediaType. A failed genre lookup leaves Genres empty.
func (c *Client) results(ctx context.Context, items []item, mediaType model.MediaType) []Result {
	names, err := c.genres(ctx, mediaType)
	if err != nil {
		c.logger.Warn("catalog genre list unavailable", zap.String("media_type", string(mediaType)), zap.Error(err))
	}
	out := make([]Result, 0, min(len(items), MaxResults))
	for _, it := range items {
		if len(out) == MaxResults {
			break
		}
		r := c.result(it, mediaType, "/w342")
		for _, id := range it.GenreIDs {
			if name, ok := names[id]; ok {
				r.Genres = append(r.Genres, name)
			}
		}
		out = append(out, r)
	}
	return out
}

func (c *Client) result(it item, mediaType model.MediaType, size string) Result {
	r := Result{
		ExternalID:    strconv.FormatInt(it.ID, 10),
		Title:         firstNonEmpty(it.Title, it.Name),
		OriginalTitle: firstNonEmpty(it.OriginalTitle, it.OriginalName),
		Year:          year(firstNonEmpty(it.ReleaseDate, it.FirstAirDate)),
		Overview:      it.Overview,
		Genres:        []string{},
		Rating:        int(math.Round(it.VoteAverage / 2)),
		MediaType:     mediaType,
	}
	if it.PosterPath != "" {
		r.PosterURL = c.image(size, it.PosterPath)
	}
	return r
}

func (c *Client) genres(ctx context.Context, mediaType model.MediaType) (map[int64]string, error) {
	key := "catalog:genres:" + string(mediaType)
	return cached(ctx, c, key, genreTTL, func(ctx context.Context) (map[int64]string, error) {
		var body genreResponse
		if err := c.get(ctx, "/genre/"+pathSegment(mediaType)+"/list", &body); err != nil {
			return nil, err
		}
		names := make(map[int64]string, len(body.Genres))
		for _, g := range body.Genres {
			names[g.ID] = g.Name
		}
		return names, nil
	})
}

// get performs one GET against the catalog and decodes the JSON body into
// dst. query holds key/value pairs.
func (c *Client) get(ctx context.Context, path string, dst any, query ...string) error {
	req := c.http.NewRequest().
		Method(http.MethodGet).
		URL(strings.TrimRight(c.cfg.BaseURL, "/")+path).
		Query("api_key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		req = req.Query("language", c.cfg.Language)
	}
	for i := 0; i+1 < len(query); i += 2 {
		req = req.Query(query[i], query[i+1])
	}

	resp, err := req.Do(ctx)
	if resp != nil {
		defer resp.Body.Close()
	}
	switch {
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("catalog %s: %w", path, social.ErrNotFound)
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	case resp.StatusCode/100 != 2:
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	if err := sonic.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decode body: %w", ErrUpstream, err)
	}
	return nil
}

// cached serves key from the cache, filling it with fetch on a miss.
func cached[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var out T
			if err := sonic.UnmarshalString(raw, &out); err == nil {
				return out, nil
			}
		}
	}
	out, err := fetch(ctx)
	if err != nil {
		return out, err
	}
	if c.cache != nil {
		if raw, err := sonic.MarshalString(out); err == nil {
			if err := c.cache.Set(ctx, key, raw, ttl); err != nil {
				c.logger.Warn("catalog cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return out, nil
}

func (c *Client) image(size, path string) string {
	return strings.TrimRight(c.cfg.ImageBase, "/") + size + path
}

func normalize(m model.MediaType) model.MediaType {
	if !m.Valid() {
		return model.MediaMovie
	}
	return m
}

func pathSegment(m model.MediaType) string {
	switch m {
	case model.MediaSeries:
		return "tv"
	case model.MediaMovie:
		return "movie"
	}
	return "movie"
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func year(date string) string {
	y, _, _ := strings.Cut(date, "-")
	return y
}
