package client

import (
	"bytes"
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

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Endpoints of the api-football v3 API used by the sync services
const (
	EndpointLeagues           = "leagues"
	EndpointFixtures          = "fixtures"
	EndpointPredictions       = "predictions"
	EndpointFixtureStatistics = "fixtures/statistics"
	EndpointOdds              = "odds"
)

// maxPages bounds the requests made by a single paged call
const maxPages = 50

// Limiter gates outbound calls. ratelimit.Limiter satisfies it.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Client is the api-football v3 client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    Limiter
}

// NewClient creates a new api-football client. Every request passes through limiter.
func NewClient(baseURL, apiKey string, timeout time.Duration, limiter Limiter) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: limiter,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// APIError is a non-200 response or an envelope carrying errors
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("api-football %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api-football %s returned errors: %s", e.Endpoint, e.Message)
}

// IsAuth reports an authentication failure
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited reports an upstream 429
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// DecodeError is a response that does not match the expected schema
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Paging is the paging block of the envelope
type Paging struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Envelope is the common response wrapper of every endpoint
type Envelope[T any] struct {
	Get        string          `json:"get"`
	Parameters json.RawMessage `json:"parameters"`
	Errors     json.RawMessage `json:"errors"`
	Results    int             `json:"results"`
	Paging     Paging          `json:"paging"`
	Response   []T             `json:"response"`
}

// errorMessage returns the text of a non-empty errors field. The API sends
// either an empty array or an object keyed by field.
func errorMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("[]")) || bytes.Equal(raw, []byte("{}")) {
		return ""
	}

	var byField map[string]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		parts := make([]string, 0, len(byField))
		for k, v := range byField {
			parts = append(parts, k+": "+v)
		}
		return strings.Join(parts, "; ")
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}

	return string(raw)
}

// get performs one limiter-gated GET request and returns the body of a 200 response
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		metrics.RecordAPICall(endpoint, "limited", 0)
		return nil, fmt.Errorf("api-football %s: %w", endpoint, err)
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "LoneWolfCast/1.0")
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}

	log.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.RawQuery).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "transport_error", time.Since(start).Seconds())
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordAPICall(endpoint, "transport_error", duration)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.RecordAPICall(endpoint, strconv.Itoa(resp.StatusCode), duration)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: truncate(string(body), 200)}
		log.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Bool("auth", apiErr.IsAuth()).
			Msg("API request failed")
		return nil, apiErr
	}

	log.Debug().
		Str("endpoint", endpoint).
		Int("size", len(body)).
		Float64("duration", duration).
		Msg("API request successful")

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// fetchAll decodes up to maxPages pages of endpoint. Records failing validate
// are logged and skipped so one bad entry does not drop the rest of the
// response; an undecodable envelope fails the whole call.
func fetchAll[T any](ctx context.Context, c *Client, endpoint string, params url.Values, validate func(*T) error) ([]T, error) {
	var all []T

	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		for k, v := range params {
			query[k] = v
		}
		if page > 1 {
			query.Set("page", strconv.Itoa(page))
		}

		body, err := c.get(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}

		var env Envelope[T]
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, &DecodeError{Endpoint: endpoint, Err: err}
		}
		if msg := errorMessage(env.Errors); msg != "" {
			return nil, &APIError{Endpoint: endpoint, StatusCode: http.StatusOK, Message: msg}
		}

		for i := range env.Response {
			if err := validate(&env.Response[i]); err != nil {
				metrics.RecordError("client", "invalid_record")
				log.Error().
					Err(err).
					Str("endpoint", endpoint).
					Int("page", page).
					Int("record", i).
					Msg("Skipping invalid record")
				continue
			}
			all = append(all, env.Response[i])
		}

		// Stop when the upstream reports no further page or ignores the page parameter
		if env.Paging.Current < page || env.Paging.Current >= env.Paging.Total {
			break
		}
		if page == maxPages {
			log.Warn().
				Str("endpoint", endpoint).
				Int("total_pages", env.Paging.Total).
				Msg("Page limit reached, remaining pages not fetched")
		}
	}

	return all, nil
}

// FetchLeagues fetches every league with its seasons and coverage
func (c *Client) FetchLeagues(ctx context.Context) ([]models.LeagueInput, error) {
	leagues, err := fetchAll(ctx, c, EndpointLeagues, nil, func(l *models.LeagueInput) error { return l.Validate() })
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leagues: %w", err)
	}

	log.Info().Int("count", len(leagues)).Msg("Fetched leagues")
	return leagues, nil
}

// FetchFixtures fetches every fixture of a league season
func (c *Client) FetchFixtures(ctx context.Context, leagueID, season int) ([]models.FixtureInput, error) {
	params := url.Values{}
	params.Set("league", strconv.Itoa(leagueID))
	params.Set("season", strconv.Itoa(season))

	fixtures, err := fetchAll(ctx, c, EndpointFixtures, params, func(f *models.FixtureInput) error { return f.Validate() })
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures for league %d season %d: %w", leagueID, season, err)
	}

	return fixtures, nil
}

// FetchPredictions fetches the predictions of a fixture. An empty slice means
// the API has no prediction for it.
func (c *Client) FetchPredictions(ctx context.Context, fixtureID int) ([]models.PredictionInput, error) {
	params := url.Values{}
	params.Set("fixture", strconv.Itoa(fixtureID))

	predictions, err := fetchAll(ctx, c, EndpointPredictions, params, func(p *models.PredictionInput) error { return p.Validate() })
	if err != nil {
		return nil, fmt.Errorf("failed to fetch predictions for fixture %d: %w", fixtureID, err)
	}

	return predictions, nil
}

// FetchFixtureStatistics fetches per-team statistics of a fixture
func (c *Client) FetchFixtureStatistics(ctx context.Context, fixtureID int) ([]models.FixtureStatisticsInput, error) {
	params := url.Values{}
	params.Set("fixture", strconv.Itoa(fixtureID))

	stats, err := fetchAll(ctx, c, EndpointFixtureStatistics, params, func(s *models.FixtureStatisticsInput) error { return s.Validate() })
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statistics for fixture %d: %w", fixtureID, err)
	}

	return stats, nil
}

// FetchOdds fetches pre-match bookmaker odds of a fixture
func (c *Client) FetchOdds(ctx context.Context, fixtureID int) ([]models.OddsInput, error) {
	params := url.Values{}
	params.Set("fixture", strconv.Itoa(fixtureID))

	odds, err := fetchAll(ctx, c, EndpointOdds, params, func(o *models.OddsInput) error { return o.Validate() })
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for fixture %d: %w", fixtureID, err)
	}

	return odds, nil
}

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}
