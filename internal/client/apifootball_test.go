package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lonewolfcast/ingestion/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLimiter struct {
	calls atomic.Int32
	err   error
}

func (l *countingLimiter) Acquire(context.Context) error {
	l.calls.Add(1)
	return l.err
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *countingLimiter) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	limiter := &countingLimiter{}
	return NewClient(srv.URL, "test-key", 5*time.Second, limiter), limiter
}

func TestClient_FetchLeagues(t *testing.T) {
	c, limiter := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leagues", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-apisports-key"))
		w.Write(fixture(t, "leagues.json"))
	})

	leagues, err := c.FetchLeagues(context.Background())
	require.NoError(t, err)
	require.Len(t, leagues, 1)
	assert.Equal(t, 39, leagues[0].League.ID)
	assert.Len(t, leagues[0].Seasons, 2)
	assert.True(t, leagues[0].Seasons[1].Coverage.Odds)
	assert.Equal(t, int32(1), limiter.calls.Load())
}

func TestClient_FetchFixtures(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fixtures", r.URL.Path)
		assert.Equal(t, "39", r.URL.Query().Get("league"))
		assert.Equal(t, "2024", r.URL.Query().Get("season"))
		w.Write(fixture(t, "fixtures.json"))
	})

	fixtures, err := c.FetchFixtures(context.Background(), 39, 2024)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.Equal(t, "FT", fixtures[0].Fixture.Status.Short)
	assert.Nil(t, fixtures[1].Goals.Home)
}

func TestClient_FetchPredictionsAndStats(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1208021", r.URL.Query().Get("fixture"))
		switch r.URL.Path {
		case "/predictions":
			w.Write(fixture(t, "predictions.json"))
		case "/fixtures/statistics":
			w.Write(fixture(t, "statistics.json"))
		default:
			http.NotFound(w, r)
		}
	})

	predictions, err := c.FetchPredictions(context.Background(), 1208021)
	require.NoError(t, err)
	require.Len(t, predictions, 1)
	assert.Equal(t, "Double chance : Manchester United or draw", *predictions[0].Predictions.Advice)

	stats, err := c.FetchFixtureStatistics(context.Background(), 1208021)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 55.0, stats[0].ToTeamStatistics().Possession.Float64)
}

func TestClient_FetchOdds(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/odds", r.URL.Path)
		w.Write(fixture(t, "odds.json"))
	})

	odds, err := c.FetchOdds(context.Background(), 1208022)
	require.NoError(t, err)
	require.Len(t, odds, 1)
	assert.Len(t, odds[0].Bookmakers[0].Bets, 3)
}

func TestClient_FollowsPaging(t *testing.T) {
	c, limiter := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}
		fmt.Fprintf(w, `{"errors": [], "paging": {"current": %s, "total": 2},
			"response": [{"fixture": {"id": 1%s}, "update": "", "bookmakers": []}]}`, page, page)
	})

	odds, err := c.FetchOdds(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, odds, 2)
	assert.Equal(t, 11, odds[0].Fixture.ID)
	assert.Equal(t, 12, odds[1].Fixture.ID)
	assert.Equal(t, int32(2), limiter.calls.Load(), "Every page is a gated call")
}

func TestClient_StopsWhenPagingIsStuck(t *testing.T) {
	var served atomic.Int32
	c, limiter := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		w.Write([]byte(`{"errors": [], "paging": {"current": 1, "total": 3}, "response": []}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := c.FetchFixtures(ctx, 39, 2024)
	require.NoError(t, err)
	assert.Equal(t, int32(2), served.Load(), "A page that echoes an older page number ends the walk")
	assert.Equal(t, int32(2), limiter.calls.Load())
}

func TestClient_PageLimit(t *testing.T) {
	var served atomic.Int32
	c, limiter := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := served.Add(1)
		fmt.Fprintf(w, `{"errors": [], "paging": {"current": %d, "total": 1000}, "response": []}`, n)
	})

	_, err := c.FetchFixtures(context.Background(), 39, 2024)
	require.NoError(t, err)
	assert.Equal(t, int32(maxPages), served.Load())
	assert.Equal(t, int32(maxPages), limiter.calls.Load())
}

func TestClient_SkipsInvalidRecords(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [], "results": 2, "paging": {"current": 1, "total": 1}, "response": [
			{"league": {"id": 39, "name": "Premier League", "type": "League"},
			 "country": {"name": "England"},
			 "seasons": [{"year": 2024, "current": true, "coverage": {"predictions": true}}]},
			{"league": {"id": 0}}
		]}`))
	})

	leagues, err := c.FetchLeagues(context.Background())
	require.NoError(t, err, "One bad entry must not fail the call")
	require.Len(t, leagues, 1)
	assert.Equal(t, 39, leagues[0].League.ID)
}

func TestClient_EnvelopeErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": {"token": "Error/Missing application key."}, "results": 0, "response": []}`))
	})

	_, err := c.FetchLeagues(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "Missing application key")
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status      int
		auth        bool
		rateLimited bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusInternalServerError, false, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := c.FetchLeagues(context.Background())
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.auth, apiErr.IsAuth())
			assert.Equal(t, tt.auth, IsAuthError(err))
			assert.Equal(t, tt.rateLimited, apiErr.IsRateLimited())
		})
	}
}

func TestClient_SchemaMismatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [], "response": [{"fixture": {"id": "not-a-number"}}]}`))
	})

	_, err := c.FetchFixtures(context.Background(), 39, 2024)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, EndpointFixtures, decodeErr.Endpoint)
}

func TestClient_InvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.FetchLeagues(context.Background())
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestClient_LimiterRefusal(t *testing.T) {
	hit := false
	c, limiter := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hit = true
	})
	limiter.err = ratelimit.ErrRateLimitExceeded

	_, err := c.FetchLeagues(context.Background())
	assert.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	assert.False(t, hit, "No request leaves once the quota is spent")
}

func TestErrorMessage(t *testing.T) {
	assert.Empty(t, errorMessage(nil))
	assert.Empty(t, errorMessage([]byte(`[]`)))
	assert.Empty(t, errorMessage([]byte(`{}`)))
	assert.Equal(t, "bad", errorMessage([]byte(`["bad"]`)))
	assert.Equal(t, "plan: limit", errorMessage([]byte(`{"plan": "limit"}`)))
}
