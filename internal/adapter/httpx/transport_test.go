package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai/internal/domain"
)

func TestTransportMapsStatus(t *testing.T) {
	var gotAuth, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/unauthorized":
			w.WriteHeader(http.StatusUnauthorized)
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/quota":
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", "1700000060")
			w.WriteHeader(http.StatusForbidden)
		case "/throttled":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		case "/broken":
			http.Error(w, "backend exploded", http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	tr := &Transport{
		Domain:  domain.CICD,
		Adapter: "github",
		Token:   "secret",
		Header:  http.Header{"User-Agent": {"pai-test"}},
		now:     func() time.Time { return time.Unix(1700000000, 0) },
	}
	client := NewClient(tr, time.Second)

	get := func(path string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		return client.Do(req)
	}

	resp, err := get("/ok")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "pai-test", gotAgent)

	_, err = get("/unauthorized")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	_, err = get("/forbidden")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	_, err = get("/throttled")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 30*time.Second, de.RetryAfter)

	_, err = get("/quota")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindRateLimited, de.Kind)
	assert.Equal(t, time.Minute, de.RetryAfter)

	resp, err = get("/broken")
	require.NoError(t, err)
	defer resp.Body.Close()
	err = CheckResponse(resp)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Contains(t, err.Error(), "backend exploded")
	assert.True(t, Retryable(err))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 5*time.Second, ParseRetryAfter("5", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-1", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon", now))
	assert.Equal(t, 90*time.Second, ParseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(now.Add(-time.Hour).Format(http.TimeFormat), now))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(domain.RateLimited(domain.CICD, "github", 0)))
	assert.False(t, Retryable(domain.AuthenticationFailed(domain.CICD, "github", nil)))
	assert.False(t, Retryable(&StatusError{Code: 404}))
	assert.True(t, Retryable(&StatusError{Code: 503}))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(errors.New("invalid character in JSON")))

	_, err := http.Get("http://127.0.0.1:1")
	require.Error(t, err)
	assert.True(t, Retryable(err))
}
