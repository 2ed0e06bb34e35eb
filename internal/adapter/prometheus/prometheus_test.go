package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai/internal/adapter"
	"pai/internal/domain"
)

type fakeServer struct {
	*httptest.Server
	queryCalls atomic.Int32
	failFirst  atomic.Int32
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}

	mux.HandleFunc("/api/v1/status/buildinfo", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"status":"success","data":{"version":"2.50.1","revision":"abc"}}`)
	})
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		fs.queryCalls.Add(1)
		if fs.failFirst.Load() > 0 {
			fs.failFirst.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = r.ParseForm()
		switch r.Form.Get("query") {
		case "up":
			reply(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{"__name__":"up","job":"node"},"value":[1700000000,"1"]}]}}`)
		case "scalar(1)":
			reply(w, `{"status":"success","data":{"resultType":"scalar","result":[1700000000,"1"]}}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			reply(w, `{"status":"error","errorType":"bad_data","error":"parse error at char 3"}`)
		}
	})
	mux.HandleFunc("/api/v1/query_range", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"status":"success","warnings":["partial data"],"data":{"resultType":"matrix","result":[{"metric":{"job":"node"},"values":[[1700000000,"1"],[1700000015,"2"]]}]}}`)
	})
	mux.HandleFunc("/api/v1/alerts", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"status":"success","data":{"alerts":[
			{"labels":{"alertname":"Zeta","severity":"warn"},"annotations":{},"state":"pending","activeAt":"0001-01-01T00:00:00Z","value":"0"},
			{"labels":{"alertname":"HighLatency","severity":"page"},"annotations":{"summary":"slow"},"state":"firing","activeAt":"2024-01-01T00:00:00Z","value":"1e+00"}
		]}}`)
	})
	mux.HandleFunc("/api/v1/targets", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"status":"success","data":{"activeTargets":[
			{"labels":{"job":"node","instance":"b:9100"},"scrapeUrl":"http://b:9100/metrics","health":"down","lastError":"connection refused","lastScrape":"2024-01-01T00:00:00Z"},
			{"labels":{"job":"node","instance":"a:9100"},"scrapeUrl":"http://a:9100/metrics","health":"up","lastError":"","lastScrape":"2024-01-01T00:00:00Z"}
		],"droppedTargets":[]}}`)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newProvider(t *testing.T, url string, extra map[string]any) *Provider {
	t.Helper()
	opts := map[string]any{"url": url, "retry_delay": "1ms"}
	for k, v := range extra {
		opts[k] = v
	}
	p, err := New(adapter.Params{Manifest: adapter.Manifest{Name: Name, Domain: domain.Observability}, Options: opts})
	require.NoError(t, err)
	return p
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(adapter.Params{Manifest: adapter.Manifest{Name: Name, Domain: domain.Observability}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, `"url"`)
}

func TestHealthCheck(t *testing.T) {
	srv := newFakeServer(t)
	h := newProvider(t, srv.URL, nil).HealthCheck(context.Background())
	assert.True(t, h.Healthy)
	assert.Equal(t, "prometheus 2.50.1", h.Message)

	down := newProvider(t, "http://127.0.0.1:1", map[string]any{"timeout": "200ms"})
	assert.False(t, down.HealthCheck(context.Background()).Healthy)
}

func TestInstantQuery(t *testing.T) {
	srv := newFakeServer(t)
	p := newProvider(t, srv.URL, nil)
	ctx := context.Background()

	res, err := p.InstantQuery(ctx, "up", time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.ResultVector, res.Type)
	require.Len(t, res.Series, 1)
	assert.Equal(t, "node", res.Series[0].Labels["job"])
	assert.Equal(t, 1.0, res.Series[0].Samples[0].Value)
	assert.Equal(t, int64(1700000000), res.Series[0].Samples[0].Time.Unix())

	res, err = p.InstantQuery(ctx, "scalar(1)", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultScalar, res.Type)
}

func TestInstantQueryBadDataIsNotRetried(t *testing.T) {
	srv := newFakeServer(t)
	p := newProvider(t, srv.URL, nil)

	_, err := p.InstantQuery(context.Background(), "up{", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorContains(t, err, "parse error")
	assert.Equal(t, int32(1), srv.queryCalls.Load())
}

func TestInstantQueryRetriesServerErrors(t *testing.T) {
	srv := newFakeServer(t)
	srv.failFirst.Store(2)
	p := newProvider(t, srv.URL, nil)

	res, err := p.InstantQuery(context.Background(), "up", time.Now())
	require.NoError(t, err)
	assert.Len(t, res.Series, 1)
	assert.Equal(t, int32(3), srv.queryCalls.Load())
}

func TestRangeQuery(t *testing.T) {
	srv := newFakeServer(t)
	p := newProvider(t, srv.URL, nil)
	now := time.Now()

	res, err := p.RangeQuery(context.Background(), "up", domain.QueryRange{Start: now.Add(-time.Minute), End: now, Step: 15 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultMatrix, res.Type)
	assert.Equal(t, []string{"partial data"}, res.Warnings)
	require.Len(t, res.Series, 1)
	assert.Len(t, res.Series[0].Samples, 2)

	_, err = p.RangeQuery(context.Background(), "up", domain.QueryRange{Start: now, End: now})
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestListAlerts(t *testing.T) {
	srv := newFakeServer(t)
	alerts, err := newProvider(t, srv.URL, nil).ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, "HighLatency", alerts[0].Name)
	assert.Equal(t, domain.AlertFiring, alerts[0].State)
	assert.Equal(t, "page", alerts[0].Severity)
	assert.Equal(t, "slow", alerts[0].Annotations["summary"])
	require.NotNil(t, alerts[0].ActiveAt)

	assert.Equal(t, "Zeta", alerts[1].Name)
	assert.Nil(t, alerts[1].ActiveAt)
}

func TestListTargets(t *testing.T) {
	srv := newFakeServer(t)
	targets, err := newProvider(t, srv.URL, nil).ListTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "http://a:9100/metrics", targets[0].URL)
	assert.Equal(t, domain.TargetUp, targets[0].Health)
	assert.Equal(t, domain.TargetDown, targets[1].Health)
	assert.Equal(t, "connection refused", targets[1].LastError)
}

func TestAuthenticationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer right" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"alerts":[]}}`))
	}))
	defer srv.Close()

	_, err := newProvider(t, srv.URL, map[string]any{"token": "wrong"}).ListAlerts(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	t.Setenv("PAI_PROM_TOKEN", "right")
	alerts, err := newProvider(t, srv.URL, map[string]any{"token": "env:PAI_PROM_TOKEN"}).ListAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
