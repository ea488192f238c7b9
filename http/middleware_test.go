package http_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	boxhttp "github.com/sagarc03/boxgate/http"
	"github.com/sagarc03/boxgate/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit_SixtyFirstRequestRejected(t *testing.T) {
	g := newTestGateway(t, func(_ *boxhttp.HandlerConfig, rl *ratelimit.Config) {
		rl.GlobalLimit = 60
	})

	for i := 1; i <= 60; i++ {
		rec := g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"), "retry after the rest of the window")
	assert.Equal(t, boxhttp.CodeRateLimited, decodeError(t, rec))
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	g := newTestGateway(t, func(_ *boxhttp.HandlerConfig, rl *ratelimit.Config) {
		rl.GlobalLimit = 1
	})

	first := httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil)
	first.RemoteAddr = "10.0.0.1:5000"
	require.Equal(t, http.StatusOK, g.do(first).Code)

	again := httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil)
	again.RemoteAddr = "10.0.0.1:5001"
	assert.Equal(t, http.StatusTooManyRequests, g.do(again).Code)

	other := httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil)
	other.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, http.StatusOK, g.do(other).Code)
}

func TestRateLimit_ProxyHeadersOnlyWhenTrusted(t *testing.T) {
	for _, trust := range []bool{false, true} {
		g := newTestGateway(t, func(cfg *boxhttp.HandlerConfig, rl *ratelimit.Config) {
			cfg.TrustProxyHeaders = trust
			rl.GlobalLimit = 1
		})

		a := httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil)
		a.Header.Set("CF-Connecting-IP", "203.0.113.1")
		require.Equal(t, http.StatusOK, g.do(a).Code)

		b := httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil)
		b.Header.Set("CF-Connecting-IP", "203.0.113.2")
		want := http.StatusTooManyRequests
		if trust {
			want = http.StatusOK
		}
		assert.Equal(t, want, g.do(b).Code, "trust=%v", trust)
	}
}

func TestAuth_MissingOrWrongToken(t *testing.T) {
	g := newTestGateway(t, nil)

	for _, target := range []string{"/media/box-01/list", "/media/box-01/list?t=", "/media/box-01/list?t=nope", "/box-01"} {
		rec := g.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, boxhttp.CodeUnauthorized, decodeError(t, rec))
	}
}

func TestAuth_UnconfiguredTokenRejectsEverything(t *testing.T) {
	g := newTestGateway(t, func(cfg *boxhttp.HandlerConfig, _ *ratelimit.Config) {
		cfg.Auth = nil
	})

	rec := g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_LockoutSurvivesValidToken(t *testing.T) {
	g := newTestGateway(t, func(_ *boxhttp.HandlerConfig, rl *ratelimit.Config) {
		rl.UnauthorizedLimit = 3
	})

	for i := 1; i <= 3; i++ {
		rec := g.do(httptest.NewRequest(http.MethodGet, "/media/box-01/list?t=guess", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
	}

	rec := g.do(httptest.NewRequest(http.MethodGet, "/media/box-01/list?t=guess", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Retry-After"))
	assert.Equal(t, boxhttp.CodeTooManyUnauthorized, decodeError(t, rec))

	rec = g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "a valid token does not lift the lockout")
	assert.Equal(t, boxhttp.CodeTooManyUnauthorized, decodeError(t, rec))
}

func TestPreflight_NotRateLimited(t *testing.T) {
	g := newTestGateway(t, func(_ *boxhttp.HandlerConfig, rl *ratelimit.Config) {
		rl.GlobalLimit = 1
	})

	for range 5 {
		req := httptest.NewRequest(http.MethodOptions, "/media/box-01/upload", nil)
		req.Header.Set("Origin", "https://boxes.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := g.do(req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec := g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil))
	assert.Equal(t, http.StatusOK, rec.Code, "preflights did not consume the window")
}

func TestCORS_ExposesRangeHeaders(t *testing.T) {
	g := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil)
	req.Header.Set("Origin", "https://boxes.example.com")
	rec := g.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Range")

	rec = g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), "no CORS headers without Origin")
}

func TestRequestLogger_RedactsToken(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	g := newTestGateway(t, nil)
	rec := g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list?x=1"), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, buf.String(), testToken)

	var line map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(raw, &entry))
		if entry["msg"] == "request" {
			line = entry
		}
	}
	require.NotNil(t, line, "request line logged")
	assert.Contains(t, line["path"], "t=REDACTED")
	assert.EqualValues(t, 200, line["status"])
	assert.NotEmpty(t, line["request_id"])
}

func TestMetrics_CountsRoutesAndRejections(t *testing.T) {
	metrics := boxhttp.NewMetrics()
	g := newTestGateway(t, func(cfg *boxhttp.HandlerConfig, rl *ratelimit.Config) {
		cfg.Metrics = metrics
		rl.GlobalLimit = 2
	})

	for range 3 {
		g.do(httptest.NewRequest(http.MethodGet, withToken("/media/box-01/list"), nil))
	}

	count, err := testutil.GatherAndCount(metrics.Registry(), "boxgate_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series for 200 and one for 429")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `boxgate_http_requests_total{code="200",route="/media/{box}/list"} 2`)
	assert.Contains(t, body, `boxgate_http_requests_total{code="429",route="unmatched"} 1`)
	assert.Contains(t, body, `boxgate_ratelimit_rejections_total{reason="rate_limited"} 1`)
}
