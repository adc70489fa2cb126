package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobingest/internal/common/config"
	pipeerrors "jobingest/internal/common/errors"
	"jobingest/internal/common/httpx"
	"jobingest/internal/common/logger"
	"jobingest/internal/models"
	"jobingest/internal/ratelimit"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(config.RateLimitConfig{
		MaxRequestsPerMinute: 1000,
		MaxRequestsPerHour:   10000,
		BaseDelayMs:          1,
		MaxDelayMs:           10,
		BackoffMultiplier:    2.0,
	})
}

func newTestFetcher(t *testing.T, baseURL, format string) *Fetcher {
	src := config.SourceConfig{Name: "testsource", BaseURL: baseURL, Format: format}
	return NewFetcher(src, testLimiter(), httpx.NewClient(5*time.Second), logger.NewTestLogger(t), 3)
}

func collect(t *testing.T, f *Fetcher, q SearchQuery) ([]models.RawCandidate, error) {
	var got []models.RawCandidate
	err := f.Fetch(context.Background(), q, func(c models.RawCandidate) bool {
		got = append(got, c)
		return true
	})
	return got, err
}

func TestFetch_JSONPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			fmt.Fprint(w, `{"results":[
				{"id":"a1","title":"Backend Engineer","company":"Acme","location":"Berlin","url":"/jobs/a1","salary":"€60k - €80k"},
				{"id":"a2","title":"Data Engineer","company":"Globex","location":"Remote","url":"/jobs/a2"}
			]}`)
		case "2":
			fmt.Fprint(w, `{"results":[
				{"id":"a3","title":"SRE","company":"Initech","location":"Amsterdam","url":"/jobs/a3"}
			]}`)
		default:
			fmt.Fprint(w, `{"results":[]}`)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "json")
	got, err := collect(t, f, SearchQuery{Keywords: "engineer", Location: "eu", PageSize: 2, FreshnessDays: 7, MaxPages: 5})
	require.NoError(t, err)
	require.Len(t, got, 3, "short second page ends the run")

	assert.Equal(t, "Backend Engineer", got[0].Position)
	assert.Equal(t, "Acme", got[0].Company)
	assert.Equal(t, srv.URL+"/jobs/a1", got[0].ListingURL, "relative urls are resolved against the source base")
	assert.Equal(t, "€60k - €80k", got[0].SalaryText)
}

func TestFetch_MalformedEntriesSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"id":"ok","title":"Platform Engineer","url":"/jobs/ok"},
			{"id":"no-title","url":"/jobs/x"},
			{"id":"no-url","title":"Ghost"}
		]}`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "json")
	got, err := collect(t, f, SearchQuery{PageSize: 10, MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Platform Engineer", got[0].Position)
}

func TestFetch_429IsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "json")
	got, err := collect(t, f, SearchQuery{PageSize: 10, MaxPages: 3})
	require.Error(t, err)
	assert.Equal(t, pipeerrors.ErrCodeSourceThrottled, pipeerrors.CodeOf(err))
	assert.Empty(t, got)
}

func TestFetch_403StopsWithoutError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "json")
	got, err := collect(t, f, SearchQuery{PageSize: 10, MaxPages: 3})
	require.NoError(t, err, "source-level block is not surfaced as a failure")
	assert.Empty(t, got)
	assert.Equal(t, 1, calls, "run terminates on first 403")
}

func TestFetch_5xxRetriedThenGracefulStop(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "json")
	got, err := collect(t, f, SearchQuery{PageSize: 10, MaxPages: 5})
	require.NoError(t, err, "run stops gracefully with partial results")
	assert.Empty(t, got)
	assert.Equal(t, 3, calls, "page retried up to the consecutive failure ceiling")
}

func TestFetch_5xxRecoversMidRun(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"results":[{"id":"r1","title":"Engineer","url":"/jobs/r1"}]}`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "json")
	got, err := collect(t, f, SearchQuery{PageSize: 10, MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestFetch_HTMLCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="job-card">
				<h2><a href="/jobs/h1" class="job-title">Senior Software Engineer</a></h2>
				<span class="company-name">Hooli</span>
				<span class="job-location">Dublin</span>
				<span class="salary">$120,000 - $160,000</span>
			</div>
			<div class="job-card"><span class="company-name">No Title Corp</span></div>
		</body></html>`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "html")
	got, err := collect(t, f, SearchQuery{PageSize: 10, MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, got, 1, "card without title or link is skipped")

	assert.Equal(t, "Senior Software Engineer", got[0].Position)
	assert.Equal(t, "Hooli", got[0].Company)
	assert.Equal(t, "Dublin", got[0].CityText)
	assert.Equal(t, "$120,000 - $160,000", got[0].SalaryText)
	assert.Equal(t, srv.URL+"/jobs/h1", got[0].ListingURL)
}

func TestFetch_EmitStopsEarly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"id":"1","title":"A","url":"/a"},
			{"id":"2","title":"B","url":"/b"},
			{"id":"3","title":"C","url":"/c"}
		]}`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, "json")
	var got []models.RawCandidate
	err := f.Fetch(context.Background(), SearchQuery{PageSize: 3, MaxPages: 5}, func(c models.RawCandidate) bool {
		got = append(got, c)
		return len(got) < 2
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
