package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobingest/internal/common/logger"
	"jobingest/internal/models"
)

type stubProvider struct {
	name       string
	configured bool
	response   string
	err        error
	calls      int
}

func (p *stubProvider) Name() string     { return p.name }
func (p *stubProvider) Configured() bool { return p.configured }

func (p *stubProvider) Complete(_ context.Context, _ string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func testJob() models.NormalizedJob {
	return models.NormalizedJob{
		Title:       "Senior Software Engineer",
		CompanyName: "Acme",
		City:        "Berlin",
	}
}

func TestEnrich_PreferredProviderWins(t *testing.T) {
	primary := &stubProvider{name: "openai", configured: true, response: "1 0.9 0"}
	secondary := &stubProvider{name: "gemini", configured: true, response: "0 0.1 0"}

	c := NewClientWithProviders([]Provider{secondary, primary}, []string{"openai", "gemini"}, time.Second, logger.NewTestLogger(t))

	e := c.Enrich(context.Background(), testJob())
	assert.True(t, e.IsTechJob)
	assert.Equal(t, 0.9, e.QualityScore)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls, "fallback must not run when the preferred provider answers")
}

func TestEnrich_FailoverToNextProvider(t *testing.T) {
	primary := &stubProvider{name: "openai", configured: true, err: errors.New("503 service unavailable")}
	secondary := &stubProvider{name: "gemini", configured: true, response: "1 0.7 1"}

	c := NewClientWithProviders([]Provider{primary, secondary}, []string{"openai", "gemini"}, time.Second, logger.NewTestLogger(t))

	e := c.Enrich(context.Background(), testJob())
	assert.Equal(t, 0.7, e.QualityScore)
	assert.True(t, e.IsVisaSponsored)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestEnrich_UnconfiguredProviderSkipped(t *testing.T) {
	unconfigured := &stubProvider{name: "openai", configured: false}
	configured := &stubProvider{name: "gemini", configured: true, response: "1 0.6 0"}

	c := NewClientWithProviders([]Provider{unconfigured, configured}, []string{"openai", "gemini"}, time.Second, logger.NewTestLogger(t))

	e := c.Enrich(context.Background(), testJob())
	assert.Equal(t, 0.6, e.QualityScore)
	assert.Zero(t, unconfigured.calls, "unconfigured providers are never invoked")
}

func TestEnrich_AllProvidersFailYieldsSafeDefaults(t *testing.T) {
	p1 := &stubProvider{name: "openai", configured: true, err: errors.New("timeout")}
	p2 := &stubProvider{name: "gemini", configured: true, err: errors.New("timeout")}

	c := NewClientWithProviders([]Provider{p1, p2}, nil, time.Second, logger.NewTestLogger(t))

	e := c.Enrich(context.Background(), testJob())
	assert.True(t, e.IsTechJob)
	assert.Equal(t, 0.5, e.QualityScore)
	assert.False(t, e.IsVisaSponsored)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"1 0.8 1"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key", "gpt-4o-mini", srv.Client())
	text, err := p.Complete(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, "1 0.8 1", text)
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key", "gpt-4o-mini", srv.Client())
	_, err := p.Complete(context.Background(), "classify")
	assert.Error(t, err)
}

func TestGeminiProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"0 0.2 0"}]}}]}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "test-key", "gemini-1.5-flash", srv.Client())
	text, err := p.Complete(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, "0 0.2 0", text)
}
