package enrich

import (
	"context"
	"net/http"
	"time"

	"jobingest/internal/common/config"
	"jobingest/internal/common/logger"
	"jobingest/internal/common/metrics"
	"jobingest/internal/models"
)

const defaultInvokeTimeout = 20 * time.Second

// Client drives the provider fallback chain. Providers are tried in the
// configured preference order, then any remaining configured providers;
// an unconfigured provider is skipped silently. Total failure yields the
// safe-default enrichment rather than an error.
type Client struct {
	providers []Provider
	order     []string
	timeout   time.Duration
	logger    logger.Logger
}

// NewClient builds the provider set from configuration. Unknown provider
// names in the config are logged and ignored.
func NewClient(cfg config.AIConfig, httpClient *http.Client, log logger.Logger) *Client {
	timeout := defaultInvokeTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	var providers []Provider
	for name, pc := range cfg.Providers {
		switch name {
		case "openai":
			providers = append(providers, NewOpenAIProvider(pc.BaseURL, pc.APIKey, pc.Model, httpClient))
		case "gemini":
			providers = append(providers, NewGeminiProvider(pc.BaseURL, pc.APIKey, pc.Model, httpClient))
		default:
			log.Warn("unknown ai provider in config, ignoring", map[string]interface{}{
				"provider": name,
			})
		}
	}

	return &Client{
		providers: providers,
		order:     cfg.ProviderOrder,
		timeout:   timeout,
		logger:    log,
	}
}

// NewClientWithProviders is the injection seam used by tests and callers
// that construct providers themselves.
func NewClientWithProviders(providers []Provider, order []string, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultInvokeTimeout
	}
	return &Client{providers: providers, order: order, timeout: timeout, logger: log}
}

// safeDefault is returned when every provider fails. Accept-by-default on
// the tech gate keeps enrichment outages from silently discarding jobs.
func safeDefault() models.Enrichment {
	return models.Enrichment{
		IsTechJob:       true,
		QualityScore:    0.5,
		IsVisaSponsored: false,
	}
}

// Enrich classifies one job. Never returns an error; a fully failed chain
// degrades to the safe default.
func (c *Client) Enrich(ctx context.Context, job models.NormalizedJob) models.Enrichment {
	prompt := buildPrompt(job)

	for _, p := range c.sequence() {
		if !p.Configured() {
			c.logger.Debug("skipping unconfigured ai provider", map[string]interface{}{
				"provider": p.Name(),
			})
			continue
		}

		text, err := c.invoke(ctx, p, prompt)
		if err != nil {
			metrics.ProviderAttempts.WithLabelValues(p.Name(), "error").Inc()
			c.logger.Warn("ai provider failed, trying next", map[string]interface{}{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			continue
		}
		metrics.ProviderAttempts.WithLabelValues(p.Name(), "success").Inc()

		parsed := ParseResponse(text)
		c.logger.Debug("ai response parsed", map[string]interface{}{
			"provider": p.Name(),
			"parser":   parsed.ParsedBy,
		})

		return models.Enrichment{
			IsTechJob:       parsed.IsTechJob,
			QualityScore:    parsed.QualityScore,
			IsVisaSponsored: parsed.IsVisaSponsored,
		}
	}

	c.logger.Warn("all ai providers failed, using safe defaults", map[string]interface{}{
		"title": job.Title,
	})
	return safeDefault()
}

func (c *Client) invoke(ctx context.Context, p Provider, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return p.Complete(ctx, prompt)
}

// sequence returns providers in preference order followed by the remaining
// configured ones, each at most once.
func (c *Client) sequence() []Provider {
	byName := make(map[string]Provider, len(c.providers))
	for _, p := range c.providers {
		byName[p.Name()] = p
	}

	seen := make(map[string]bool, len(c.providers))
	out := make([]Provider, 0, len(c.providers))
	for _, name := range c.order {
		if p, ok := byName[name]; ok && !seen[name] {
			out = append(out, p)
			seen[name] = true
		}
	}
	for _, p := range c.providers {
		if !seen[p.Name()] {
			out = append(out, p)
			seen[p.Name()] = true
		}
	}
	return out
}
