// Package crawler discovers job candidates from external listing sites via
// paginated search requests. Every outbound request passes through the
// shared rate limiter.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobingest/internal/common/config"
	pipeerrors "jobingest/internal/common/errors"
	"jobingest/internal/common/httpx"
	"jobingest/internal/common/logger"
	"jobingest/internal/common/metrics"
	"jobingest/internal/models"
	"jobingest/internal/ratelimit"
)

// SearchQuery describes one paginated search against a source.
type SearchQuery struct {
	Keywords      string
	Location      string
	PageSize      int
	FreshnessDays int
	MaxPages      int
}

// Fetcher issues paginated search requests against one job source and
// parses listing cards into RawCandidates.
type Fetcher struct {
	source  config.SourceConfig
	limiter *ratelimit.Limiter
	client  *httpx.Client
	logger  logger.Logger

	maxConsecutiveFails int
}

// NewFetcher constructs a Fetcher. All fetchers in the process share the
// same limiter instance.
func NewFetcher(source config.SourceConfig, limiter *ratelimit.Limiter, client *httpx.Client, log logger.Logger, maxConsecutiveFails int) *Fetcher {
	return &Fetcher{
		source:              source,
		limiter:             limiter,
		client:              client,
		logger:              log.WithFields(map[string]interface{}{"source": source.Name}),
		maxConsecutiveFails: maxConsecutiveFails,
	}
}

// Fetch pages through the source's search results, calling emit for every
// parsed candidate until emit returns false, the source runs out of
// results, or MaxPages is reached. Failure semantics:
//   - HTTP 429 is fatal for the run and propagates immediately;
//   - HTTP 403 terminates the run without raising (source-level block);
//   - 5xx and network errors are retried in place up to the consecutive
//     failure ceiling, after which the run stops with partial results.
//
// Malformed individual cards are skipped, never fatal.
func (f *Fetcher) Fetch(ctx context.Context, q SearchQuery, emit func(models.RawCandidate) bool) error {
	consecutiveFails := 0

	for page := 1; page <= q.MaxPages; page++ {
		if err := f.limiter.AwaitSlot(ctx); err != nil {
			return err
		}

		batch, err := f.fetchPage(ctx, q, page)
		if err != nil {
			code := pipeerrors.CodeOf(err)
			switch code {
			case pipeerrors.ErrCodeSourceThrottled:
				f.limiter.RecordError()
				metrics.CrawlerRequests.WithLabelValues(f.source.Name, "throttled").Inc()
				return err

			case pipeerrors.ErrCodeSourceBlocked:
				f.limiter.RecordError()
				metrics.CrawlerRequests.WithLabelValues(f.source.Name, "blocked").Inc()
				f.logger.Warn("source blocked the crawler, stopping run", map[string]interface{}{
					"page": page,
				})
				return nil

			default:
				f.limiter.RecordError()
				metrics.CrawlerRequests.WithLabelValues(f.source.Name, "error").Inc()
				consecutiveFails++
				if consecutiveFails >= f.maxConsecutiveFails {
					f.logger.Warn("too many consecutive failures, stopping with partial results", map[string]interface{}{
						"failures": consecutiveFails,
					})
					return nil
				}
				page-- // retry the same page
				continue
			}
		}

		f.limiter.RecordSuccess()
		metrics.CrawlerRequests.WithLabelValues(f.source.Name, "ok").Inc()
		consecutiveFails = 0

		if len(batch) == 0 {
			return nil // no further results
		}

		for _, cand := range batch {
			if !emit(cand) {
				return nil
			}
		}

		if len(batch) < q.PageSize {
			return nil // last page
		}
	}

	return nil
}

func (f *Fetcher) fetchPage(ctx context.Context, q SearchQuery, page int) ([]models.RawCandidate, error) {
	params := url.Values{}
	params.Set("q", q.Keywords)
	params.Set("location", q.Location)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(q.PageSize))
	params.Set("max_days", strconv.Itoa(q.FreshnessDays))
	params.Set("sort", "date")

	reqURL := strings.TrimRight(f.source.BaseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, pipeerrors.NewFetchFailedError(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, pipeerrors.NewFetchFailedError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, pipeerrors.NewSourceThrottledError(reqURL)
	case resp.StatusCode == http.StatusForbidden:
		return nil, pipeerrors.NewSourceBlockedError(reqURL)
	case resp.StatusCode >= 500:
		return nil, pipeerrors.NewFetchFailedError(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, pipeerrors.NewFetchFailedError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if f.source.Format == "json" {
		return f.parseJSONPage(resp.Body)
	}
	return f.parseHTMLPage(resp.Body)
}

// jsonListing mirrors one entry of a JSON search response.
type jsonListing struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	PostedDate string `json:"posted_date"`
	Salary     string `json:"salary"`
	URL        string `json:"url"`
	Ago        string `json:"ago"`
}

func (f *Fetcher) parseJSONPage(body io.Reader) ([]models.RawCandidate, error) {
	var payload struct {
		Results []jsonListing `json:"results"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, pipeerrors.NewFetchFailedError(fmt.Errorf("decode search response: %w", err))
	}

	candidates := make([]models.RawCandidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.URL == "" || r.Title == "" {
			f.logger.Debug("skipping malformed listing entry", map[string]interface{}{
				"id": r.ID,
			})
			continue
		}
		candidates = append(candidates, models.RawCandidate{
			Position:       r.Title,
			Company:        r.Company,
			CityText:       r.Location,
			PostedDateText: r.PostedDate,
			SalaryText:     r.Salary,
			ListingURL:     f.absoluteURL(r.URL),
			SourceAgoText:  r.Ago,
		})
	}
	return candidates, nil
}

// Card selectors for HTML sources. The extraction layer is pluggable; these
// cover the generic card markup the configured sources share.
const (
	cardSelector     = "[data-testid=job-card], .job-card, article.result"
	titleSelector    = "[data-testid=job-title], .job-title, h2 a"
	companySelector  = "[data-testid=company-name], .company-name, .company"
	locationSelector = "[data-testid=job-location], .job-location, .location"
	postedSelector   = "[data-testid=posted-date], .posted-date, time"
	salarySelector   = "[data-testid=salary], .salary, .salary-snippet"
	agoSelector      = ".listed-ago, .ago"
)

func (f *Fetcher) parseHTMLPage(body io.Reader) ([]models.RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, pipeerrors.NewFetchFailedError(fmt.Errorf("parse search page: %w", err))
	}

	var candidates []models.RawCandidate
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find(titleSelector).First().Text())
		href, _ := card.Find("a[href]").First().Attr("href")
		if title == "" || href == "" {
			f.logger.Debug("skipping malformed listing card", nil)
			return
		}

		candidates = append(candidates, models.RawCandidate{
			Position:       title,
			Company:        strings.TrimSpace(card.Find(companySelector).First().Text()),
			CityText:       strings.TrimSpace(card.Find(locationSelector).First().Text()),
			PostedDateText: strings.TrimSpace(card.Find(postedSelector).First().Text()),
			SalaryText:     strings.TrimSpace(card.Find(salarySelector).First().Text()),
			ListingURL:     f.absoluteURL(href),
			SourceAgoText:  strings.TrimSpace(card.Find(agoSelector).First().Text()),
		})
	})

	return candidates, nil
}

func (f *Fetcher) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(f.source.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
