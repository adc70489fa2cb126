// Package browser provides the chromedp-backed implementation of the
// extraction Page interface. One Factory owns the browser process; each
// Open call gets its own tab with a navigation deadline.
package browser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	pipeerrors "jobingest/internal/common/errors"
	"jobingest/internal/common/logger"
	"jobingest/internal/crawler/extract"
)

// probeTimeout bounds each DOM probe so a missing element never stalls the
// strategy chain.
const probeTimeout = 2 * time.Second

// Factory owns the shared browser allocator.
type Factory struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	navTimeout  time.Duration
	logger      logger.Logger
}

// NewFactory starts a headless allocator. Close must be called on shutdown.
func NewFactory(navTimeout time.Duration, log logger.Logger) *Factory {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Factory{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		navTimeout:  navTimeout,
		logger:      log,
	}
}

// Close tears down the browser process.
func (f *Factory) Close() {
	if f.cancelAlloc != nil {
		f.cancelAlloc()
	}
}

// Open navigates a fresh tab to url, recording outbound request URLs during
// load for the network-sniff strategy.
func (f *Factory) Open(ctx context.Context, url string) (extract.Page, func(), error) {
	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.navTimeout)
	release := func() {
		cancelTimeout()
		cancelTab()
	}

	p := &page{ctx: tabCtx}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if req, ok := ev.(*network.EventRequestWillBeSent); ok {
			p.mu.Lock()
			p.requests = append(p.requests, req.Request.URL)
			p.mu.Unlock()
		}
	})

	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		release()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, pipeerrors.NewNavigationTimeoutError(url)
		}
		// Honor caller cancellation distinctly from page failures.
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, pipeerrors.NewExtractionFailedError(err)
	}

	return p, release, nil
}

// page implements extract.Page on top of one chromedp tab.
type page struct {
	ctx context.Context

	mu       sync.Mutex
	requests []string
}

func (p *page) Attribute(ctx context.Context, sel, attr string) (string, bool, error) {
	opCtx, cancel := context.WithTimeout(p.ctx, probeTimeout)
	defer cancel()

	var value string
	var ok bool
	err := chromedp.Run(opCtx,
		chromedp.AttributeValue(sel, attr, &value, &ok, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(value), ok, nil
}

func (p *page) Text(ctx context.Context, sel string) (string, error) {
	opCtx, cancel := context.WithTimeout(p.ctx, probeTimeout)
	defer cancel()

	var text string
	err := chromedp.Run(opCtx,
		chromedp.Text(sel, &text, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *page) Click(ctx context.Context, sel string) error {
	opCtx, cancel := context.WithTimeout(p.ctx, probeTimeout)
	defer cancel()

	return chromedp.Run(opCtx,
		chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
	)
}

func (p *page) HTML(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(p.ctx, probeTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(opCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func (p *page) ObservedRequests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.requests))
	copy(out, p.requests)
	return out
}
