// internal/crawler/extract/strategies.go
package extract

import (
	"context"
	"regexp"
	"strings"
)

// Strategy attempts to recover the external apply URL from a loaded listing
// page. A (url, true) return ends the chain; (_, false) falls through to
// the next strategy.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, p Page) (string, bool)
}

// applyURLStrategies is the prioritized chain, most reliable first.
func applyURLStrategies() []Strategy {
	return []Strategy{
		hiddenMetadataStrategy{},
		applyAnchorStrategy{},
		clickRevealStrategy{},
		networkSniffStrategy{},
		sourceScanStrategy{},
	}
}

// hiddenMetadataStrategy reads the apply target some sources embed in a
// hidden field or meta tag.
type hiddenMetadataStrategy struct{}

func (hiddenMetadataStrategy) Name() string { return "hidden_metadata" }

func (hiddenMetadataStrategy) Attempt(ctx context.Context, p Page) (string, bool) {
	for _, probe := range []struct{ sel, attr string }{
		{`input[name="applyUrl"]`, "value"},
		{`input[name="apply_url"]`, "value"},
		{`meta[name="apply-url"]`, "content"},
		{`[data-apply-url]`, "data-apply-url"},
	} {
		if v, ok, err := p.Attribute(ctx, probe.sel, probe.attr); err == nil && ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// applyAnchorSelectors is ordered by descending specificity.
var applyAnchorSelectors = []string{
	`a[data-testid="applyButton"]`,
	`a[data-testid="apply-link"]`,
	`a.apply-button`,
	`a.apply-link`,
	`a[id*="apply"]`,
	`a[class*="apply"]`,
}

// applyAnchorStrategy looks for visible apply anchors/buttons.
type applyAnchorStrategy struct{}

func (applyAnchorStrategy) Name() string { return "apply_anchor" }

func (applyAnchorStrategy) Attempt(ctx context.Context, p Page) (string, bool) {
	for _, sel := range applyAnchorSelectors {
		if v, ok, err := p.Attribute(ctx, sel, "href"); err == nil && ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// clickRevealStrategy clicks the apply control and reads the link it
// reveals. Some sources render the external target only after interaction.
type clickRevealStrategy struct{}

func (clickRevealStrategy) Name() string { return "click_reveal" }

func (clickRevealStrategy) Attempt(ctx context.Context, p Page) (string, bool) {
	for _, clickSel := range []string{`button[class*="apply"]`, `[role="button"][class*="apply"]`} {
		if err := p.Click(ctx, clickSel); err != nil {
			continue
		}
		for _, revealSel := range []string{`.apply-modal a[href]`, `.apply-panel a[href]`, `a[target="_blank"][class*="apply"]`} {
			if v, ok, err := p.Attribute(ctx, revealSel, "href"); err == nil && ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// networkSniffStrategy inspects requests observed during page load for an
// outbound apply redirect.
type networkSniffStrategy struct{}

func (networkSniffStrategy) Name() string { return "network_sniff" }

func (networkSniffStrategy) Attempt(ctx context.Context, p Page) (string, bool) {
	for _, reqURL := range p.ObservedRequests() {
		if pathContainsApply(reqURL) {
			return reqURL, true
		}
	}
	return "", false
}

func pathContainsApply(rawURL string) bool {
	// Only the path portion counts; "applications" in a hostname is noise.
	noScheme := rawURL
	if i := strings.Index(noScheme, "://"); i >= 0 {
		noScheme = noScheme[i+3:]
	}
	slash := strings.Index(noScheme, "/")
	if slash < 0 {
		return false
	}
	return strings.Contains(strings.ToLower(noScheme[slash:]), "apply")
}

var embeddedApplyURLRe = regexp.MustCompile(`https?://[^\s"'<>\\]+apply[^\s"'<>\\]*`)

// sourceScanStrategy regex-scans the raw page source for an embedded apply
// URL. Last resort before falling back to the listing URL.
type sourceScanStrategy struct{}

func (sourceScanStrategy) Name() string { return "source_scan" }

func (sourceScanStrategy) Attempt(ctx context.Context, p Page) (string, bool) {
	html, err := p.HTML(ctx)
	if err != nil {
		return "", false
	}
	if m := embeddedApplyURLRe.FindString(html); m != "" {
		return m, true
	}
	return "", false
}
