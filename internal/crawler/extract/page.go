// internal/crawler/extract/page.go
package extract

import "context"

// Page is the minimal surface the extraction strategies need from a loaded
// listing page. The production implementation drives a headless browser
// session; tests substitute a stub.
type Page interface {
	// Attribute returns the named attribute of the first element matching
	// sel, with ok=false when the element or attribute is absent.
	Attribute(ctx context.Context, sel, attr string) (value string, ok bool, err error)

	// Text returns the trimmed text content of the first element matching
	// sel, or "" when absent.
	Text(ctx context.Context, sel string) (string, error)

	// Click dispatches a click on the first element matching sel.
	Click(ctx context.Context, sel string) error

	// HTML returns the current raw page source.
	HTML(ctx context.Context) (string, error)

	// ObservedRequests lists the URLs of outbound network requests seen
	// since navigation started.
	ObservedRequests() []string
}

// PageFactory opens a listing URL in a browser session. The returned
// release func must be called once extraction is done.
type PageFactory interface {
	Open(ctx context.Context, url string) (Page, func(), error)
}
