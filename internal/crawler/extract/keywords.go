// internal/crawler/extract/keywords.go
package extract

import "strings"

// Keyword lists are advisory hints only; the AI enrichment stage makes the
// authoritative call.
var sponsorshipKeywords = []string{
	"visa sponsorship",
	"sponsorship available",
	"visa support",
	"sponsor your visa",
	"work permit",
	"relocation package",
	"relocation support",
	"relocation assistance",
	"h1b",
	"h-1b",
	"skilled worker visa",
	"blue card",
}

var remoteKeywords = []string{
	"fully remote",
	"100% remote",
	"remote-first",
	"work from home",
	"work from anywhere",
	"wfh",
}

// DetectSponsorship reports whether the text mentions visa or relocation
// support.
func DetectSponsorship(text string) bool {
	return containsAny(text, sponsorshipKeywords)
}

// DetectRemote reports whether the text advertises a remote position.
func DetectRemote(text string) bool {
	return containsAny(text, remoteKeywords)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
