package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

// Classification is the parsed model verdict. ParsedBy names the parser tier
// that produced it, for observability only.
type Classification struct {
	IsTechJob       bool
	QualityScore    float64
	IsVisaSponsored bool
	ParsedBy        string
}

var numericTokenRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Vocabulary for the keyword-only fallback tier. Titles and model prose that
// mention these are treated as non-tech postings.
var nonTechKeywords = []string{
	"consulting",
	"sales",
	"marketing",
	"recruiter",
	"recruiting",
	"accounting",
	"nursing",
	"retail",
	"warehouse",
	"driver",
	"hospitality",
	"customer service",
}

var sponsorshipVocabulary = []string{
	"sponsor",
	"sponsorship",
	"visa",
	"relocation",
	"relocate",
	"work permit",
}

// ParseResponse recovers a Classification from raw model text through a
// fallback chain: strict three-token format, three numerics anywhere, two
// numerics plus keyword sponsorship, keyword-only. The last tier always
// yields, so parsing never fails outright.
func ParseResponse(text string) Classification {
	if c, ok := parseStrict(text); ok {
		return c
	}
	if c, ok := parseThreeNumerics(text); ok {
		return c
	}
	if c, ok := parseTwoNumerics(text); ok {
		return c
	}
	return parseKeywordsOnly(text)
}

// parseStrict accepts exactly three whitespace-separated tokens:
// tech-flag, quality-score, sponsorship-flag.
func parseStrict(text string) (Classification, bool) {
	tokens := strings.Fields(strings.TrimSpace(text))
	if len(tokens) != 3 {
		return Classification{}, false
	}

	tech, err1 := strconv.ParseFloat(tokens[0], 64)
	quality, err2 := strconv.ParseFloat(tokens[1], 64)
	sponsored, err3 := strconv.ParseFloat(tokens[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return Classification{}, false
	}

	return Classification{
		IsTechJob:       tech != 0,
		QualityScore:    clampScore(quality),
		IsVisaSponsored: sponsored != 0,
		ParsedBy:        "strict",
	}, true
}

func parseThreeNumerics(text string) (Classification, bool) {
	nums := extractNumerics(text, 3)
	if len(nums) < 3 {
		return Classification{}, false
	}
	return Classification{
		IsTechJob:       nums[0] != 0,
		QualityScore:    clampScore(nums[1]),
		IsVisaSponsored: nums[2] != 0,
		ParsedBy:        "three_numerics",
	}, true
}

func parseTwoNumerics(text string) (Classification, bool) {
	nums := extractNumerics(text, 2)
	if len(nums) < 2 {
		return Classification{}, false
	}
	return Classification{
		IsTechJob:       nums[0] != 0,
		QualityScore:    clampScore(nums[1]),
		IsVisaSponsored: containsAny(text, sponsorshipVocabulary),
		ParsedBy:        "two_numerics",
	}, true
}

func parseKeywordsOnly(text string) Classification {
	c := Classification{
		IsTechJob:       true,
		QualityScore:    0.5,
		IsVisaSponsored: containsAny(text, sponsorshipVocabulary),
		ParsedBy:        "keywords",
	}
	if containsAny(text, nonTechKeywords) {
		c.IsTechJob = false
		c.QualityScore = 0.2
	}
	return c
}

func extractNumerics(text string, max int) []float64 {
	matches := numericTokenRe.FindAllString(text, max)
	nums := make([]float64, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	return nums
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

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
