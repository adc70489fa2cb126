// internal/crawler/extract/salary.go
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"jobingest/internal/models"
)

var (
	currencySymbols = map[string]string{
		"$": "USD",
		"€": "EUR",
		"£": "GBP",
	}

	currencyCodes = map[string]string{
		"usd": "USD",
		"eur": "EUR",
		"gbp": "GBP",
		"chf": "CHF",
		"pln": "PLN",
		"sek": "SEK",
	}

	// A number like 50000, 50,000, 50.5 with an optional "k" shorthand.
	salaryNumberRe = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k)?`)

	currencyCodeRe = regexp.MustCompile(`(?i)\b(usd|eur|gbp|chf|pln|sek)\b`)
)

// ParseSalary recovers {min, max, currency} from free-form salary text. It
// understands currency symbols and ISO codes, "k" shorthand, and range
// separators ("-", "to", "–", "and"). Returns a zero SalaryRange when no
// pattern matches; never fails.
func ParseSalary(text string) models.SalaryRange {
	if strings.TrimSpace(text) == "" {
		return models.SalaryRange{}
	}

	currency := ""
	for sym, code := range currencySymbols {
		if strings.Contains(text, sym) {
			currency = code
			break
		}
	}
	if currency == "" {
		if m := currencyCodeRe.FindString(text); m != "" {
			currency = currencyCodes[strings.ToLower(m)]
		}
	}

	var values []float64
	for _, m := range salaryNumberRe.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		// Discard fragments like "2 years" or "5 days" that are clearly not
		// salary amounts.
		if v < 100 {
			continue
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		return models.SalaryRange{}
	}

	out := models.SalaryRange{Currency: currency, Min: values[0], Max: values[0]}
	if len(values) > 1 {
		out.Max = values[1]
	}
	if out.Max < out.Min {
		out.Min, out.Max = out.Max, out.Min
	}
	return out
}
