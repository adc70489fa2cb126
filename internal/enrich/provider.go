// Package enrich classifies normalized jobs through external language-model
// providers. Providers are tried in a configured order; their free-form text
// output goes through a layered parser that tolerates format drift. A total
// provider failure is masked with safe defaults, never surfaced as a
// pipeline error.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"jobingest/internal/models"
)

// Provider sends a classification prompt to one language model and returns
// the raw text response.
type Provider interface {
	Name() string
	// Configured reports whether the provider has usable credentials. An
	// unconfigured provider is skipped without counting as a failure.
	Configured() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

const maxDescriptionExcerpt = 600

// buildPrompt renders the classification request. The response contract is
// three space-separated tokens; the parser still tolerates anything else.
func buildPrompt(job models.NormalizedJob) string {
	var b strings.Builder

	b.WriteString("Classify this job posting. Reply with exactly three tokens separated by spaces:\n")
	b.WriteString("1) 1 if this is a technology/software job else 0\n")
	b.WriteString("2) a quality score between 0.0 and 1.0\n")
	b.WriteString("3) 1 if the employer offers visa sponsorship or relocation else 0\n\n")

	fmt.Fprintf(&b, "Title: %s\n", job.Title)
	fmt.Fprintf(&b, "Company: %s\n", job.CompanyName)
	if job.City != "" || job.Country != "" {
		fmt.Fprintf(&b, "Location: %s %s\n", job.City, job.Country)
	}
	if job.SalaryCurrency != "" {
		fmt.Fprintf(&b, "Salary: %.0f-%.0f %s\n", job.SalaryMin, job.SalaryMax, job.SalaryCurrency)
	}
	if job.Description != "" {
		excerpt := job.Description
		if len(excerpt) > maxDescriptionExcerpt {
			excerpt = excerpt[:maxDescriptionExcerpt]
		}
		fmt.Fprintf(&b, "Description: %s\n", excerpt)
	}

	return b.String()
}
