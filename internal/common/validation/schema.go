// Package validation checks incoming candidate payloads against a JSON
// schema before they enter the pipeline. A schema violation is malformed
// input: the candidate is skipped, the batch continues.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// rawCandidateSchema describes the minimal shape the fetch layer hands the
// pipeline. Only listingUrl is strictly required; everything else is
// best-effort and repaired by the normalizer.
const rawCandidateSchema = `{
	"type": "object",
	"properties": {
		"position":       {"type": "string"},
		"company":        {"type": "string"},
		"cityText":       {"type": "string"},
		"postedDateText": {"type": "string"},
		"salaryText":     {"type": "string"},
		"listingUrl":     {"type": "string", "minLength": 1},
		"sourceAgoText":  {"type": "string"},
		"description":    {"type": "string"},
		"applyUrl":       {"type": "string"},
		"sourceId":       {"type": "string"}
	},
	"required": ["listingUrl"],
	"additionalProperties": true
}`

var candidateSchema = gojsonschema.NewStringLoader(rawCandidateSchema)

// ValidateCandidatePayload validates a raw candidate payload. The returned
// error message aggregates every violated constraint.
func ValidateCandidatePayload(payload interface{}) error {
	doc, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	result, err := gojsonschema.Validate(candidateSchema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("invalid candidate payload: %s", strings.Join(msgs, "; "))
	}

	return nil
}
