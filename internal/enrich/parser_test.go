package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse_StrictFormat(t *testing.T) {
	c := ParseResponse("1 0.8 1")
	assert.Equal(t, "strict", c.ParsedBy)
	assert.True(t, c.IsTechJob)
	assert.Equal(t, 0.8, c.QualityScore)
	assert.True(t, c.IsVisaSponsored)

	c = ParseResponse("0 0.3 0")
	assert.False(t, c.IsTechJob)
	assert.Equal(t, 0.3, c.QualityScore)
	assert.False(t, c.IsVisaSponsored)
}

func TestParseResponse_ThreeNumericsInProse(t *testing.T) {
	c := ParseResponse("Sure! Tech: 1, quality is 0.7, sponsorship: 0.")
	assert.Equal(t, "three_numerics", c.ParsedBy)
	assert.True(t, c.IsTechJob)
	assert.Equal(t, 0.7, c.QualityScore)
	assert.False(t, c.IsVisaSponsored)
}

func TestParseResponse_TwoNumericsWithSponsorshipKeyword(t *testing.T) {
	c := ParseResponse("tech flag 1 with quality 0.6, the company offers visa sponsorship")
	assert.Equal(t, "two_numerics", c.ParsedBy)
	assert.True(t, c.IsTechJob)
	assert.Equal(t, 0.6, c.QualityScore)
	assert.True(t, c.IsVisaSponsored)
}

func TestParseResponse_KeywordFallbackNonTech(t *testing.T) {
	c := ParseResponse("This looks like a consulting position.")
	assert.Equal(t, "keywords", c.ParsedBy)
	assert.False(t, c.IsTechJob)
	assert.Equal(t, 0.2, c.QualityScore)
}

func TestParseResponse_KeywordFallbackDefault(t *testing.T) {
	c := ParseResponse("A software role, no numbers here.")
	assert.Equal(t, "keywords", c.ParsedBy)
	assert.True(t, c.IsTechJob)
	assert.Equal(t, 0.5, c.QualityScore)
}

func TestParseResponse_ScoreClamped(t *testing.T) {
	assert.Equal(t, 1.0, ParseResponse("1 7.5 0").QualityScore)
}
