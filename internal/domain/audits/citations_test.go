package audits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCitations_ExplicitURLs(t *testing.T) {
	text := "See https://www.example.com/reviews and also https://acme.com."
	cits := ExtractCitations(text, "ZZZ", nil, nil)

	require.GreaterOrEqual(t, len(cits), 2)
	assert.Equal(t, "example.com", cits[0].Domain, "www. prefix is stripped from the domain")
	assert.Equal(t, "https://www.example.com/reviews", cits[0].URL)
	assert.Equal(t, "acme.com", cits[1].Domain)
	assert.Equal(t, "https://acme.com", cits[1].URL, "trailing punctuation stripped")
	assert.False(t, cits[0].Inferred)
}

func TestExtractCitations_BareDomains(t *testing.T) {
	cits := ExtractCitations("Compare on trustpilot.com or www.globenewswire.com today", "ZZZ", nil, nil)
	domains := citationDomains(cits)
	assert.Contains(t, domains, "trustpilot.com")
	assert.Contains(t, domains, "globenewswire.com")
	for _, c := range cits {
		assert.True(t, len(c.URL) > len("https://"), "protocol-less matches get https:// prepended")
	}
}

func TestExtractCitations_ShortBareHostRejected(t *testing.T) {
	cits := ExtractCitations("token a.co appears mid-sentence", "ZZZ", nil, nil)
	assert.NotContains(t, citationDomains(cits), "a.co")
}

func TestExtractCitations_MarkdownLinks(t *testing.T) {
	text := "Sources: [Acme Review](https://reviews.example.org/acme) and [Docs](docs.acme.io/start)"
	cits := ExtractCitations(text, "ZZZ", nil, nil)

	require.GreaterOrEqual(t, len(cits), 2)
	assert.Equal(t, "reviews.example.org", cits[0].Domain)
	assert.Equal(t, "Acme Review", cits[0].Title)
	assert.Equal(t, "docs.acme.io", cits[1].Domain)
	assert.Equal(t, "https://docs.acme.io/start", cits[1].URL)
}

func TestExtractCitations_DedupByDomainFirstAppearance(t *testing.T) {
	text := "https://example.com/a then https://www.example.com/b then https://other.org"
	cits := ExtractCitations(text, "ZZZ", nil, nil)

	require.Len(t, cits, 2)
	assert.Equal(t, "example.com", cits[0].Domain)
	assert.Equal(t, "https://example.com/a", cits[0].URL, "first appearance wins")
	assert.Equal(t, "other.org", cits[1].Domain)
	assert.Equal(t, 1, cits[0].Position)
	assert.Equal(t, 2, cits[1].Position)
}

func TestExtractCitations_Implicit(t *testing.T) {
	text := "Acme and Bumble Match are both popular choices."
	cits := ExtractCitations(text, "Acme", nil, []string{"Bumble Match"})

	require.Len(t, cits, 2)
	assert.Equal(t, "acme.com", cits[0].Domain)
	assert.True(t, cits[0].Inferred, "synthesized citations are flagged as inferred")
	assert.True(t, cits[0].BrandOwned)
	assert.Equal(t, "bumblematch.com", cits[1].Domain, "slug strips non-alphanumerics")
	assert.False(t, cits[1].BrandOwned)
}

func TestExtractCitations_ExplicitBeatsImplicit(t *testing.T) {
	text := "Acme is listed on https://acme.com/pricing with details."
	cits := ExtractCitations(text, "Acme", nil, nil)

	require.Len(t, cits, 1)
	assert.False(t, cits[0].Inferred, "implicit citation is not added when the domain already exists")
	assert.True(t, cits[0].BrandOwned, "acme.com matches the brand slug")
}

func TestExtractCitations_AliasBrandOwned(t *testing.T) {
	cits := ExtractCitations("Check https://acmehq.com for specs.", "Acme", []string{"AcmeHQ"}, nil)
	require.Len(t, cits, 1)
	assert.True(t, cits[0].BrandOwned)
}

func TestExtractCitations_Idempotent(t *testing.T) {
	text := "1. [Acme](https://acme.com)\n2. Bumble via bumble.com\nMore at www.example.com/why."
	first := ExtractCitations(text, "Acme", nil, []string{"Bumble"})
	second := ExtractCitations(text, "Acme", nil, []string{"Bumble"})
	assert.Equal(t, first, second)
}

func citationDomains(cits []Citation) []string {
	out := make([]string, 0, len(cits))
	for _, c := range cits {
		out = append(out, c.Domain)
	}
	return out
}
