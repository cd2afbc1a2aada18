package audits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCitations_CollapsesByDomain(t *testing.T) {
	results := []ModelResult{
		{Citations: []Citation{{Domain: "acme.com", URL: "https://acme.com/a", Title: "Acme"}}},
		{Citations: []Citation{{Domain: "acme.com", URL: "https://acme.com/b"}}},
	}
	merged := MergeCitations(results, 10)

	require.Len(t, merged, 1, "same domain with different URLs collapses to one entry")
	assert.Equal(t, 2, merged[0].Count)
	assert.Equal(t, "https://acme.com/a", merged[0].URL, "first-seen URL is kept")
	assert.Equal(t, "Acme", merged[0].Title)
}

func TestMergeCitations_OrderAndTopN(t *testing.T) {
	results := []ModelResult{
		{Citations: []Citation{
			{Domain: "one.com"}, {Domain: "two.com"}, {Domain: "three.com"},
		}},
		{Citations: []Citation{
			{Domain: "two.com"}, {Domain: "three.com"},
		}},
		{Citations: []Citation{{Domain: "three.com"}}},
	}
	merged := MergeCitations(results, 2)

	require.Len(t, merged, 2)
	assert.Equal(t, "three.com", merged[0].Domain)
	assert.Equal(t, 3, merged[0].Count)
	assert.Equal(t, "two.com", merged[1].Domain)
}

func TestMergeCitations_BrandOwnedSticky(t *testing.T) {
	results := []ModelResult{
		{Citations: []Citation{{Domain: "acme.com"}}},
		{Citations: []Citation{{Domain: "acme.com", BrandOwned: true}}},
	}
	merged := MergeCitations(results, 10)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].BrandOwned)
}

func TestMergeCompetitors(t *testing.T) {
	results := []ModelResult{
		{Competitors: []CompetitorMention{
			{Name: "Bumble", Mentions: 2, Rank: intp(1)},
			{Name: "Tinder", Mentions: 1},
		}},
		{Competitors: []CompetitorMention{
			{Name: "Bumble", Mentions: 1, Rank: intp(2)},
			{Name: "Tinder", Mentions: 4, Rank: intp(3)},
		}},
	}
	merged := MergeCompetitors(results, 10)

	require.Len(t, merged, 2)
	assert.Equal(t, "Tinder", merged[0].Name)
	assert.Equal(t, 5, merged[0].Mentions)
	require.NotNil(t, merged[0].AverageRank)
	assert.Equal(t, 3.0, *merged[0].AverageRank, "absent ranks are excluded from the average")
	assert.Equal(t, "Bumble", merged[1].Name)
	require.NotNil(t, merged[1].AverageRank)
	assert.Equal(t, 1.5, *merged[1].AverageRank)
}

func TestMergeCompetitors_NoRanks(t *testing.T) {
	merged := MergeCompetitors([]ModelResult{
		{Competitors: []CompetitorMention{{Name: "Ghost", Mentions: 1}}},
	}, 10)
	require.Len(t, merged, 1)
	assert.Nil(t, merged[0].AverageRank)
}
