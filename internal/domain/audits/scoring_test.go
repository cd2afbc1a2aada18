package audits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareOfVoice(t *testing.T) {
	tests := []struct {
		name    string
		results []ModelResult
		want    int
	}{
		{"empty set", nil, 0},
		{"all failed", []ModelResult{{Success: false}, {Success: false}}, 0},
		{"all mentioned", []ModelResult{
			{Success: true, Mentioned: true},
			{Success: true, Mentioned: true},
		}, 100},
		{"one of three", []ModelResult{
			{Success: true, Mentioned: true},
			{Success: true},
			{Success: true},
		}, 33},
		{"failed results excluded from denominator", []ModelResult{
			{Success: true, Mentioned: true},
			{Success: false},
		}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShareOfVoice(tt.results)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestAverageRank(t *testing.T) {
	assert.Nil(t, AverageRank([]ModelResult{{Success: true}}), "absent when no result has a rank")

	got := AverageRank([]ModelResult{
		{Success: true, Rank: intp(1)},
		{Success: true, Rank: intp(2)},
		{Success: true},
	})
	require.NotNil(t, got)
	assert.Equal(t, 1.5, *got)
}

func TestVisibilityScore(t *testing.T) {
	t.Run("empty and all-failed are zero", func(t *testing.T) {
		assert.Equal(t, 0, VisibilityScore(nil, nil))
		assert.Equal(t, 0, VisibilityScore([]ModelResult{{Success: false}}, nil))
	})

	t.Run("cited beats mentioned beats absent", func(t *testing.T) {
		cited := VisibilityScore([]ModelResult{{Success: true, Cited: true, Mentioned: true}}, nil)
		mentioned := VisibilityScore([]ModelResult{{Success: true, Mentioned: true}}, nil)
		absent := VisibilityScore([]ModelResult{{Success: true}}, nil)
		assert.Greater(t, cited, mentioned)
		assert.Greater(t, mentioned, absent)
		assert.Equal(t, 0, absent)
	})

	t.Run("rank and mention bonuses", func(t *testing.T) {
		// base 50 + rank bonus 30 + mention bonus 5
		got := VisibilityScore([]ModelResult{
			{Success: true, Mentioned: true, Mentions: 1, Rank: intp(1)},
		}, nil)
		assert.Equal(t, 85, got)
	})

	t.Run("rank bonus floors at zero", func(t *testing.T) {
		// rank 5 would be bonus -10; must contribute nothing
		got := VisibilityScore([]ModelResult{
			{Success: true, Mentioned: true, Mentions: 1, Rank: intp(5)},
		}, nil)
		assert.Equal(t, 55, got)
	})

	t.Run("mention bonus caps at 20", func(t *testing.T) {
		got := VisibilityScore([]ModelResult{
			{Success: true, Mentioned: true, Mentions: 50},
		}, nil)
		assert.Equal(t, 70, got)
	})

	t.Run("provider weights shift the average", func(t *testing.T) {
		results := []ModelResult{
			{Provider: "heavy", Success: true, Cited: true, Mentioned: true},
			{Provider: "light", Success: true},
		}
		unweighted := VisibilityScore(results, nil)
		weighted := VisibilityScore(results, map[ProviderID]float64{"heavy": 3})
		assert.Greater(t, weighted, unweighted)
	})

	t.Run("clamped to 100", func(t *testing.T) {
		got := VisibilityScore([]ModelResult{
			{Success: true, Cited: true, Mentioned: true, Mentions: 10, Rank: intp(1)},
		}, nil)
		assert.Equal(t, 100, got)
	})
}

func TestTrustIndex(t *testing.T) {
	assert.Equal(t, 0, TrustIndex(nil))

	// one of two cited, that one also authority tier: 0.6*50 + 0.4*50 = 50
	got := TrustIndex([]ModelResult{
		{Success: true, Cited: true, Authority: true},
		{Success: true},
	})
	assert.Equal(t, 50, got)

	// cited but below the authority mention bar: 0.6*100 + 0.4*0 = 60
	got = TrustIndex([]ModelResult{{Success: true, Cited: true}})
	assert.Equal(t, 60, got)
}

func TestSummarize(t *testing.T) {
	results := []ModelResult{
		{Provider: "p1", Success: true, Mentioned: true, Mentions: 1, Rank: intp(2),
			Cost: 0.01, Citations: []Citation{{Domain: "a.com"}}},
		{Provider: "p2", Success: false, Cost: 0.002},
	}
	s := Summarize(results, nil, AgreementLow)

	assert.Equal(t, 100, s.ShareOfVoice)
	require.NotNil(t, s.AverageRank)
	assert.Equal(t, 2.0, *s.AverageRank)
	assert.Equal(t, 1, s.TotalCitations)
	assert.InDelta(t, 0.012, s.TotalCost, 1e-9, "failed calls still count toward total cost")
	assert.Equal(t, AgreementLow, s.Agreement)
}
