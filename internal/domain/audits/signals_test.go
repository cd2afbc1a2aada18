package audits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		term string
		want int
	}{
		{"single occurrence", "I would recommend Acme for this.", "Acme", 1},
		{"case insensitive", "ACME is acme is AcMe", "acme", 3},
		{"non overlapping", "aaaa", "aa", 2},
		{"no occurrence", "nothing here", "Acme", 0},
		{"empty term", "whatever", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countMentions(tt.text, tt.term))
		})
	}
}

func TestAnalyzeText_MentionedOnce(t *testing.T) {
	sig := AnalyzeText("Acme is one option to consider.", "Acme", nil, nil)
	assert.True(t, sig.Mentioned)
	assert.Equal(t, 1, sig.Mentions)
	assert.Equal(t, []string{"Acme"}, sig.Matched)
}

func TestAnalyzeText_AliasesSum(t *testing.T) {
	sig := AnalyzeText("Acme Corp, also known as AcmeHQ. AcmeHQ ships fast.", "Acme", []string{"AcmeHQ"}, nil)
	// "Acme" matches inside "AcmeHQ" too; occurrences are summed per term.
	assert.True(t, sig.Mentioned)
	assert.Equal(t, 3+2, sig.Mentions)
	assert.Contains(t, sig.Matched, "AcmeHQ")
}

func TestDetectRank(t *testing.T) {
	list := "1. Acme\n2. Bumble\n3. Tinder"
	tests := []struct {
		name  string
		text  string
		terms []string
		want  *int
	}{
		{"first position", list, []string{"Acme"}, intp(1)},
		{"third position", list, []string{"Tinder"}, intp(3)},
		{"paren marker", "  2) Acme is solid", []string{"Acme"}, intp(2)},
		{"bracket marker", "3] Acme", []string{"Acme"}, intp(3)},
		{"bold marker", "1. **Acme** - the leader", []string{"Acme"}, intp(1)},
		{"no numbered list", "Acme is great. Acme is popular.", []string{"Acme"}, nil},
		{"mentioned but not listed", "intro\n1. Bumble\n2. Tinder\nAcme is also fine", []string{"Acme"}, nil},
		{"nested renumbered item yields nothing", "1.1. Acme subsection", []string{"Acme"}, nil},
		{"first match wins", "2. Acme\n1. Acme", []string{"Acme"}, intp(2)},
		{"alias matches", list, []string{"nosuch", "bumble"}, intp(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectRank(tt.text, tt.terms)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

// The sentiment classifier is a keyword-window heuristic, not an NLP model;
// these cases pin its mechanics, not linguistic correctness.
func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Sentiment
	}{
		{"positive words win", "Acme is the best and most reliable choice.", SentimentPositive},
		{"negative words win", "Avoid Acme, it is slow and buggy.", SentimentNegative},
		{"tie is neutral", "Acme is great but expensive.", SentimentNeutral},
		{"no hits is neutral", "Acme exists.", SentimentNeutral},
		{"outside window ignored", "terrible terrible terrible " + pad(120) + " Acme is great", SentimentPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySentiment(tt.text, []string{"Acme"}, brandSentimentWindow))
		})
	}
}

func TestAnalyzeText_Competitors(t *testing.T) {
	text := "1. Bumble\n2. Acme\nBumble and Tinder are rivals. Bumble again."
	sig := AnalyzeText(text, "Acme", nil, []string{"Tinder", "Bumble", "Ghost"})

	require.Len(t, sig.Competitors, 2, "zero-mention competitors are excluded")
	assert.Equal(t, "Bumble", sig.Competitors[0].Name, "sorted by descending mentions")
	assert.Equal(t, 3, sig.Competitors[0].Mentions)
	require.NotNil(t, sig.Competitors[0].Rank)
	assert.Equal(t, 1, *sig.Competitors[0].Rank)
	assert.Equal(t, "Tinder", sig.Competitors[1].Name)
}

func TestDetermineWinner(t *testing.T) {
	t.Run("brand rank one wins outright", func(t *testing.T) {
		sig := AnalyzeText("1. Acme\n2. Bumble\nBumble Bumble Bumble", "Acme", nil, []string{"Bumble"})
		assert.Equal(t, "Acme", sig.Winner)
	})
	t.Run("competitor rank one wins outright", func(t *testing.T) {
		sig := AnalyzeText("1. Bumble\n2. Acme\nAcme Acme", "Acme", nil, []string{"Bumble"})
		assert.Equal(t, "Bumble", sig.Winner)
	})
	t.Run("mentions decide without rank one", func(t *testing.T) {
		sig := AnalyzeText("Bumble Bumble, Acme once", "Acme", nil, []string{"Bumble"})
		assert.Equal(t, "Bumble", sig.Winner)
	})
	t.Run("mention tie broken by lower rank", func(t *testing.T) {
		sig := AnalyzeText("2. Acme\n3. Bumble", "Acme", nil, []string{"Bumble"})
		assert.Equal(t, "Acme", sig.Winner)
	})
	t.Run("absent rank is worst on tie", func(t *testing.T) {
		sig := AnalyzeText("Acme here\n4. Bumble", "Acme", nil, []string{"Bumble"})
		assert.Equal(t, "Bumble", sig.Winner)
	})
	t.Run("nobody mentioned", func(t *testing.T) {
		sig := AnalyzeText("nothing relevant", "Acme", nil, []string{"Bumble"})
		assert.Equal(t, "", sig.Winner)
	})
}

func intp(v int) *int { return &v }

func pad(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
