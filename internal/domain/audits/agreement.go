package audits

import (
	"regexp"
	"sort"
	"strings"
)

// Cross-model agreement: lexical overlap between generative answers to the
// same query, used as a hallucination-risk signal. Informational only; no
// result is ever discarded because of it.

var agreementWordRe = regexp.MustCompile(`[a-z]{4,}`)

const (
	agreementTopWords   = 30
	agreementShareLimit = 5
)

// ComputeAgreement classifies pairwise overlap between the top-30 frequent
// 4+-letter words of each response. All pairs sharing >=5 words -> high, at
// least one such pair -> medium, else low. Empty when fewer than two
// responses are given.
func ComputeAgreement(responses []string) Agreement {
	if len(responses) < 2 {
		return ""
	}
	sets := make([]map[string]bool, len(responses))
	for i, r := range responses {
		sets[i] = topWords(r, agreementTopWords)
	}

	pairs, agreeing := 0, 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			pairs++
			if shared(sets[i], sets[j]) >= agreementShareLimit {
				agreeing++
			}
		}
	}
	switch {
	case agreeing == pairs:
		return AgreementHigh
	case agreeing > 0:
		return AgreementMedium
	default:
		return AgreementLow
	}
}

// topWords returns the n most frequent 4+-letter lowercase words of text.
// Frequency ties break alphabetically so the result is deterministic.
func topWords(text string, n int) map[string]bool {
	freq := make(map[string]int)
	for _, w := range agreementWordRe.FindAllString(strings.ToLower(text), -1) {
		freq[w]++
	}
	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

func shared(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
