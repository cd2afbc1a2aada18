package audits

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Signals is everything the text heuristics recover from one response string
// for one brand. Deterministic: no randomness, no external calls.
type Signals struct {
	Mentioned   bool
	Mentions    int
	Rank        *int
	Sentiment   Sentiment
	Matched     []string
	Competitors []CompetitorMention
	Winner      string
}

// listItemRe matches a numbered list line: optional whitespace, digits, one of
// . ) ], optional bold markers, then content. Leading number in group 1.
var listItemRe = regexp.MustCompile(`^\s*(\d+)[.)\]]\s*(?:\*\*\s*)?(.*)$`)

// nestedItemRe rejects re-numbered sub-items like "1.1." whose rank would be
// a guess rather than a list position.
var nestedItemRe = regexp.MustCompile(`^\d+[.)\]]`)

// Keyword lists for the windowed sentiment heuristic. This is deliberately
// naive; swap AnalyzeText for a model-backed implementation if that ever
// stops being enough.
var positiveWords = []string{
	"best", "great", "excellent", "leading", "top", "popular", "trusted",
	"reliable", "innovative", "recommended", "love", "favorite", "easy",
	"powerful", "impressive",
}

var negativeWords = []string{
	"worst", "bad", "poor", "avoid", "scam", "unreliable", "expensive",
	"slow", "buggy", "terrible", "disappointing", "limited", "problem",
	"issue", "complaint",
}

const (
	brandSentimentWindow      = 100
	competitorSentimentWindow = 50
)

// AnalyzeText runs mention counting, rank detection, sentiment and competitor
// analysis over one response string.
func AnalyzeText(text, brand string, aliases, competitors []string) Signals {
	brandTerms := append([]string{brand}, aliases...)

	sig := Signals{Sentiment: SentimentNeutral}
	for _, term := range brandTerms {
		if n := countMentions(text, term); n > 0 {
			sig.Mentions += n
			sig.Matched = append(sig.Matched, term)
		}
	}
	sig.Mentioned = sig.Mentions > 0
	sig.Rank = detectRank(text, brandTerms)
	if sig.Mentioned {
		sig.Sentiment = classifySentiment(text, brandTerms, brandSentimentWindow)
	}

	for _, name := range competitors {
		n := countMentions(text, name)
		if n == 0 {
			continue
		}
		cm := CompetitorMention{
			Name:      name,
			Mentions:  n,
			Rank:      detectRank(text, []string{name}),
			Sentiment: classifySentiment(text, []string{name}, competitorSentimentWindow),
		}
		sig.Competitors = append(sig.Competitors, cm)
	}
	sort.SliceStable(sig.Competitors, func(i, j int) bool {
		return sig.Competitors[i].Mentions > sig.Competitors[j].Mentions
	})

	sig.Winner = determineWinner(brand, sig)
	return sig
}

// countMentions counts case-insensitive, non-overlapping occurrences of term.
func countMentions(text, term string) int {
	term = strings.TrimSpace(term)
	if term == "" {
		return 0
	}
	lower := strings.ToLower(text)
	needle := strings.ToLower(term)
	count := 0
	for i := 0; ; {
		j := strings.Index(lower[i:], needle)
		if j < 0 {
			break
		}
		count++
		i += j + len(needle)
	}
	return count
}

// detectRank scans line by line for the first numbered list item whose
// content contains any of the terms. No match means no rank, never zero.
func detectRank(text string, terms []string) *int {
	needles := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			needles = append(needles, strings.ToLower(t))
		}
	}
	if len(needles) == 0 {
		return nil
	}
	for _, line := range strings.Split(text, "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		content := m[2]
		if nestedItemRe.MatchString(content) {
			continue
		}
		lower := strings.ToLower(content)
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				rank, err := strconv.Atoi(m[1])
				if err != nil || rank < 1 {
					return nil
				}
				return &rank
			}
		}
	}
	return nil
}

// classifySentiment takes a character window around the first occurrence of
// any term and lets the keyword lists vote. Ties and no-hits are neutral.
func classifySentiment(text string, terms []string, window int) Sentiment {
	lower := strings.ToLower(text)
	first := -1
	matchLen := 0
	for _, t := range terms {
		needle := strings.ToLower(strings.TrimSpace(t))
		if needle == "" {
			continue
		}
		if i := strings.Index(lower, needle); i >= 0 && (first < 0 || i < first) {
			first = i
			matchLen = len(needle)
		}
	}
	if first < 0 {
		return SentimentNeutral
	}

	start := first - window
	if start < 0 {
		start = 0
	}
	end := first + matchLen + window
	if end > len(lower) {
		end = len(lower)
	}
	ctx := lower[start:end]

	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(ctx, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(ctx, w)
	}
	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// determineWinner picks the winning party among brand + competitors: any
// party at rank 1 wins outright (brand checked first), otherwise highest
// mention count, ties broken by lowest rank with absent rank treated as worst.
func determineWinner(brand string, sig Signals) string {
	if sig.Rank != nil && *sig.Rank == 1 {
		return brand
	}
	for _, c := range sig.Competitors {
		if c.Rank != nil && *c.Rank == 1 {
			return c.Name
		}
	}

	bestName := brand
	bestMentions := sig.Mentions
	bestRank := rankOrWorst(sig.Rank)
	for _, c := range sig.Competitors {
		r := rankOrWorst(c.Rank)
		if c.Mentions > bestMentions || (c.Mentions == bestMentions && r < bestRank) {
			bestName = c.Name
			bestMentions = c.Mentions
			bestRank = r
		}
	}
	if bestMentions == 0 {
		return ""
	}
	return bestName
}

const worstRank = 1 << 30

func rankOrWorst(r *int) int {
	if r == nil {
		return worstRank
	}
	return *r
}
