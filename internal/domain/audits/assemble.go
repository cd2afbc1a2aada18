package audits

import (
	"math"
	"sort"
)

// Cross-provider assembly: citations merge by normalized domain, competitors
// merge by name. Both keep first-seen metadata and return the top-N by count.

// MergeCitations collapses citations from all ModelResults into one entry per
// domain, counting occurrences and retaining the first-seen title/URL.
func MergeCitations(results []ModelResult, topN int) []MergedCitation {
	index := make(map[string]int)
	var merged []MergedCitation
	for _, r := range results {
		for _, c := range r.Citations {
			if i, ok := index[c.Domain]; ok {
				merged[i].Count++
				if merged[i].Title == "" {
					merged[i].Title = c.Title
				}
				if c.BrandOwned {
					merged[i].BrandOwned = true
				}
				continue
			}
			index[c.Domain] = len(merged)
			merged = append(merged, MergedCitation{
				Domain:     c.Domain,
				URL:        c.URL,
				Title:      c.Title,
				Count:      1,
				BrandOwned: c.BrandOwned,
			})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Count > merged[j].Count })
	return topSliceCitations(merged, topN)
}

// MergeCompetitors sums mention counts per competitor name across results and
// averages the ranks that are present.
func MergeCompetitors(results []ModelResult, topN int) []MergedCompetitor {
	type acc struct {
		mentions int
		rankSum  int
		rankN    int
	}
	index := make(map[string]int)
	var order []string
	accs := make(map[string]*acc)
	for _, r := range results {
		for _, c := range r.Competitors {
			a, ok := accs[c.Name]
			if !ok {
				a = &acc{}
				accs[c.Name] = a
				index[c.Name] = len(order)
				order = append(order, c.Name)
			}
			a.mentions += c.Mentions
			if c.Rank != nil {
				a.rankSum += *c.Rank
				a.rankN++
			}
		}
	}

	merged := make([]MergedCompetitor, 0, len(order))
	for _, name := range order {
		a := accs[name]
		mc := MergedCompetitor{Name: name, Mentions: a.mentions}
		if a.rankN > 0 {
			avg := math.Round(float64(a.rankSum)/float64(a.rankN)*10) / 10
			mc.AverageRank = &avg
		}
		merged = append(merged, mc)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Mentions != merged[j].Mentions {
			return merged[i].Mentions > merged[j].Mentions
		}
		return index[merged[i].Name] < index[merged[j].Name]
	})
	if topN > 0 && len(merged) > topN {
		merged = merged[:topN]
	}
	return merged
}

func topSliceCitations(in []MergedCitation, topN int) []MergedCitation {
	if topN > 0 && len(in) > topN {
		return in[:topN]
	}
	return in
}
