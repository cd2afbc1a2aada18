package audits

import "math"

// Scoring is pure: it only reads the ModelResult set plus the provider
// importance weights, and never divides by zero.

// ShareOfVoice = percentage of successful results that mention the brand.
func ShareOfVoice(results []ModelResult) int {
	successful, mentioned := 0, 0
	for _, r := range results {
		if !r.Success {
			continue
		}
		successful++
		if r.Mentioned {
			mentioned++
		}
	}
	if successful == 0 {
		return 0
	}
	return clampScore(int(math.Round(100 * float64(mentioned) / float64(successful))))
}

// AverageRank is the mean rank over results that have one, rounded to one
// decimal; nil when none do.
func AverageRank(results []ModelResult) *float64 {
	sum, n := 0.0, 0
	for _, r := range results {
		if r.Rank != nil {
			sum += float64(*r.Rank)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(sum/float64(n)*10) / 10
	return &avg
}

// VisibilityScore is the weighted per-provider score: base 100 when the
// brand's own domain is cited, 50 when merely mentioned, 0 otherwise, plus a
// rank bonus and a capped mention bonus, weighted by provider importance.
func VisibilityScore(results []ModelResult, weights map[ProviderID]float64) int {
	weighted, weightSum := 0.0, 0.0
	for _, r := range results {
		if !r.Success {
			continue
		}
		base := 0.0
		switch {
		case r.Cited:
			base = 100
		case r.Mentioned:
			base = 50
		}
		if r.Rank != nil {
			if bonus := 30 - (*r.Rank-1)*10; bonus > 0 {
				base += float64(bonus)
			}
		}
		mentionBonus := float64(r.Mentions * 5)
		if mentionBonus > 20 {
			mentionBonus = 20
		}
		base += mentionBonus

		w := 1.0
		if v, ok := weights[r.Provider]; ok && v > 0 {
			w = v
		}
		weighted += base * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return clampScore(int(math.Round(weighted / weightSum)))
}

// TrustIndex = round(0.6*citationRate + 0.4*authorityRate) over successful
// results; authority tier = cited with more than 2 mentions.
func TrustIndex(results []ModelResult) int {
	successful, cited, authority := 0, 0, 0
	for _, r := range results {
		if !r.Success {
			continue
		}
		successful++
		if r.Cited {
			cited++
		}
		if r.Authority {
			authority++
		}
	}
	if successful == 0 {
		return 0
	}
	citationRate := 100 * float64(cited) / float64(successful)
	authorityRate := 100 * float64(authority) / float64(successful)
	return clampScore(int(math.Round(0.6*citationRate + 0.4*authorityRate)))
}

// Summarize computes the full AuditSummary for one invocation.
func Summarize(results []ModelResult, weights map[ProviderID]float64, agreement Agreement) AuditSummary {
	totalCitations := 0
	totalCost := 0.0
	for _, r := range results {
		totalCitations += len(r.Citations)
		totalCost += r.Cost
	}
	return AuditSummary{
		ShareOfVoice:    ShareOfVoice(results),
		AverageRank:     AverageRank(results),
		TotalCitations:  totalCitations,
		VisibilityScore: VisibilityScore(results, weights),
		TrustIndex:      TrustIndex(results),
		TotalCost:       totalCost,
		Agreement:       agreement,
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
