package audits

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ID tipe untuk Audit
type AuditID string

// ProviderID identifies one catalog entry ("openai", "perplexity", "serp", ...)
type ProviderID string

// Status enum; states are never revisited
type Status string

const (
	StatusPending    Status = "pending"
	StatusFanningOut Status = "fanning_out"
	StatusCollecting Status = "collecting"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Sentiment label produced by the keyword heuristic
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Agreement is the cross-model lexical overlap level; empty when fewer than
// two generative providers succeeded.
type Agreement string

const (
	AgreementHigh   Agreement = "high"
	AgreementMedium Agreement = "medium"
	AgreementLow    Agreement = "low"
)

const (
	maxQueryLen  = 500
	maxBrandLen  = 100
	maxTermLen   = 100
	maxTerms     = 20
	maxProviders = 10
)

// AuditRequest is the immutable input of one audit invocation.
type AuditRequest struct {
	Query       string       `json:"query"`
	Brand       string       `json:"brand"`
	Aliases     []string     `json:"aliases,omitempty"`
	Competitors []string     `json:"competitors,omitempty"`
	Location    string       `json:"location,omitempty"`
	Providers   []ProviderID `json:"providers"`
}

// Validate trims and bounds the request. A validation error fails the whole
// invocation before any provider is called.
func (r *AuditRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	r.Brand = strings.TrimSpace(r.Brand)
	if r.Query == "" {
		return fmt.Errorf("%w: query is required", ErrValidation)
	}
	if len(r.Query) > maxQueryLen {
		return fmt.Errorf("%w: query exceeds %d characters", ErrValidation, maxQueryLen)
	}
	if r.Brand == "" {
		return fmt.Errorf("%w: brand is required", ErrValidation)
	}
	if len(r.Brand) > maxBrandLen {
		return fmt.Errorf("%w: brand exceeds %d characters", ErrValidation, maxBrandLen)
	}
	if len(r.Providers) == 0 {
		return fmt.Errorf("%w: at least one provider is required", ErrValidation)
	}
	if len(r.Providers) > maxProviders {
		return fmt.Errorf("%w: at most %d providers per audit", ErrValidation, maxProviders)
	}
	if len(r.Aliases) > maxTerms || len(r.Competitors) > maxTerms {
		return fmt.Errorf("%w: at most %d aliases/competitors", ErrValidation, maxTerms)
	}
	for _, set := range [][]string{r.Aliases, r.Competitors} {
		for _, t := range set {
			if len(t) > maxTermLen {
				return fmt.Errorf("%w: term %q exceeds %d characters", ErrValidation, truncate(t, maxTermLen), maxTermLen)
			}
		}
	}
	return nil
}

// truncate cuts s at or below n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Citation is one discovered source reference. Inferred citations are
// synthesized from plain-text entity mentions, not extracted from a URL.
type Citation struct {
	URL        string `json:"url"`
	Domain     string `json:"domain"`
	Title      string `json:"title,omitempty"`
	Position   int    `json:"position"`
	Snippet    string `json:"snippet,omitempty"`
	BrandOwned bool   `json:"brand_owned"`
	Inferred   bool   `json:"inferred,omitempty"`
}

// CompetitorMention aggregates one competitor inside a single response.
type CompetitorMention struct {
	Name      string    `json:"name"`
	Mentions  int       `json:"mentions"`
	Rank      *int      `json:"rank,omitempty"`
	Sentiment Sentiment `json:"sentiment"`
}

// ModelResult is the enriched view of one provider call after the signal and
// citation extractors ran over its response. Immutable once produced.
type ModelResult struct {
	Provider    ProviderID          `json:"provider"`
	Success     bool                `json:"success"`
	Response    string              `json:"response,omitempty"`
	LatencyMS   int64               `json:"latency_ms"`
	Cost        float64             `json:"cost"`
	FailureKind string              `json:"failure_kind,omitempty"`
	Error       string              `json:"error,omitempty"`
	Mentioned   bool                `json:"mentioned"`
	Mentions    int                 `json:"mentions"`
	Rank        *int                `json:"rank,omitempty"`
	Sentiment   Sentiment           `json:"sentiment,omitempty"`
	Matched     []string            `json:"matched_terms,omitempty"`
	Competitors []CompetitorMention `json:"competitors,omitempty"`
	Citations   []Citation          `json:"citations,omitempty"`
	Cited       bool                `json:"cited"`
	Authority   bool                `json:"authority"`
	Winner      string              `json:"winner,omitempty"`
}

// AuditSummary is the read-only aggregate over all ModelResults.
// AverageRank is nil when no result carried a rank.
type AuditSummary struct {
	ShareOfVoice    int       `json:"share_of_voice"`
	AverageRank     *float64  `json:"average_rank"`
	TotalCitations  int       `json:"total_citations"`
	VisibilityScore int       `json:"visibility_score"`
	TrustIndex      int       `json:"trust_index"`
	TotalCost       float64   `json:"total_cost"`
	Agreement       Agreement `json:"agreement,omitempty"`
}

// MergedCitation is one cross-provider citation entry, merged by domain.
type MergedCitation struct {
	Domain     string `json:"domain"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Count      int    `json:"count"`
	BrandOwned bool   `json:"brand_owned"`
}

// MergedCompetitor is one cross-provider competitor entry, merged by name.
type MergedCompetitor struct {
	Name        string   `json:"name"`
	Mentions    int      `json:"mentions"`
	AverageRank *float64 `json:"average_rank,omitempty"`
}

// Aggregate Root: Audit (the persisted record of one invocation)
type Audit struct {
	ID             AuditID            `json:"id"`
	TenantID       string             `json:"tenant_id"`
	TriggeredAt    time.Time          `json:"triggered_at"`
	Request        AuditRequest       `json:"request"`
	Status         Status             `json:"status"`
	Summary        AuditSummary       `json:"summary"`
	Results        []ModelResult      `json:"model_results"`
	TopCitations   []MergedCitation   `json:"top_citations,omitempty"`
	TopCompetitors []MergedCompetitor `json:"top_competitors,omitempty"`
	Winner         string             `json:"winner,omitempty"`
	DurationMS     int64              `json:"duration_ms"`
}
