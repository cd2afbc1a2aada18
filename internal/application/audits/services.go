package audits

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/brandvisor/internal/application"
	domain "github.com/bryanwahyu/brandvisor/internal/domain/audits"
	"github.com/bryanwahyu/brandvisor/internal/domain/providers"
)

// Service implements use-cases untuk Audit.
// One RunAudit invocation fans out to the requested providers concurrently;
// the Service itself is stateless between invocations and safe for
// concurrent use.
type Service struct {
	Adapters map[domain.ProviderID]providers.Adapter
	Weights  map[domain.ProviderID]float64
	Repo     domain.Repository
	Cites    domain.CitationRepository
	Archive  domain.RawArchive
	Clock    application.Clock

	// Stagger is the delay between successive generative-provider launches
	// within one invocation; search providers launch immediately.
	Stagger time.Duration
	// Timeout bounds the whole invocation; in-flight calls past it are
	// abandoned and recorded as failures.
	Timeout time.Duration
	// TopN bounds the merged citation/competitor lists.
	TopN int
}

//
// ==== USE CASES ====
//

// RunAuditCommand is the invocation input as received from the boundary.
type RunAuditCommand struct {
	TenantID    string
	Query       string
	Brand       string
	Aliases     []string
	Competitors []string
	Location    string
	Providers   []string
}

// RunAuditResult is the invocation output handed back to the boundary.
type RunAuditResult struct {
	ID             string                     `json:"audit_id"`
	Summary        domain.AuditSummary        `json:"summary"`
	Results        []domain.ModelResult       `json:"model_results"`
	TopCitations   []domain.MergedCitation    `json:"top_citations"`
	TopCompetitors []domain.MergedCompetitor  `json:"top_competitors"`
	Winner         string                     `json:"winner,omitempty"`
	DurationMS     int64                      `json:"duration_ms"`
}

// RunAudit validates the request, fans out to every requested provider,
// enriches and scores the answers, and write-throughs the assembled record.
// Persistence failures are logged and never fail the invocation. A panic
// anywhere on the scoring/assembly path comes back as an error, never as a
// crashed request.
func (s *Service) RunAudit(ctx context.Context, cmd RunAuditCommand) (out RunAuditResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("audit panic recovered tenant=%s cause=%v", cmd.TenantID, r)
			out = RunAuditResult{}
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	req := domain.AuditRequest{
		Query:       cmd.Query,
		Brand:       cmd.Brand,
		Aliases:     cmd.Aliases,
		Competitors: cmd.Competitors,
		Location:    cmd.Location,
		Providers:   toProviderIDs(cmd.Providers),
	}
	if err := req.Validate(); err != nil {
		return RunAuditResult{}, err
	}

	now := s.Clock.Now()
	id := domain.AuditID(fmt.Sprintf("%s-audit", uuid.New().String()))

	audit := &domain.Audit{
		ID:          id,
		TenantID:    cmd.TenantID,
		TriggeredAt: now,
		Request:     req,
		Status:      domain.StatusPending,
	}
	// Initial row so the invocation is visible while running. Best effort.
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, audit); err != nil {
			log.Printf("audit initial save failed tenant=%s id=%s err=%v", cmd.TenantID, id, err)
		}
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	audit.Status = domain.StatusFanningOut
	results := s.fanOut(ctx, req)
	audit.Status = domain.StatusCollecting

	agreement := s.agreement(req, results)
	summary := domain.Summarize(results, s.Weights, agreement)
	topCitations := domain.MergeCitations(results, s.topN())
	topCompetitors := domain.MergeCompetitors(results, s.topN())
	winner := overallWinner(req.Brand, results)

	audit.Status = domain.StatusDone
	audit.Summary = summary
	audit.Results = results
	audit.TopCitations = topCitations
	audit.TopCompetitors = topCompetitors
	audit.Winner = winner
	audit.DurationMS = s.Clock.Now().Sub(now).Milliseconds()

	s.persist(audit)

	return RunAuditResult{
		ID:             string(id),
		Summary:        summary,
		Results:        results,
		TopCitations:   topCitations,
		TopCompetitors: topCompetitors,
		Winner:         winner,
		DurationMS:     audit.DurationMS,
	}, nil
}

// fanOut launches one goroutine per requested provider, each writing its
// enriched result into its own request-order slot. Generative launches are
// staggered to avoid burst rate-limiting; nothing is shared between calls,
// so collection needs no locks. On ctx expiry the remaining in-flight calls
// are abandoned and their slots filled with timeout failures.
func (s *Service) fanOut(ctx context.Context, req domain.AuditRequest) []domain.ModelResult {
	type slot struct {
		idx int
		res domain.ModelResult
	}

	results := make([]domain.ModelResult, len(req.Providers))
	filled := make([]bool, len(req.Providers))
	ch := make(chan slot, len(req.Providers))

	launched := 0
	genIdx := 0
	for i, pid := range req.Providers {
		adapter, ok := s.Adapters[pid]
		if !ok {
			results[i] = domain.ModelResult{
				Provider:    pid,
				Success:     false,
				Error:       fmt.Sprintf("unknown provider: %s", pid),
				FailureKind: string(providers.FailureMalformedRequest),
				Sentiment:   domain.SentimentNeutral,
			}
			filled[i] = true
			continue
		}

		var delay time.Duration
		if adapter.Kind() == providers.KindGenerative {
			delay = time.Duration(genIdx) * s.Stagger
			genIdx++
		}

		launched++
		go func(idx int, adapter providers.Adapter, delay time.Duration) {
			// A panicking adapter or extractor loses its own slot only;
			// sibling providers keep running.
			defer func() {
				if r := recover(); r != nil {
					log.Printf("provider panic recovered provider=%s cause=%v", adapter.ID(), r)
					ch <- slot{idx, internalFailureResult(adapter.ID(), r)}
				}
			}()
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					ch <- slot{idx, abandonedResult(adapter.ID())}
					return
				}
			}
			pr := adapter.Invoke(ctx, providers.Query{Text: req.Query, Location: req.Location})
			ch <- slot{idx, enrich(pr, req)}
		}(i, adapter, delay)
	}

	received := 0
collect:
	for received < launched {
		select {
		case sl := <-ch:
			results[sl.idx] = sl.res
			filled[sl.idx] = true
			received++
		case <-ctx.Done():
			break collect
		}
	}
	// Slots whose calls never came back are failures, not holes.
	for i, ok := range filled {
		if !ok {
			results[i] = abandonedResult(string(req.Providers[i]))
		}
	}
	return results
}

// enrich runs the signal and citation extractors over a successful provider
// answer and maps it into a ModelResult. Failures map 1:1 with no signals.
func enrich(pr providers.Result, req domain.AuditRequest) domain.ModelResult {
	mr := domain.ModelResult{
		Provider:    domain.ProviderID(pr.Provider),
		Success:     pr.Success,
		Response:    pr.Response,
		LatencyMS:   pr.LatencyMS,
		Cost:        pr.Cost,
		FailureKind: string(pr.Failure),
		Error:       pr.Err,
		Sentiment:   domain.SentimentNeutral,
	}
	if !pr.Success {
		return mr
	}

	sig := domain.AnalyzeText(pr.Response, req.Brand, req.Aliases, req.Competitors)
	mr.Mentioned = sig.Mentioned
	mr.Mentions = sig.Mentions
	mr.Rank = sig.Rank
	mr.Sentiment = sig.Sentiment
	mr.Matched = sig.Matched
	mr.Competitors = sig.Competitors
	mr.Winner = sig.Winner
	mr.Citations = domain.ExtractCitations(pr.Response, req.Brand, req.Aliases, req.Competitors)

	// Cited means the brand's own domain showed up as an extracted source;
	// inferred citations don't count, they are mention proxies.
	for _, c := range mr.Citations {
		if c.BrandOwned && !c.Inferred {
			mr.Cited = true
			break
		}
	}
	mr.Authority = mr.Cited && mr.Mentions > 2
	return mr
}

// agreement collects the successful generative answers and computes the
// cross-model overlap. Needs at least two to mean anything.
func (s *Service) agreement(req domain.AuditRequest, results []domain.ModelResult) domain.Agreement {
	var answers []string
	for i, r := range results {
		if !r.Success {
			continue
		}
		adapter, ok := s.Adapters[req.Providers[i]]
		if !ok || adapter.Kind() != providers.KindGenerative {
			continue
		}
		answers = append(answers, r.Response)
	}
	return domain.ComputeAgreement(answers)
}

// persist write-throughs the finished audit: main record, per-citation rows,
// raw-answer archive. Each is best effort; the computed result is returned
// to the caller regardless.
func (s *Service) persist(audit *domain.Audit) {
	ctx := context.Background()
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, audit); err != nil {
			log.Printf("audit save failed tenant=%s id=%s err=%v", audit.TenantID, audit.ID, err)
		}
	}
	if s.Cites != nil && len(audit.TopCitations) > 0 {
		if err := s.Cites.SaveAll(ctx, audit.TenantID, audit.ID, audit.TopCitations); err != nil {
			log.Printf("citation rows save failed tenant=%s id=%s err=%v", audit.TenantID, audit.ID, err)
		}
	}
	if s.Archive != nil {
		key := fmt.Sprintf("%s/%s/responses.json", audit.TenantID, audit.ID)
		if _, err := s.Archive.ArchiveJSON(ctx, key, rawAnswers(audit.Results)); err != nil {
			log.Printf("raw answer archive failed tenant=%s id=%s err=%v", audit.TenantID, audit.ID, err)
		}
	}
}

// Latest ambil N audit terakhir
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Audit, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Get ambil 1 audit by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.AuditID) (*domain.Audit, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// Citations lists the persisted per-citation rows of one audit.
func (s *Service) Citations(ctx context.Context, tenant string, id domain.AuditID) ([]domain.MergedCitation, error) {
	if s.Cites == nil {
		return nil, nil
	}
	// ensure the audit exists (and belongs to the tenant) first
	if _, err := s.Repo.Get(ctx, tenant, id); err != nil {
		return nil, err
	}
	return s.Cites.ListByAudit(ctx, tenant, id)
}

// Paginate lists audits with offset pagination and optional filters.
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize, filters)
}

// Summary rekap audit N hari terakhir
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (domain.SummaryRollup, error) {
	return s.Repo.Summary(ctx, tenant, sinceDays)
}

// helpers

func (s *Service) topN() int {
	if s.TopN <= 0 {
		return 10
	}
	return s.TopN
}

func toProviderIDs(ids []string) []domain.ProviderID {
	out := make([]domain.ProviderID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ProviderID(id))
	}
	return out
}

func internalFailureResult(provider string, cause any) domain.ModelResult {
	return domain.ModelResult{
		Provider:    domain.ProviderID(provider),
		Success:     false,
		Error:       fmt.Sprintf("internal error: %v", cause),
		FailureKind: string(providers.FailureInternal),
		Sentiment:   domain.SentimentNeutral,
	}
}

func abandonedResult(provider string) domain.ModelResult {
	return domain.ModelResult{
		Provider:    domain.ProviderID(provider),
		Success:     false,
		Error:       "provider call abandoned: invocation deadline exceeded",
		FailureKind: string(providers.FailureTimeout),
		Sentiment:   domain.SentimentNeutral,
	}
}

// overallWinner is the party that won the most individual responses; ties
// go to the brand, then to the earlier-seen party.
func overallWinner(brand string, results []domain.ModelResult) string {
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		if !r.Success || r.Winner == "" {
			continue
		}
		if _, ok := counts[r.Winner]; !ok {
			order = append(order, r.Winner)
		}
		counts[r.Winner]++
	}
	best, bestN := "", 0
	for _, w := range order {
		n := counts[w]
		if n > bestN || (n == bestN && w == brand) {
			best, bestN = w, n
		}
	}
	return best
}

func rawAnswers(results []domain.ModelResult) map[string]string {
	out := make(map[string]string, len(results))
	for _, r := range results {
		if r.Response != "" {
			out[string(r.Provider)] = r.Response
		}
	}
	return out
}
