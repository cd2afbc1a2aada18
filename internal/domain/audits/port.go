package audits

import "context"

// SummaryRollup is the N-day aggregate the repository computes for a tenant.
type SummaryRollup struct {
	TotalAudits   int     `json:"total_audits"`
	AvgVisibility float64 `json:"avg_visibility"`
	AvgSOV        float64 `json:"avg_share_of_voice"`
	TotalCost     float64 `json:"total_cost"`
}

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, a *Audit) error
	Get(ctx context.Context, tenant string, id AuditID) (*Audit, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Audit, error)
	Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (PaginatedResult, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (SummaryRollup, error)
}

// CitationRepository port for the secondary per-citation write. Its failure
// never fails the audit.
type CitationRepository interface {
	SaveAll(ctx context.Context, tenant string, id AuditID, citations []MergedCitation) error
	ListByAudit(ctx context.Context, tenant string, id AuditID) ([]MergedCitation, error)
}

// RawArchive port for archiving raw provider answers as evidence objects.
type RawArchive interface {
	ArchiveJSON(ctx context.Context, key string, v any) (string, error)
}
