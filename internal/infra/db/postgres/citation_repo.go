package postgres

import (
	"context"
	"database/sql"

	domain "github.com/bryanwahyu/brandvisor/internal/domain/audits"
)

// CitationRepository persists the secondary per-citation rows. Its failures
// are logged by the caller and never fail the audit.
type CitationRepository struct {
	db *sql.DB
}

func NewCitationRepository(db *sql.DB) *CitationRepository {
	return &CitationRepository{db: db}
}

// SaveAll replaces the citation rows of one audit in a single transaction.
func (r *CitationRepository) SaveAll(ctx context.Context, tenant string, id domain.AuditID, citations []domain.MergedCitation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM audit_citations WHERE tenant_id=$1 AND audit_id=$2;`, tenant, id); err != nil {
		return err
	}

	const q = `
INSERT INTO audit_citations
(audit_id, tenant_id, domain, url, title, mention_count, brand_owned)
VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	for _, c := range citations {
		if _, err := tx.ExecContext(ctx, q,
			id, tenant, c.Domain, c.URL, c.Title, c.Count, c.BrandOwned,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByAudit returns the persisted citation rows of one audit.
func (r *CitationRepository) ListByAudit(ctx context.Context, tenant string, id domain.AuditID) ([]domain.MergedCitation, error) {
	const q = `
SELECT domain, url, title, mention_count, brand_owned
FROM audit_citations
WHERE tenant_id=$1 AND audit_id=$2
ORDER BY mention_count DESC;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MergedCitation
	for rows.Next() {
		var c domain.MergedCitation
		var title sql.NullString
		if err := rows.Scan(&c.Domain, &c.URL, &title, &c.Count, &c.BrandOwned); err != nil {
			return nil, err
		}
		c.Title = title.String
		out = append(out, c)
	}
	return out, rows.Err()
}
