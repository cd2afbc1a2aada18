package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/brandvisor/internal/domain/audits"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, tenant_id, triggered_at, query, brand, location, status,
       share_of_voice, average_rank, visibility_score, trust_index,
       total_citations, total_cost, agreement, winner, duration_ms,
       request_json, results_json, citations_json, competitors_json`

// Save insert/update Audit record
func (r *AuditRepository) Save(ctx context.Context, a *domain.Audit) error {
	const q = `
INSERT INTO brand_audits
(id, tenant_id, triggered_at, query, brand, location, status,
 share_of_voice, average_rank, visibility_score, trust_index,
 total_citations, total_cost, agreement, winner, duration_ms,
 request_json, results_json, citations_json, competitors_json)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 share_of_voice=VALUES(share_of_voice), average_rank=VALUES(average_rank),
 visibility_score=VALUES(visibility_score), trust_index=VALUES(trust_index),
 total_citations=VALUES(total_citations), total_cost=VALUES(total_cost),
 agreement=VALUES(agreement), winner=VALUES(winner), duration_ms=VALUES(duration_ms),
 results_json=VALUES(results_json), citations_json=VALUES(citations_json),
 competitors_json=VALUES(competitors_json);
`
	tenant := stringOrDash(a.TenantID)
	status := stringOrDash(string(a.Status))
	triggered := a.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now()
	}
	var avgRank sql.NullFloat64
	if a.Summary.AverageRank != nil {
		avgRank = sql.NullFloat64{Float64: *a.Summary.AverageRank, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, tenant, triggered, a.Request.Query, a.Request.Brand, a.Request.Location, status,
		a.Summary.ShareOfVoice, avgRank, a.Summary.VisibilityScore, a.Summary.TrustIndex,
		a.Summary.TotalCitations, a.Summary.TotalCost, string(a.Summary.Agreement), a.Winner, a.DurationMS,
		toJSON(a.Request), toJSON(a.Results), toJSON(a.TopCitations), toJSON(a.TopCompetitors),
	)
	return err
}

// Get by ID + Tenant
func (r *AuditRepository) Get(ctx context.Context, tenant string, id domain.AuditID) (*domain.Audit, error) {
	q := `SELECT ` + auditColumns + ` FROM brand_audits WHERE tenant_id=? AND id=? LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, tenant, id)
	a, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// Latest audits per tenant
func (r *AuditRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Audit, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + auditColumns + ` FROM brand_audits WHERE tenant_id=? ORDER BY triggered_at DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Summary rollup over the last N days
func (r *AuditRepository) Summary(ctx context.Context, tenant string, sinceDays int) (domain.SummaryRollup, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total_audits,
       COALESCE(AVG(visibility_score),0) AS avg_visibility,
       COALESCE(AVG(share_of_voice),0)   AS avg_sov,
       COALESCE(SUM(total_cost),0)       AS total_cost
FROM brand_audits
WHERE tenant_id=? AND triggered_at >= ?;
`
	var s domain.SummaryRollup
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&s.TotalAudits, &s.AvgVisibility, &s.AvgSOV, &s.TotalCost); err != nil {
		return domain.SummaryRollup{}, err
	}
	return s, nil
}

// Paginate with offset + limit (classic pagination)
func (r *AuditRepository) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + auditColumns + ` FROM brand_audits WHERE tenant_id=?`
	args := []interface{}{tenant}
	query, args = applyFilters(query, args, filters)
	query += "\n ORDER BY triggered_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying audits: %w", err)
	}
	defer rows.Close()

	var audits []*domain.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		audits = append(audits, a)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := r.Count(ctx, tenant, filters)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       audits,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Count returns the total number of records matching the given filters
func (r *AuditRepository) Count(ctx context.Context, tenant string, filters map[string]interface{}) (int64, error) {
	query := "SELECT COUNT(*) FROM brand_audits WHERE tenant_id = ?"
	args := []interface{}{tenant}
	query, args = applyFilters(query, args, filters)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func applyFilters(query string, args []interface{}, filters map[string]interface{}) (string, []interface{}) {
	if filters == nil {
		return query, args
	}
	for key, value := range filters {
		switch key {
		case "brand":
			query += " AND brand LIKE ?"
			term, _ := value.(string)
			args = append(args, "%"+escapeLikePattern(term)+"%")
		case "status":
			query += " AND status = ?"
			args = append(args, value)
		case "query":
			query += " AND query LIKE ?"
			term, _ := value.(string)
			args = append(args, "%"+escapeLikePattern(term)+"%")
		}
	}
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudit(row rowScanner) (*domain.Audit, error) {
	var a domain.Audit
	var avgRank sql.NullFloat64
	var agreement, winner sql.NullString
	var reqJSON, resJSON, citJSON, compJSON sql.NullString

	if err := row.Scan(
		&a.ID, &a.TenantID, &a.TriggeredAt, &a.Request.Query, &a.Request.Brand, &a.Request.Location, &a.Status,
		&a.Summary.ShareOfVoice, &avgRank, &a.Summary.VisibilityScore, &a.Summary.TrustIndex,
		&a.Summary.TotalCitations, &a.Summary.TotalCost, &agreement, &winner, &a.DurationMS,
		&reqJSON, &resJSON, &citJSON, &compJSON,
	); err != nil {
		return nil, err
	}
	if avgRank.Valid {
		v := avgRank.Float64
		a.Summary.AverageRank = &v
	}
	a.Summary.Agreement = domain.Agreement(agreement.String)
	a.Winner = winner.String
	fromJSON(reqJSON, &a.Request)
	fromJSON(resJSON, &a.Results)
	fromJSON(citJSON, &a.TopCitations)
	fromJSON(compJSON, &a.TopCompetitors)
	return &a, nil
}
