package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/lib/pq"

	domain "github.com/bryanwahyu/brandvisor/internal/domain/audits"
)

// AuditRepository is the Postgres variant of the audit store; deployments
// pick mysql or postgres via database.driver.
type AuditRepository struct{ db *sql.DB }

func NewAuditRepository(db *sql.DB) *AuditRepository { return &AuditRepository{db: db} }

// Connect opens the pool with the same burst-write tuning as the mysql
// backend and verifies it with a bounded ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
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
VALUES ($1,$2,$3,$4,$5,$6,$7,
		$8,$9,$10,$11,
		$12,$13,$14,$15,$16,
		$17,$18,$19,$20)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 share_of_voice = EXCLUDED.share_of_voice,
 average_rank = EXCLUDED.average_rank,
 visibility_score = EXCLUDED.visibility_score,
 trust_index = EXCLUDED.trust_index,
 total_citations = EXCLUDED.total_citations,
 total_cost = EXCLUDED.total_cost,
 agreement = EXCLUDED.agreement,
 winner = EXCLUDED.winner,
 duration_ms = EXCLUDED.duration_ms,
 results_json = EXCLUDED.results_json,
 citations_json = EXCLUDED.citations_json,
 competitors_json = EXCLUDED.competitors_json;`

	triggered := a.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now()
	}
	var avgRank sql.NullFloat64
	if a.Summary.AverageRank != nil {
		avgRank = sql.NullFloat64{Float64: *a.Summary.AverageRank, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.TenantID, triggered, a.Request.Query, a.Request.Brand, a.Request.Location, string(a.Status),
		a.Summary.ShareOfVoice, avgRank, a.Summary.VisibilityScore, a.Summary.TrustIndex,
		a.Summary.TotalCitations, a.Summary.TotalCost, string(a.Summary.Agreement), a.Winner, a.DurationMS,
		marshal(a.Request), marshal(a.Results), marshal(a.TopCitations), marshal(a.TopCompetitors),
	)
	return err
}

// Get by ID + Tenant
func (r *AuditRepository) Get(ctx context.Context, tenant string, id domain.AuditID) (*domain.Audit, error) {
	q := `SELECT ` + auditColumns + ` FROM brand_audits WHERE tenant_id=$1 AND id=$2 LIMIT 1;`
	a, err := scanAudit(r.db.QueryRowContext(ctx, q, tenant, id))
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
	q := `SELECT ` + auditColumns + ` FROM brand_audits WHERE tenant_id=$1 ORDER BY triggered_at DESC LIMIT $2;`
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
SELECT COUNT(*),
	   COALESCE(AVG(visibility_score),0),
	   COALESCE(AVG(share_of_voice),0),
	   COALESCE(SUM(total_cost),0)
FROM brand_audits
WHERE tenant_id=$1 AND triggered_at >= $2;`

	var s domain.SummaryRollup
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&s.TotalAudits, &s.AvgVisibility, &s.AvgSOV, &s.TotalCost); err != nil {
		return domain.SummaryRollup{}, err
	}
	return s, nil
}

// Paginate with offset + limit
func (r *AuditRepository) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + auditColumns + ` FROM brand_audits WHERE tenant_id=$1`
	args := []interface{}{tenant}
	query, args = applyFilters(query, args, filters)
	query += fmt.Sprintf("\n ORDER BY triggered_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
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

	countQuery := `SELECT COUNT(*) FROM brand_audits WHERE tenant_id=$1`
	countArgs := []interface{}{tenant}
	countQuery, countArgs = applyFilters(countQuery, countArgs, filters)
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
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

func applyFilters(query string, args []interface{}, filters map[string]interface{}) (string, []interface{}) {
	if filters == nil {
		return query, args
	}
	for key, value := range filters {
		switch key {
		case "brand":
			query += fmt.Sprintf(" AND brand ILIKE $%d", len(args)+1)
			term, _ := value.(string)
			args = append(args, "%"+escapeLike(term)+"%")
		case "status":
			query += fmt.Sprintf(" AND status = $%d", len(args)+1)
			args = append(args, value)
		case "query":
			query += fmt.Sprintf(" AND query ILIKE $%d", len(args)+1)
			term, _ := value.(string)
			args = append(args, "%"+escapeLike(term)+"%")
		}
	}
	return query, args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

type rowScanner interface{ Scan(dest ...any) error }

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
	unmarshal(reqJSON, &a.Request)
	unmarshal(resJSON, &a.Results)
	unmarshal(citJSON, &a.TopCitations)
	unmarshal(compJSON, &a.TopCompetitors)
	return &a, nil
}

func unmarshal(s sql.NullString, out any) {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return
	}
	_ = json.Unmarshal([]byte(s.String), out)
}
