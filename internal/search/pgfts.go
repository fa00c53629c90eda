package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the disputes fts column, scoped to
// the caller's records and ranked with ts_rank.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	if q.UserID == "" {
		return nil, 0, fmt.Errorf("search requires a user id")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "d.fts @@ plainto_tsquery('english', $1) AND d.user_id = $2"
	args := []any{q.Text, q.UserID}
	if q.TicketType != "" {
		where += " AND d.ticket_type = $3"
		args = append(args, q.TicketType)
	}

	countSQL := "SELECT count(*) FROM disputes d WHERE " + where
	dataSQL := fmt.Sprintf(`
		SELECT d.id, d.location, d.ticket_type, d.status, d.user_id,
			ts_headline('english', coalesce(d.additional_notes, '') || ' ' || coalesce(d.appeal_letter, ''),
				plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet
		FROM disputes d
		WHERE %s
		ORDER BY ts_rank(d.fts, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Location, &r.TicketType, &r.Status, &r.UserID, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every dispute for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DisputeRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, location, ticket_type, additional_notes, appeal_letter, status
		FROM disputes
	`)
	if err != nil {
		return nil, fmt.Errorf("load disputes: %w", err)
	}
	defer rows.Close()

	disputes := make([]DisputeRecord, 0)
	for rows.Next() {
		var d DisputeRecord
		if err := rows.Scan(&d.ID, &d.UserID, &d.Location, &d.TicketType, &d.AdditionalNotes, &d.AppealLetter, &d.Status); err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disputes: %w", err)
	}
	return disputes, nil
}
