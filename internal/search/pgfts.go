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

// Healthy always returns true. If Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across suggestions and backlog_items
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultSuggestion {
		where := "s.fts @@ " + tsQuery
		if q.FilterProjectID != "" {
			where += fmt.Sprintf(" AND s.project_id = $%d", argN)
			args = append(args, q.FilterProjectID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'suggestion'::text AS type, s.id, s.title,
				ts_headline('english', coalesce(s.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				s.project_id, s.status,
				ts_rank(s.fts, %s) AS rank
			FROM suggestions s
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultBacklog {
		where := "b.fts @@ " + tsQuery
		if q.FilterProjectID != "" {
			where += fmt.Sprintf(" AND b.project_id = $%d", argN)
			args = append(args, q.FilterProjectID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'backlog_item'::text AS type, b.id, b.title,
				ts_headline('english', coalesce(b.summary, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				b.project_id, b.stage AS status,
				ts_rank(b.fts, %s) AS rank
			FROM backlog_items b
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, project_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

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
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.ProjectID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]SuggestionRecord, []BacklogRecord, error) {
	sugRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description, project_id, status
		FROM suggestions
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load suggestions: %w", err)
	}
	defer sugRows.Close()

	suggestions := make([]SuggestionRecord, 0)
	for sugRows.Next() {
		var s SuggestionRecord
		if err := sugRows.Scan(&s.ID, &s.Title, &s.Description, &s.ProjectID, &s.Status); err != nil {
			return nil, nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, s)
	}
	if err := sugRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate suggestions: %w", err)
	}

	itemRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, summary, project_id, stage, priority
		FROM backlog_items
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load backlog items: %w", err)
	}
	defer itemRows.Close()

	items := make([]BacklogRecord, 0)
	for itemRows.Next() {
		var b BacklogRecord
		if err := itemRows.Scan(&b.ID, &b.Title, &b.Summary, &b.ProjectID, &b.Stage, &b.Priority); err != nil {
			return nil, nil, fmt.Errorf("scan backlog item: %w", err)
		}
		items = append(items, b)
	}
	if err := itemRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate backlog items: %w", err)
	}

	return suggestions, items, nil
}
