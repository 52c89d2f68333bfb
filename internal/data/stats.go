// internal/data/stats.go
package data

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// topCreatorCount is the N of the top-creators aggregate.
const topCreatorCount = 5

// CreatorCount is one row of the top-creators aggregate.
type CreatorCount struct {
	CreatorID string `db:"creator_id" json:"creator_id"`
	Books     int    `db:"books" json:"books"`
}

// StatsStore assembles the statistics overview payload.
type StatsStore interface {
	Overview(ctx context.Context) map[string]any
}

// StatsModel runs the fixed set of aggregate queries backing the statistics
// endpoint. Each named query executes independently: a failure is logged and
// replaced with a safe default rather than failing the whole response, so
// the dashboard degrades per-metric instead of erroring outright.
type StatsModel struct {
	DB     *sqlx.DB
	Logger *slog.Logger
}

// Overview runs every aggregate query and returns the name → result map.
func (m StatsModel) Overview(ctx context.Context) map[string]any {
	return map[string]any{
		"total_books":    m.totalBooks(ctx),
		"by_status":      m.countsBy(ctx, "by_status", colStatus),
		"by_module_type": m.countsBy(ctx, "by_module_type", colModuleType),
		"top_creators":   m.topCreators(ctx),
	}
}

// totalBooks returns the total record count, or zero on failure.
func (m StatsModel) totalBooks(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	err := m.DB.GetContext(ctx, &total, `SELECT count(*) FROM books`)
	if err != nil {
		m.logFailure("total_books", err)
		return 0
	}
	return total
}

// countsBy returns per-value record counts grouped on the given categorical
// column, or an empty map on failure. The column name comes from the fixed
// set of grouping columns above, never from request input.
func (m StatsModel) countsBy(ctx context.Context, name, column string) map[string]int {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryxContext(
		ctx,
		`SELECT `+column+`, count(*) FROM books GROUP BY `+column,
	)
	if err != nil {
		m.logFailure(name, err)
		return map[string]int{}
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			m.logFailure(name, err)
			return map[string]int{}
		}
		counts[value] = count
	}
	if err := rows.Err(); err != nil {
		m.logFailure(name, err)
		return map[string]int{}
	}
	return counts
}

// topCreators returns the principals with the most books, or an empty slice
// on failure. Ties are broken on creator_id so the ranking is stable.
func (m StatsModel) topCreators(ctx context.Context) []CreatorCount {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT creator_id, count(*) AS books
		FROM books
		GROUP BY creator_id
		ORDER BY books DESC, creator_id ASC
		LIMIT $1`

	creators := []CreatorCount{}
	if err := m.DB.SelectContext(ctx, &creators, query, topCreatorCount); err != nil {
		m.logFailure("top_creators", err)
		return []CreatorCount{}
	}
	return creators
}

func (m StatsModel) logFailure(metric string, err error) {
	if m.Logger != nil {
		m.Logger.Error("statistics query failed",
			slog.String("metric", metric),
			slog.String("error", err.Error()),
		)
	}
}
