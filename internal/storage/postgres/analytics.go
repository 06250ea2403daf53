package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

const (
	analyticsWindow = 30 * 24 * time.Hour
	topKeywords     = 10
)

// Analytics aggregates the dashboard charts relative to now.
func (s *Store) Analytics(ctx context.Context, now time.Time) (crawler.Analytics, error) {
	since := now.UTC().Add(-analyticsWindow)
	var (
		out crawler.Analytics
		err error
	)
	out.DailyFetched, err = s.daily(ctx, `
SELECT to_char(fetched_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
FROM channels
WHERE fetched_at >= $1
GROUP BY day
ORDER BY day DESC`, since)
	if err != nil {
		return crawler.Analytics{}, fmt.Errorf("daily fetched: %w", err)
	}
	out.DailyEmailed, err = s.daily(ctx, `
SELECT to_char(emailed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
FROM channels
WHERE emailed AND emailed_at >= $1
GROUP BY day
ORDER BY day DESC`, since)
	if err != nil {
		return crawler.Analytics{}, fmt.Errorf("daily emailed: %w", err)
	}
	out.ByCountry, err = s.labelled(ctx, `
SELECT country_code, COUNT(*) AS n
FROM channels
GROUP BY country_code
ORDER BY n DESC, country_code`)
	if err != nil {
		return crawler.Analytics{}, fmt.Errorf("by country: %w", err)
	}
	out.ByKeyword, err = s.labelled(ctx, `
SELECT search_keyword, COUNT(*) AS n
FROM channels
WHERE search_keyword <> ''
GROUP BY search_keyword
ORDER BY n DESC, search_keyword
LIMIT $1`, topKeywords)
	if err != nil {
		return crawler.Analytics{}, fmt.Errorf("by keyword: %w", err)
	}
	out.UserPerformance, err = s.labelled(ctx, `
SELECT u.username, COUNT(c.id) AS n
FROM users u
JOIN channels c ON c.emailed_by = u.id AND c.emailed
GROUP BY u.id, u.username
ORDER BY n DESC, u.username`)
	if err != nil {
		return crawler.Analytics{}, fmt.Errorf("user performance: %w", err)
	}
	return out, nil
}

func (s *Store) daily(ctx context.Context, sql string, args ...any) ([]crawler.DailyCount, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (crawler.DailyCount, error) {
		var d crawler.DailyCount
		err := row.Scan(&d.Date, &d.Count)
		return d, err
	})
}

func (s *Store) labelled(ctx context.Context, sql string, args ...any) ([]crawler.LabelCount, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (crawler.LabelCount, error) {
		var l crawler.LabelCount
		err := row.Scan(&l.Label, &l.Count)
		return l, err
	})
}
