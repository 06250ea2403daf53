package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

// DefaultActivityLimit caps ListActivity when the caller passes no limit.
const DefaultActivityLimit = 100

func logActivity(ctx context.Context, q querier, e crawler.ActivityEntry, at time.Time) error {
	_, err := q.Exec(ctx, `
INSERT INTO activity_log (user_id, action, entity_type, entity_id, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, e.UserID, e.Action, e.EntityType, e.EntityID, e.Details, at)
	if err != nil {
		return fmt.Errorf("log activity %s: %w", e.Action, err)
	}
	return nil
}

// LogActivity appends one audit entry.
func (s *Store) LogActivity(ctx context.Context, e crawler.ActivityEntry) error {
	return logActivity(ctx, s.pool, e, s.now())
}

// ListActivity returns audit entries newest first.
func (s *Store) ListActivity(ctx context.Context, q crawler.ActivityQuery) ([]crawler.ActivityEntry, error) {
	p := &predicate{}
	if q.UserID != nil {
		p.add("a.user_id = $%d", *q.UserID)
	}
	if q.Action != "" {
		p.add("a.action = $%d", q.Action)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	args := append(p.args, limit)
	sql := fmt.Sprintf(`SELECT a.id, a.user_id, COALESCE(u.username, ''), a.action, a.entity_type,
	a.entity_id, a.details, a.created_at
FROM activity_log a
LEFT JOIN users u ON u.id = a.user_id%s
ORDER BY a.created_at DESC, a.id DESC
LIMIT $%d`, p.where(), len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (crawler.ActivityEntry, error) {
		var e crawler.ActivityEntry
		err := row.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan activity: %w", err)
	}
	return out, nil
}
