package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

// Tables are created once; later columns are appended with ADD COLUMN IF NOT EXISTS
// so the statements are safe to run on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS channels (
	id               BIGSERIAL PRIMARY KEY,
	channel_id       TEXT NOT NULL UNIQUE,
	title            TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	subscribers      BIGINT NOT NULL DEFAULT 0,
	total_views      BIGINT NOT NULL DEFAULT 0,
	video_count      BIGINT NOT NULL DEFAULT 0,
	custom_url       TEXT NOT NULL DEFAULT '',
	keywords         TEXT NOT NULL DEFAULT '',
	default_language TEXT NOT NULL DEFAULT '',
	channel_url      TEXT NOT NULL DEFAULT '',
	search_keyword   TEXT NOT NULL DEFAULT '',
	country_code     TEXT NOT NULL DEFAULT '',
	fetched_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	emailed          BOOLEAN NOT NULL DEFAULT FALSE,
	emailed_at       TIMESTAMPTZ,
	notes            TEXT NOT NULL DEFAULT ''
)`,
	`ALTER TABLE channels ADD COLUMN IF NOT EXISTS emailed_by BIGINT REFERENCES users(id)`,
	`ALTER TABLE channels ADD COLUMN IF NOT EXISTS priority_score DOUBLE PRECISION NOT NULL DEFAULT 0`,
	`ALTER TABLE channels ADD COLUMN IF NOT EXISTS reply_received BOOLEAN NOT NULL DEFAULT FALSE`,
	`ALTER TABLE channels ADD COLUMN IF NOT EXISTS replied_at TIMESTAMPTZ`,
	`ALTER TABLE channels ADD COLUMN IF NOT EXISTS replied_by BIGINT REFERENCES users(id)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT REFERENCES users(id),
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	entity_id   BIGINT,
	details     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_emailed ON channels(emailed)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_emailed_by ON channels(emailed_by)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_priority_score ON channels(priority_score)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_reply_received ON channels(reply_received)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_replied_by ON channels(replied_by)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_fetched_at ON channels(fetched_at)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_log(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_log(created_at)`,
}

// Migrate creates or evolves the schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	s.logger.Info("schema ready", zap.Int("statements", len(schemaStatements)))
	return nil
}

// SeedAdmin inserts admin when the users table is empty. It reports whether a row was created.
func (s *Store) SeedAdmin(ctx context.Context, admin crawler.User) (bool, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	admin.Role = crawler.RoleAdmin
	if _, err := s.CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Warn("created default admin account; change its password", zap.String("username", admin.Username))
	return true, nil
}
