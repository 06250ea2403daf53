package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/score"
)

const channelSelect = `SELECT
	c.id, c.channel_id, c.title, c.description, c.country, c.country_code,
	c.subscribers, c.total_views, c.video_count, c.custom_url, c.keywords,
	c.default_language, c.channel_url, c.search_keyword, c.fetched_at,
	c.emailed, c.emailed_at, c.emailed_by, COALESCE(eu.username, ''),
	c.reply_received, c.replied_at, c.replied_by, COALESCE(ru.username, ''),
	c.notes, c.priority_score
FROM channels c
LEFT JOIN users eu ON eu.id = c.emailed_by
LEFT JOIN users ru ON ru.id = c.replied_by`

const notesPreviewRunes = 50

func scanChannel(row pgx.Row) (crawler.Channel, error) {
	var ch crawler.Channel
	err := row.Scan(
		&ch.ID, &ch.ChannelID, &ch.Title, &ch.Description, &ch.Country, &ch.CountryCode,
		&ch.Subscribers, &ch.TotalViews, &ch.VideoCount, &ch.CustomURL, &ch.Keywords,
		&ch.DefaultLanguage, &ch.ChannelURL, &ch.SearchKeyword, &ch.FetchedAt,
		&ch.Emailed, &ch.EmailedAt, &ch.EmailedBy, &ch.EmailedByUsername,
		&ch.ReplyReceived, &ch.RepliedAt, &ch.RepliedBy, &ch.RepliedByUsername,
		&ch.Notes, &ch.PriorityScore,
	)
	return ch, err
}

// InsertChannel stores ch with a freshly computed priority score. A duplicate
// channel_id is a silent no-op reported as false.
func (s *Store) InsertChannel(ctx context.Context, ch crawler.Channel) (bool, error) {
	if ch.ChannelID == "" {
		return false, errors.New("channel id is required")
	}
	tag, err := s.pool.Exec(ctx, `
INSERT INTO channels (
	channel_id, title, description, country, country_code,
	subscribers, total_views, video_count, custom_url, keywords,
	default_language, channel_url, search_keyword, fetched_at, priority_score
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (channel_id) DO NOTHING`,
		ch.ChannelID, ch.Title, ch.Description, ch.Country, ch.CountryCode,
		ch.Subscribers, ch.TotalViews, ch.VideoCount, ch.CustomURL, ch.Keywords,
		ch.DefaultLanguage, ch.ChannelURL, ch.SearchKeyword, s.now(),
		score.Priority(ch.Subscribers, ch.TotalViews, ch.VideoCount),
	)
	if err != nil {
		return false, fmt.Errorf("insert channel: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// KnownChannelIDs returns every stored canonical id.
func (s *Store) KnownChannelIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT channel_id FROM channels`)
	if err != nil {
		return nil, fmt.Errorf("query channel ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan channel ids: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// GetChannel loads one row by surrogate id.
func (s *Store) GetChannel(ctx context.Context, id int64) (crawler.Channel, error) {
	ch, err := scanChannel(s.pool.QueryRow(ctx, channelSelect+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return crawler.Channel{}, fmt.Errorf("channel %d: %w", id, crawler.ErrNotFound)
	}
	if err != nil {
		return crawler.Channel{}, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

// ListChannels returns one page of channels. Limit <= 0 returns every match.
func (s *Store) ListChannels(ctx context.Context, opts crawler.ListOptions) ([]crawler.Channel, error) {
	opts = opts.Normalize()
	p := buildChannelPredicate(opts.Filter)
	query := channelSelect + p.where() + orderClause(opts)
	args := p.args
	if opts.Limit > 0 {
		args = append(args, opts.Limit, opts.Offset)
		query += " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	} else if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (crawler.Channel, error) {
		return scanChannel(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan channels: %w", err)
	}
	return out, nil
}

// CountChannels counts rows matching f using the same predicate as ListChannels.
func (s *Store) CountChannels(ctx context.Context, f crawler.ChannelFilter) (int64, error) {
	p := buildChannelPredicate(f)
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM channels c`+p.where(), p.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count channels: %w", err)
	}
	return n, nil
}

// MarkEmailed sets or clears the emailed state for ids and records one audit entry.
func (s *Store) MarkEmailed(ctx context.Context, ids []int64, emailed bool, actor crawler.User) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	action := crawler.ActionMarkedEmailed
	switch {
	case !emailed:
		action = crawler.ActionUnmarkedEmailed
	case len(ids) > 1:
		action = crawler.ActionBulkEmailed
	}

	var updated int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var (
			tagRows int64
			err     error
		)
		if emailed {
			tag, execErr := tx.Exec(ctx,
				`UPDATE channels SET emailed = TRUE, emailed_at = $1, emailed_by = $2 WHERE id = ANY($3)`,
				s.now(), actor.ID, ids)
			tagRows, err = tag.RowsAffected(), execErr
		} else {
			tag, execErr := tx.Exec(ctx,
				`UPDATE channels SET emailed = FALSE, emailed_at = NULL, emailed_by = NULL WHERE id = ANY($1)`,
				ids)
			tagRows, err = tag.RowsAffected(), execErr
		}
		if err != nil {
			return fmt.Errorf("update emailed: %w", err)
		}
		updated = tagRows
		return logActivity(ctx, tx, crawler.ActivityEntry{
			UserID:     userRef(actor),
			Action:     action,
			EntityType: "channel",
			Details:    fmt.Sprintf("Updated %d channels", len(ids)),
		}, s.now())
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// SetReplyStatus flips the reply flag for one channel; false means no such row.
func (s *Store) SetReplyStatus(ctx context.Context, id int64, received bool, actor crawler.User) (bool, error) {
	var changed bool
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var sql string
		var args []any
		if received {
			sql = `UPDATE channels SET reply_received = TRUE, replied_at = $1, replied_by = $2 WHERE id = $3`
			args = []any{s.now(), actor.ID, id}
		} else {
			sql = `UPDATE channels SET reply_received = FALSE, replied_at = NULL, replied_by = NULL WHERE id = $1`
			args = []any{id}
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update reply status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		changed = true
		details := "Marked channel as no reply"
		if received {
			details = "Marked channel as reply received"
		}
		return logActivity(ctx, tx, crawler.ActivityEntry{
			UserID:     userRef(actor),
			Action:     crawler.ActionUpdateReply,
			EntityType: "channel",
			EntityID:   &id,
			Details:    details,
		}, s.now())
	})
	return changed, err
}

// UpdateNotes replaces the notes on one channel; false means no such row.
func (s *Store) UpdateNotes(ctx context.Context, id int64, notes string, actor crawler.User) (bool, error) {
	var changed bool
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE channels SET notes = $1 WHERE id = $2`, notes, id)
		if err != nil {
			return fmt.Errorf("update notes: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		changed = true
		return logActivity(ctx, tx, crawler.ActivityEntry{
			UserID:     userRef(actor),
			Action:     crawler.ActionUpdatedNotes,
			EntityType: "channel",
			EntityID:   &id,
			Details:    "Updated notes: " + previewRunes(notes, notesPreviewRunes),
		}, s.now())
	})
	return changed, err
}

type scoreRow struct {
	id, subs, views, videos int64
	current                 float64
}

// RecomputePriorityScores rescores every row in one transaction and returns how many changed.
func (s *Store) RecomputePriorityScores(ctx context.Context) (int, error) {
	var changed int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, subscribers, total_views, video_count, priority_score FROM channels`)
		if err != nil {
			return fmt.Errorf("select scores: %w", err)
		}
		all, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (scoreRow, error) {
			var r scoreRow
			err := row.Scan(&r.id, &r.subs, &r.views, &r.videos, &r.current)
			return r, err
		})
		if err != nil {
			return fmt.Errorf("scan scores: %w", err)
		}
		for _, r := range all {
			next := score.Priority(r.subs, r.views, r.videos)
			if next == r.current {
				continue
			}
			if _, err := tx.Exec(ctx, `UPDATE channels SET priority_score = $1 WHERE id = $2`, next, r.id); err != nil {
				return fmt.Errorf("update score for %d: %w", r.id, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("priority scores recomputed", zap.Int("changed", changed))
	return changed, nil
}

// FilterOptions lists distinct search keywords and country codes.
func (s *Store) FilterOptions(ctx context.Context) (crawler.FilterOptions, error) {
	keywords, err := s.distinct(ctx, `SELECT DISTINCT search_keyword FROM channels WHERE search_keyword <> '' ORDER BY search_keyword`)
	if err != nil {
		return crawler.FilterOptions{}, fmt.Errorf("keywords: %w", err)
	}
	countries, err := s.distinct(ctx, `SELECT DISTINCT country_code FROM channels WHERE country_code <> '' ORDER BY country_code`)
	if err != nil {
		return crawler.FilterOptions{}, fmt.Errorf("countries: %w", err)
	}
	return crawler.FilterOptions{Keywords: keywords, Countries: countries}, nil
}

func (s *Store) distinct(ctx context.Context, sql string) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func userRef(u crawler.User) *int64 {
	if u.ID == 0 {
		return nil
	}
	id := u.ID
	return &id
}

func previewRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
