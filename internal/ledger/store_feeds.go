package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const feedColumns = "id, url, name, slug, etag, last_modified, last_checked_at"

func scanFeed(scanner interface{ Scan(dest ...any) error }) (*Feed, error) {
	var (
		id           int64
		url          string
		name         string
		slug         string
		etag         sql.NullString
		lastModified sql.NullString
		lastChecked  sql.NullString
	)
	if err := scanner.Scan(&id, &url, &name, &slug, &etag, &lastModified, &lastChecked); err != nil {
		return nil, err
	}
	feed := &Feed{
		ID:           id,
		URL:          url,
		Name:         name,
		Slug:         slug,
		ETag:         etag.String,
		LastModified: lastModified.String,
	}
	if lastChecked.Valid {
		if checked, err := parseTimeString(lastChecked.String); err == nil {
			feed.LastCheckedAt = checked
		}
	}
	return feed, nil
}

// UpsertFeed registers a feed URL, keeping the stored name and slug of an
// already known feed so episode directories stay stable across config renames.
func (s *Store) UpsertFeed(ctx context.Context, url, name, slug string) (*Feed, error) {
	existing, err := s.FeedByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO feeds (url, name, slug) VALUES (?, ?, ?)`,
		url, name, slug,
	)
	if err != nil {
		return nil, fmt.Errorf("insert feed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.FeedByID(ctx, id)
}

// FeedByID fetches a feed by identifier.
func (s *Store) FeedByID(ctx context.Context, id int64) (*Feed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return feed, nil
}

// FeedByURL fetches a feed by its subscription URL.
func (s *Store) FeedByURL(ctx context.Context, url string) (*Feed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE url = ?`, url)
	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feed by url: %w", err)
	}
	return feed, nil
}

// Feeds returns every known feed ordered by identifier.
func (s *Store) Feeds(ctx context.Context) ([]*Feed, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var feeds []*Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}
	return feeds, nil
}

// RecordFeedResponse stores the cache validators from a feed fetch. An
// unchanged response (HTTP 304) only bumps the check timestamp and leaves the
// stored validators untouched.
func (s *Store) RecordFeedResponse(ctx context.Context, feedID int64, etag, lastModified string, unchanged bool) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if unchanged {
		if err := s.execWithoutResultRetry(
			ctx,
			`UPDATE feeds SET last_checked_at = ? WHERE id = ?`,
			now, feedID,
		); err != nil {
			return fmt.Errorf("record unchanged feed response: %w", err)
		}
		return nil
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE feeds SET etag = ?, last_modified = ?, last_checked_at = ? WHERE id = ?`,
		nullableString(etag), nullableString(lastModified), now, feedID,
	); err != nil {
		return fmt.Errorf("record feed response: %w", err)
	}
	return nil
}

// FeedsWithStats returns every feed joined with episode totals for status output.
func (s *Store) FeedsWithStats(ctx context.Context) ([]*FeedStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.url, f.name, f.slug, f.etag, f.last_modified, f.last_checked_at,
            COUNT(e.id),
            COALESCE(SUM(CASE WHEN e.status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN e.failure_reason IS NOT NULL THEN 1 ELSE 0 END), 0)
         FROM feeds f
         LEFT JOIN episodes e ON e.feed_id = f.id
         GROUP BY f.id
         ORDER BY f.id`,
		StatusDone,
	)
	if err != nil {
		return nil, fmt.Errorf("query feed stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []*FeedStats
	for rows.Next() {
		var (
			fs           FeedStats
			etag         sql.NullString
			lastModified sql.NullString
			lastChecked  sql.NullString
		)
		if err := rows.Scan(
			&fs.ID, &fs.URL, &fs.Name, &fs.Slug, &etag, &lastModified, &lastChecked,
			&fs.TotalEpisodes, &fs.DoneEpisodes, &fs.FailedRecently,
		); err != nil {
			return nil, fmt.Errorf("scan feed stats: %w", err)
		}
		fs.ETag = etag.String
		fs.LastModified = lastModified.String
		if lastChecked.Valid {
			if checked, err := parseTimeString(lastChecked.String); err == nil {
				fs.LastCheckedAt = checked
			}
		}
		stats = append(stats, &fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed stats: %w", err)
	}
	return stats, nil
}
