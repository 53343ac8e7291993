package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const episodeColumns = "id, feed_id, episode_key, guid, audio_url, title, pub_date, slug, " +
	"episode_dir, audio_path, transcript_path, insights_path, status, " +
	"failure_reason, failure_attempts, failed_at, first_seen_at, updated_at"

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id              int64
		feedID          int64
		key             string
		guid            sql.NullString
		audioURL        string
		title           string
		pubDateRaw      sql.NullString
		slug            string
		episodeDir      string
		audioPath       string
		transcriptPath  string
		insightsPath    string
		statusStr       string
		failureReason   sql.NullString
		failureAttempts int
		failedAtRaw     sql.NullString
		firstSeenRaw    sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id, &feedID, &key, &guid, &audioURL, &title, &pubDateRaw, &slug,
		&episodeDir, &audioPath, &transcriptPath, &insightsPath, &statusStr,
		&failureReason, &failureAttempts, &failedAtRaw, &firstSeenRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	ep := &Episode{
		ID:              id,
		FeedID:          feedID,
		Key:             key,
		GUID:            guid.String,
		AudioURL:        audioURL,
		Title:           title,
		Slug:            slug,
		EpisodeDir:      episodeDir,
		AudioPath:       audioPath,
		TranscriptPath:  transcriptPath,
		InsightsPath:    insightsPath,
		Status:          Status(statusStr),
		FailureReason:   failureReason.String,
		FailureAttempts: failureAttempts,
	}
	if pubDateRaw.Valid {
		if pubDate, err := parseTimeString(pubDateRaw.String); err == nil {
			ep.PubDate = pubDate
		}
	}
	if failedAtRaw.Valid {
		if failedAt, err := parseTimeString(failedAtRaw.String); err == nil {
			ep.FailedAt = &failedAt
		}
	}
	if firstSeen, err := parseTimeString(firstSeenRaw.String); err == nil {
		ep.FirstSeenAt = firstSeen
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		ep.UpdatedAt = updated
	}
	return ep, nil
}

// UpsertEpisode records a feed entry if it has not been seen before. A known
// episode is returned untouched so re-polling never resets pipeline progress
// or moves artifacts that already exist on disk.
func (s *Store) UpsertEpisode(ctx context.Context, ep *Episode) (*Episode, bool, error) {
	if ep == nil {
		return nil, false, errors.New("episode is nil")
	}
	existing, err := s.EpisodeByKey(ctx, ep.Key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		existing, err = s.FindEpisode(ctx, ep.FeedID, ep.GUID, ep.AudioURL)
		if err != nil {
			return nil, false, err
		}
	}
	if existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO episodes (
            feed_id, episode_key, guid, audio_url, title, pub_date, slug,
            episode_dir, audio_path, transcript_path, insights_path,
            status, first_seen_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.FeedID,
		ep.Key,
		nullableString(ep.GUID),
		ep.AudioURL,
		ep.Title,
		formatTime(ep.PubDate),
		ep.Slug,
		ep.EpisodeDir,
		ep.AudioPath,
		ep.TranscriptPath,
		ep.InsightsPath,
		StatusNew,
		now,
		now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	inserted, err := s.GetEpisode(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return inserted, true, nil
}

// GetEpisode fetches an episode by identifier.
func (s *Store) GetEpisode(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// EpisodeByKey fetches an episode by its stable identity key.
func (s *Store) EpisodeByKey(ctx context.Context, key string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE episode_key = ?`, key)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode by key: %w", err)
	}
	return ep, nil
}

// FindEpisode locates an episode within a feed by GUID, falling back to the
// enclosure URL when the feed omits GUIDs.
func (s *Store) FindEpisode(ctx context.Context, feedID int64, guid, audioURL string) (*Episode, error) {
	if strings.TrimSpace(guid) != "" {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+episodeColumns+` FROM episodes WHERE feed_id = ? AND guid = ?`,
			feedID, guid,
		)
		ep, err := scanEpisode(row)
		if err == nil {
			return ep, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find episode by guid: %w", err)
		}
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE feed_id = ? AND audio_url = ?`,
		feedID, audioURL,
	)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find episode by audio url: %w", err)
	}
	return ep, nil
}

// SetStatus moves an episode to a new status after validating the transition
// against the stored status inside one transaction. Completing a stage forward
// clears failure metadata from earlier attempts.
func (s *Store) SetStatus(ctx context.Context, id int64, to Status) (*Episode, error) {
	ctx = ensureContext(ctx)
	var updated *Episode
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin status tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var currentStr string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM episodes WHERE id = ?`, id).Scan(&currentStr); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("episode %d not found", id)
			}
			return fmt.Errorf("read status: %w", err)
		}
		current := Status(currentStr)
		if err := checkTransition(current, to); err != nil {
			return err
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		clearFailure := IsSettled(to) && Rank(to) > Rank(current)
		if clearFailure {
			_, err = tx.ExecContext(ctx,
				`UPDATE episodes SET status = ?, failure_reason = NULL, failed_at = NULL, updated_at = ? WHERE id = ?`,
				to, now, id,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE episodes SET status = ?, updated_at = ? WHERE id = ?`,
				to, now, id,
			)
		}
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	updated, err = s.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkFailure rolls a transient episode back to the floor of its current stage
// and records why the stage gave up. attempts is the number of invocations the
// stage made before giving up and is added to the episode's running total.
func (s *Store) MarkFailure(ctx context.Context, id int64, reason string, attempts int) (*Episode, error) {
	if attempts < 1 {
		attempts = 1
	}
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin failure tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var currentStr string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM episodes WHERE id = ?`, id).Scan(&currentStr); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("episode %d not found", id)
			}
			return fmt.Errorf("read status: %w", err)
		}
		current := Status(currentStr)
		floor := Floor(current)
		if err := checkTransition(current, floor); err != nil {
			return err
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`UPDATE episodes
             SET status = ?, failure_reason = ?, failure_attempts = failure_attempts + ?,
                 failed_at = ?, updated_at = ?
             WHERE id = ?`,
			floor, nullableString(reason), attempts, now, now, id,
		); err != nil {
			return fmt.Errorf("record failure: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return s.GetEpisode(ctx, id)
}

// EpisodesByFeed returns one page of a feed's episodes, newest first.
func (s *Store) EpisodesByFeed(ctx context.Context, feedID int64, offset, limit int) ([]*Episode, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes
         WHERE feed_id = ?
         ORDER BY pub_date DESC, first_seen_at DESC
         LIMIT ? OFFSET ?`,
		feedID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	return collectEpisodes(rows)
}

// PendingEpisodes returns a feed's episodes that have not yet reached the
// terminal status, newest first. Episodes stranded in a transient status are
// included so a restarted run can heal them.
func (s *Store) PendingEpisodes(ctx context.Context, feedID int64, terminal Status) ([]*Episode, error) {
	pending := make([]any, 0, len(allStatuses)+1)
	pending = append(pending, feedID)
	placeholders := make([]string, 0, len(allStatuses))
	for _, status := range allStatuses {
		if Rank(status) < Rank(terminal) {
			pending = append(pending, status)
			placeholders = append(placeholders, "?")
		}
	}
	if len(placeholders) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes
         WHERE feed_id = ? AND status IN (`+strings.Join(placeholders, ",")+`)
         ORDER BY pub_date DESC, first_seen_at DESC`,
		pending...,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending episodes: %w", err)
	}
	return collectEpisodes(rows)
}

// EpisodeCount returns how many episodes a feed has.
func (s *Store) EpisodeCount(ctx context.Context, feedID int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM episodes WHERE feed_id = ?`, feedID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count episodes: %w", err)
	}
	return count, nil
}

// CountsByStatus aggregates episode counts across all feeds.
func (s *Store) CountsByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM episodes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[Status(statusStr)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	defer func() { _ = rows.Close() }()
	var episodes []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}
	return episodes, nil
}
