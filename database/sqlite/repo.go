// Package sqlite implements the session repo using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retracehq/retrace"
)

// defaultListLimit applies when a query does not set a page size.
const defaultListLimit = 100

type Repo struct {
	db        *sql.DB
	tableName string
}

func NewRepo(db *sql.DB, tables retrace.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: tables.Sessions}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Insert(ctx context.Context, session retrace.Session) (retrace.Session, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, page_url, user_agent, event_count, recording_key, recording_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		session.ID.String(), session.PageURL, session.UserAgent, session.EventCount,
		session.RecordingKey, session.RecordingSize, now, now,
	)
	if err != nil {
		return retrace.Session{}, fmt.Errorf("insert: %w", err)
	}

	session.Summary = ""
	session.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)
	session.UpdatedAt = session.CreatedAt

	return session, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (retrace.Session, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, page_url, user_agent, event_count, recording_key, recording_size, summary, created_at, updated_at
		FROM %s
		WHERE id = ?`, r.tableName)

	var s retrace.Session
	var idStr string
	var summary sql.NullString
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &s.PageURL, &s.UserAgent, &s.EventCount, &s.RecordingKey, &s.RecordingSize,
		&summary, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return retrace.Session{}, retrace.ErrNotFound
		}
		return retrace.Session{}, fmt.Errorf("get: %w", err)
	}

	s.ID, err = uuid.Parse(idStr)
	if err != nil {
		return retrace.Session{}, fmt.Errorf("get: parse uuid: %w", err)
	}

	s.Summary = summary.String

	s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return retrace.Session{}, fmt.Errorf("get: parse created_at: %w", err)
	}

	s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return retrace.Session{}, fmt.Errorf("get: parse updated_at: %w", err)
	}

	return s, nil
}

func (r *Repo) List(ctx context.Context, q retrace.ListQuery) (retrace.ListResult, error) {
	cursor, err := retrace.DecodeCursor(q.Cursor)
	if err != nil {
		return retrace.ListResult{}, fmt.Errorf("list: %w", err)
	}

	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}

	escapedPrefix := retrace.EscapeLikePattern(q.URLPrefix)

	var query string
	var args []any

	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT id, page_url, user_agent, event_count, recording_key, recording_size, summary, created_at, updated_at
			FROM %s
			WHERE page_url LIKE ? || '%%' ESCAPE '\'
			ORDER BY created_at, id
			LIMIT ?
		`, r.tableName)
		args = []any{escapedPrefix, q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT id, page_url, user_agent, event_count, recording_key, recording_size, summary, created_at, updated_at
			FROM %s
			WHERE page_url LIKE ? || '%%' ESCAPE '\' AND (created_at, id) > (?, ?)
			ORDER BY created_at, id
			LIMIT ?
		`, r.tableName)
		args = []any{escapedPrefix, cursor.CreatedAt.Format(time.RFC3339Nano), cursor.ID.String(), q.Limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return retrace.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]retrace.Session, 0, q.Limit)
	for rows.Next() {
		var s retrace.Session
		var idStr, createdAt, updatedAt string
		var summary sql.NullString

		if scanErr := rows.Scan(&idStr, &s.PageURL, &s.UserAgent, &s.EventCount, &s.RecordingKey,
			&s.RecordingSize, &summary, &createdAt, &updatedAt); scanErr != nil {
			return retrace.ListResult{}, fmt.Errorf("list: scan: %w", scanErr)
		}

		var parseErr error
		s.ID, parseErr = uuid.Parse(idStr)
		if parseErr != nil {
			return retrace.ListResult{}, fmt.Errorf("list: parse uuid: %w", parseErr)
		}

		s.Summary = summary.String

		s.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdAt)
		if parseErr != nil {
			return retrace.ListResult{}, fmt.Errorf("list: parse created_at: %w", parseErr)
		}

		s.UpdatedAt, parseErr = time.Parse(time.RFC3339Nano, updatedAt)
		if parseErr != nil {
			return retrace.ListResult{}, fmt.Errorf("list: parse updated_at: %w", parseErr)
		}

		items = append(items, s)
	}

	if err := rows.Err(); err != nil {
		return retrace.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	var nextCursor string
	if len(items) > q.Limit {
		// Cursor points to the last item of the current page
		lastItem := items[q.Limit-1]
		nextCursor = retrace.EncodeCursor(lastItem.CreatedAt, lastItem.ID)
		items = items[:q.Limit]
	}

	return retrace.ListResult{Items: items, NextCursor: nextCursor}, nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.tableName) //nolint:gosec // G201: table name is validated

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", retrace.ErrNotFound)
	}

	return nil
}

func (r *Repo) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET summary = ?, updated_at = ?
		WHERE id = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, summary, now, id.String())
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set summary: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("set summary: %w", retrace.ErrNotFound)
	}

	return nil
}
