// Package postgres implements the session repo using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/retracehq/retrace"
)

// defaultListLimit applies when a query does not set a page size.
const defaultListLimit = 100

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables retrace.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Sessions}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Insert(ctx context.Context, session retrace.Session) (retrace.Session, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, page_url, user_agent, event_count, recording_key, recording_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, r.tableName)

	err := r.pool.QueryRow(ctx, query,
		session.ID, session.PageURL, session.UserAgent, session.EventCount,
		session.RecordingKey, session.RecordingSize,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return retrace.Session{}, fmt.Errorf("insert: %w", err)
	}

	session.Summary = ""

	return session, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (retrace.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, page_url, user_agent, event_count, recording_key, recording_size, summary, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tableName)

	var s retrace.Session
	var summary sql.NullString
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.PageURL, &s.UserAgent, &s.EventCount, &s.RecordingKey, &s.RecordingSize,
		&summary, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return retrace.Session{}, retrace.ErrNotFound
		}
		return retrace.Session{}, fmt.Errorf("get: %w", err)
	}

	s.Summary = summary.String

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
			WHERE page_url LIKE $1 || '%%'
			ORDER BY created_at, id
			LIMIT $2
		`, r.tableName)
		args = []any{escapedPrefix, q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT id, page_url, user_agent, event_count, recording_key, recording_size, summary, created_at, updated_at
			FROM %s
			WHERE page_url LIKE $1 || '%%' AND (created_at, id) > ($2, $3)
			ORDER BY created_at, id
			LIMIT $4
		`, r.tableName)
		args = []any{escapedPrefix, cursor.CreatedAt, cursor.ID, q.Limit + 1}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return retrace.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]retrace.Session, 0, q.Limit)
	for rows.Next() {
		var s retrace.Session
		var summary sql.NullString
		if err := rows.Scan(&s.ID, &s.PageURL, &s.UserAgent, &s.EventCount, &s.RecordingKey,
			&s.RecordingSize, &summary, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return retrace.ListResult{}, fmt.Errorf("list: scan: %w", err)
		}
		s.Summary = summary.String
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
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tableName)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", retrace.ErrNotFound)
	}

	return nil
}

func (r *Repo) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET summary = $2, updated_at = NOW()
		WHERE id = $1
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query, id, summary)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("set summary: %w", retrace.ErrNotFound)
	}

	return nil
}
