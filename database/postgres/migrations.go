package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/retracehq/retrace"
)

func createSessionsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexList := pgx.Identifier{fmt.Sprintf("idx_%s_list", tableName)}.Sanitize()
	indexPageURL := pgx.Identifier{fmt.Sprintf("idx_%s_page_url", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			page_url TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			event_count INTEGER NOT NULL,
			recording_key TEXT NOT NULL,
			recording_size BIGINT NOT NULL,
			summary TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (created_at, id);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (page_url);
	`,
		quotedTable,
		indexList, quotedTable,
		indexPageURL, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables retrace.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := createSessionsTable(ctx, pool, tables.Sessions); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables retrace.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	quotedTable := pgx.Identifier{tables.Sessions}.Sanitize()
	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", quotedTable)); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	return nil
}
