package postgres_test

// Migration tests validate that table migrations work correctly.
//
// Test Structure:
// - TestMigrate: Validates all tables are created with correct schemas
// - TestDropTables: Validates all tables are properly dropped
// - TestMigrate_DropTables_Integration: Validates round-trip migration
// - TestValidateSchema: Validates schema-drift detection
//
// Adding New Tables:
// When you add a new table to migrations.go, update these two functions:
// 1. getExpectedTableSchemas() - Add schema definition with columns/indexes/constraints
// 2. getAllTableNames() - Add table name to the list
//
// The tests will automatically validate the new table's schema.

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/retracehq/retrace"
	"github.com/retracehq/retrace/database/postgres"
)

type tableSchema struct {
	name            string
	expectedColumns map[string]string
	expectedIndexes []string
	hasPrimaryKey   bool
}

// getExpectedTableSchemas returns the expected schema for all tables.
// When adding a new table migration:
// 1. Add the table name to retrace.Tables struct
// 2. Add table creation to Migrate() in migrations.go
// 3. Add a new tableSchema entry here with expected columns and indexes
// 4. Add the table name to getAllTableNames()
func getExpectedTableSchemas(tables retrace.Tables) []tableSchema {
	return []tableSchema{
		{
			name: tables.Sessions,
			expectedColumns: map[string]string{
				"id":             "uuid",
				"page_url":       "text",
				"user_agent":     "text",
				"event_count":    "integer",
				"recording_key":  "text",
				"recording_size": "bigint",
				"summary":        "text",
				"created_at":     "timestamp with time zone",
				"updated_at":     "timestamp with time zone",
			},
			expectedIndexes: []string{
				fmt.Sprintf("idx_%s_list", tables.Sessions),
				fmt.Sprintf("idx_%s_page_url", tables.Sessions),
			},
			hasPrimaryKey: true,
		},
	}
}

// getAllTableNames returns all table names in the order they are created.
// Update this when adding new tables.
func getAllTableNames(tables retrace.Tables) []string {
	return []string{
		tables.Sessions,
	}
}

func verifyTableSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool, schema tableSchema) {
	t.Helper()

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, schema.name).Scan(&exists)
	assert.NoError(t, err, "failed to check table existence for %s", schema.name)
	assert.True(t, exists, "expected table %s to exist", schema.name)

	for colName, expectedType := range schema.expectedColumns {
		var dataType string
		err = pool.QueryRow(ctx, `
			SELECT data_type
			FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		`, schema.name, colName).Scan(&dataType)
		assert.NoError(t, err, "table %s: column %s does not exist", schema.name, colName)
		assert.Equal(t, expectedType, dataType, "table %s: column %s type mismatch", schema.name, colName)
	}

	for _, indexName := range schema.expectedIndexes {
		var exists bool
		err = pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM pg_indexes
				WHERE tablename = $1 AND indexname = $2
			)
		`, schema.name, indexName).Scan(&exists)
		assert.NoError(t, err, "table %s: failed to check index %s", schema.name, indexName)
		assert.True(t, exists, "table %s: expected index %s to exist", schema.name, indexName)
	}

	if schema.hasPrimaryKey {
		var constraintType string
		err = pool.QueryRow(ctx, `
			SELECT constraint_type
			FROM information_schema.table_constraints
			WHERE table_name = $1 AND constraint_type = 'PRIMARY KEY'
		`, schema.name).Scan(&constraintType)
		assert.NoError(t, err, "table %s: primary key constraint not found", schema.name)
	}
}

func verifyTableDoesNotExist(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tableName string) {
	t.Helper()

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`, tableName).Scan(&exists)
	assert.NoError(t, err, "failed to check table existence for %s", tableName)
	assert.False(t, exists, "expected table %s not to exist", tableName)
}

func TestMigrate(t *testing.T) {
	t.Run("success - creates all tables with correct schemas", func(t *testing.T) {
		pool, cleanup := getTestDatabase(t)
		defer cleanup()
		defer pool.Close()

		ctx := context.Background()
		tables := retrace.Tables{Sessions: "sessions"}

		err := postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err, "Migrate failed")

		schemas := getExpectedTableSchemas(tables)
		for _, schema := range schemas {
			t.Run(schema.name, func(t *testing.T) {
				verifyTableSchema(t, ctx, pool, schema)
			})
		}
	})

	t.Run("idempotent - can run multiple times", func(t *testing.T) {
		pool, cleanup := getTestDatabase(t)
		defer cleanup()
		defer pool.Close()

		ctx := context.Background()
		tables := retrace.Tables{Sessions: "sessions"}

		err := postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err, "first Migrate failed")

		err = postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err, "second Migrate failed")
	})

	t.Run("error - invalid table name", func(t *testing.T) {
		pool := getSharedTestDatabase(t)

		ctx := context.Background()
		tables := retrace.Tables{Sessions: "Bad-Name"}

		err := postgres.Migrate(ctx, pool, tables)
		assert.Error(t, err, "expected error for invalid table name")
	})
}

func TestDropTables(t *testing.T) {
	t.Run("success - drops all existing tables", func(t *testing.T) {
		pool, cleanup := getTestDatabase(t)
		defer cleanup()
		defer pool.Close()

		ctx := context.Background()
		tables := retrace.Tables{Sessions: "sessions"}

		err := postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err, "Migrate failed")

		tableNames := getAllTableNames(tables)
		for _, tableName := range tableNames {
			var exists bool
			err = pool.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public' AND table_name = $1
				)
			`, tableName).Scan(&exists)
			assert.NoError(t, err, "failed to check table existence")
			assert.True(t, exists, "table %s should exist before drop", tableName)
		}

		err = postgres.DropTables(ctx, pool, tables)
		assert.NoError(t, err, "DropTables failed")

		for _, tableName := range tableNames {
			verifyTableDoesNotExist(t, ctx, pool, tableName)
		}
	})

	t.Run("idempotent - can drop multiple times", func(t *testing.T) {
		pool, cleanup := getTestDatabase(t)
		defer cleanup()
		defer pool.Close()

		ctx := context.Background()
		tables := retrace.Tables{Sessions: "sessions"}

		err := postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err, "Migrate failed")

		err = postgres.DropTables(ctx, pool, tables)
		assert.NoError(t, err, "first DropTables failed")

		err = postgres.DropTables(ctx, pool, tables)
		assert.NoError(t, err, "second DropTables failed")
	})
}

func TestMigrate_DropTables_Integration(t *testing.T) {
	t.Run("round trip - migrate, drop, migrate again", func(t *testing.T) {
		pool, cleanup := getTestDatabase(t)
		defer cleanup()
		defer pool.Close()

		ctx := context.Background()
		tables := retrace.Tables{Sessions: "sessions"}
		tableNames := getAllTableNames(tables)

		err := postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err, "first Migrate failed")

		for _, tableName := range tableNames {
			var exists bool
			err = pool.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public' AND table_name = $1
				)
			`, tableName).Scan(&exists)
			assert.NoError(t, err, "failed to check table existence")
			assert.True(t, exists, "table %s should exist after first migrate", tableName)
		}

		err = postgres.DropTables(ctx, pool, tables)
		assert.NoError(t, err, "DropTables failed")

		for _, tableName := range tableNames {
			verifyTableDoesNotExist(t, ctx, pool, tableName)
		}

		err = postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err, "second Migrate failed")

		for _, tableName := range tableNames {
			var exists bool
			err = pool.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public' AND table_name = $1
				)
			`, tableName).Scan(&exists)
			assert.NoError(t, err, "failed to check table existence")
			assert.True(t, exists, "table %s should exist after second migrate", tableName)
		}
	})
}

func TestValidateSchema(t *testing.T) {
	t.Run("success - valid schema after migrate", func(t *testing.T) {
		pool := getSharedTestDatabase(t)
		ctx := context.Background()

		tableName := "validate_test_" + getRandomString(t)
		tables := retrace.Tables{Sessions: tableName}
		defer func() { _ = dropTable(ctx, pool, tableName) }()

		err := postgres.Migrate(ctx, pool, tables)
		assert.NoError(t, err)

		err = postgres.ValidateSchema(ctx, pool, tables)
		assert.NoError(t, err, "validate should succeed after migrate")
	})

	t.Run("error - table does not exist", func(t *testing.T) {
		pool := getSharedTestDatabase(t)
		ctx := context.Background()

		tables := retrace.Tables{Sessions: "nonexistent_table"}

		err := postgres.ValidateSchema(ctx, pool, tables)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("error - missing columns", func(t *testing.T) {
		pool := getSharedTestDatabase(t)
		ctx := context.Background()

		tableName := "incomplete_" + getRandomString(t)
		tables := retrace.Tables{Sessions: tableName}

		// Create table with missing columns using the pool directly
		_, err := pool.Exec(ctx, `
			CREATE TABLE `+tableName+` (
				id UUID PRIMARY KEY,
				page_url TEXT NOT NULL
			)
		`)
		assert.NoError(t, err)
		defer func() { _ = dropTable(ctx, pool, tableName) }()

		err = postgres.ValidateSchema(ctx, pool, tables)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "missing columns")
	})

	t.Run("error - wrong column type", func(t *testing.T) {
		pool := getSharedTestDatabase(t)
		ctx := context.Background()

		tableName := "wrongtype_" + getRandomString(t)
		tables := retrace.Tables{Sessions: tableName}

		// Create table with wrong type (recording_size as TEXT instead of BIGINT)
		_, err := pool.Exec(ctx, `
			CREATE TABLE `+tableName+` (
				id UUID PRIMARY KEY,
				page_url TEXT NOT NULL,
				user_agent TEXT NOT NULL,
				event_count INTEGER NOT NULL,
				recording_key TEXT NOT NULL,
				recording_size TEXT NOT NULL,
				summary TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`)
		assert.NoError(t, err)
		defer func() { _ = dropTable(ctx, pool, tableName) }()

		err = postgres.ValidateSchema(ctx, pool, tables)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "recording_size")
	})
}
