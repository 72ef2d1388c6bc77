package repository

import (
	"context"
	"database/sql"
	"fmt"

	"PortfolioDash/internal/domain/models"
	"PortfolioDash/internal/domain/repository"
)

const activityTable = "dashboard_events"

// ClickHouseActivityStore appends activity events to <db>.dashboard_events.
type ClickHouseActivityStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseActivityStore(db *sql.DB, database string) *ClickHouseActivityStore {
	return &ClickHouseActivityStore{db: db, table: qualifiedTable(database)}
}

func qualifiedTable(database string) string {
	if database == "" {
		return activityTable
	}
	return database + "." + activityTable
}

// SchemaStatements returns the idempotent DDL for the events table.
func SchemaStatements(database string) []string {
	stmts := []string{}
	if database != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database))
	}
	return append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          UUID,
	kind        LowCardinality(String),
	session_id  String,
	username    String,
	detail      String,
	tickers     Array(String),
	success     Bool,
	duration_ms Int64,
	occurred_at DateTime64(3, 'UTC')
) ENGINE = MergeTree
PARTITION BY toYYYYMM(occurred_at)
ORDER BY (kind, occurred_at)`, qualifiedTable(database)))
}

func (s *ClickHouseActivityStore) Record(ctx context.Context, ev models.ActivityEvent) error {
	q := fmt.Sprintf("INSERT INTO %s (id, kind, session_id, username, detail, tickers, success, duration_ms, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	tickers := ev.Tickers
	if tickers == nil {
		tickers = []string{}
	}
	_, err := s.db.ExecContext(ctx, q,
		ev.ID,
		string(ev.Kind),
		ev.SessionID,
		ev.Username,
		ev.Detail,
		tickers,
		ev.Success,
		ev.DurationMs,
		ev.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Close is a no-op: the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseActivityStore) Close() error {
	return nil
}

var _ repository.ActivitySink = (*ClickHouseActivityStore)(nil)
