// Package query reads persisted windows and detections back out of
// ClickHouse for reporting.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	"NetMetrica/internal/config"
)

// AnomalyRow is one persisted detection row.
type AnomalyRow struct {
	WindowStart  float64
	WindowEnd    float64
	Timestamp    string
	Type         string
	Severity     string
	Metric       string
	Threshold    float64
	CurrentValue float64
	Message      string
}

// WindowSummary aggregates the persisted windows of a time range.
type WindowSummary struct {
	WindowCount  uint64
	TotalBytes   uint64
	TotalPackets uint64
	TCPAttempts  uint64
	TCPResets    uint64
}

// Querier defines the read side over persisted analysis results.
type Querier interface {
	RecentAnomalies(ctx context.Context, severity string, limit int) ([]AnomalyRow, error)
	SummarizeWindows(ctx context.Context, fromStart, toStart float64) (*WindowSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// RecentAnomalies returns the newest detection rows, optionally filtered by
// severity.
func (q *clickhouseQuerier) RecentAnomalies(ctx context.Context, severity string, limit int) ([]AnomalyRow, error) {
	if limit <= 0 {
		limit = 100
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			WindowStart, WindowEnd, Timestamp, Type, Severity,
			Metric, Threshold, CurrentValue, Message
		FROM anomaly_detections
	`)

	args := []interface{}{}
	if severity != "" {
		queryBuilder.WriteString(" WHERE Severity = ?")
		args = append(args, severity)
	}
	queryBuilder.WriteString(" ORDER BY WindowStart DESC LIMIT ?")
	args = append(args, limit)

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []AnomalyRow
	for rows.Next() {
		var row AnomalyRow
		if err := rows.Scan(
			&row.WindowStart, &row.WindowEnd, &row.Timestamp,
			&row.Type, &row.Severity, &row.Metric,
			&row.Threshold, &row.CurrentValue, &row.Message,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}

// SummarizeWindows aggregates the windows whose start falls in
// [fromStart, toStart]. Zero bounds mean unbounded.
func (q *clickhouseQuerier) SummarizeWindows(ctx context.Context, fromStart, toStart float64) (*WindowSummary, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			COUNT(*)           AS WindowCount,
			SUM(TotalBytes)    AS TotalBytes,
			SUM(TotalPackets)  AS TotalPackets,
			SUM(TCPAttempts)   AS TCPAttempts,
			SUM(TCPResets)     AS TCPResets
		FROM metric_windows
	`)

	var whereClauses []string
	args := []interface{}{}
	if fromStart > 0 {
		whereClauses = append(whereClauses, "WindowStart >= ?")
		args = append(args, fromStart)
	}
	if toStart > 0 {
		whereClauses = append(whereClauses, "WindowStart <= ?")
		args = append(args, toStart)
	}
	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	var summary WindowSummary
	row := q.conn.QueryRow(ctx, queryBuilder.String(), args...)
	if err := row.Scan(
		&summary.WindowCount, &summary.TotalBytes, &summary.TotalPackets,
		&summary.TCPAttempts, &summary.TCPResets,
	); err != nil {
		return nil, fmt.Errorf("failed to scan window summary: %w", err)
	}
	return &summary, nil
}
