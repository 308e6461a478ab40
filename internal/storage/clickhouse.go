package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/config"
	"NetMetrica/internal/model"
)

const createWindowsTable = `
CREATE TABLE IF NOT EXISTS metric_windows (
    WindowStart   Float64,
    WindowEnd     Float64,
    RecordCount   UInt32,
    TotalBytes    UInt64,
    TotalPackets  UInt32,
    AvgBps        Nullable(Float64),
    AvgPps        Nullable(Float64),
    AvgPacketSize Float64,
    TCPAttempts   UInt32,
    TCPSuccessful UInt32,
    TCPResets     UInt32,
    TCPHalfOpen   UInt32,
    Protocols     Map(String, UInt32),
    InsertedAt    DateTime DEFAULT now()
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(InsertedAt)
ORDER BY (WindowStart);
`

const createDetectionsTable = `
CREATE TABLE IF NOT EXISTS anomaly_detections (
    WindowStart  Float64,
    WindowEnd    Float64,
    Timestamp    String,
    Type         String,
    Severity     String,
    Metric       String,
    Threshold    Float64,
    CurrentValue Float64,
    Message      String,
    InsertedAt   DateTime DEFAULT now()
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(InsertedAt)
ORDER BY (WindowStart, Type);
`

// ClickHouseWriter implements model.Writer on top of ClickHouse batches.
type ClickHouseWriter struct {
	conn driver.Conn
	log  *logrus.Entry
}

// NewClickHouseWriter connects and ensures both tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	for _, stmt := range []string{createWindowsTable, createDetectionsTable} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log := logrus.WithField("component", "clickhouse-writer")
	log.Info("connected to ClickHouse and ensured tables exist")
	return &ClickHouseWriter{conn: conn, log: log}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
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

// WriteWindow inserts one metric window into metric_windows.
func (w *ClickHouseWriter) WriteWindow(window *model.MetricWindow) error {
	batch, err := w.conn.PrepareBatch(context.Background(), `INSERT INTO metric_windows
		(WindowStart, WindowEnd, RecordCount, TotalBytes, TotalPackets,
		 AvgBps, AvgPps, AvgPacketSize,
		 TCPAttempts, TCPSuccessful, TCPResets, TCPHalfOpen, Protocols)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	protocols := make(map[string]uint32, len(window.Protocol.Counts))
	for proto, count := range window.Protocol.Counts {
		protocols[proto] = uint32(count)
	}
	err = batch.Append(
		window.WindowStart,
		window.WindowEnd,
		uint32(window.RecordCount),
		uint64(window.Bandwidth.TotalBytes),
		uint32(window.Bandwidth.TotalPackets),
		window.Bandwidth.AvgBps,
		window.Bandwidth.AvgPps,
		window.Bandwidth.AvgPacketSize,
		uint32(window.Connections.TotalAttempts),
		uint32(window.Connections.Successful),
		uint32(window.Connections.FailedResets),
		uint32(window.Connections.HalfOpen),
		protocols,
	)
	if err != nil {
		return fmt.Errorf("failed to append window to batch: %w", err)
	}
	return batch.Send()
}

// WriteDetection inserts one row per anomaly into anomaly_detections.
// Windows without anomalies produce no rows.
func (w *ClickHouseWriter) WriteDetection(result *model.DetectionResult) error {
	if len(result.Anomalies) == 0 {
		return nil
	}
	batch, err := w.conn.PrepareBatch(context.Background(), `INSERT INTO anomaly_detections
		(WindowStart, WindowEnd, Timestamp, Type, Severity, Metric,
		 Threshold, CurrentValue, Message)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, a := range result.Anomalies {
		err = batch.Append(
			result.WindowStart,
			result.WindowEnd,
			result.Timestamp,
			a.Type,
			a.Severity,
			a.Metric,
			a.Threshold,
			a.CurrentValue,
			a.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to append anomaly to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	w.log.WithFields(logrus.Fields{
		"window":    result.WindowStart,
		"anomalies": len(result.Anomalies),
	}).Debug("wrote detection result")
	return nil
}

// Close shuts down the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
