// Package storage persists computed metric windows and detection results,
// either as line-delimited JSON files or into ClickHouse.
package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONLWriter implements model.Writer with two append-only JSONL files,
// one for windows and one for detection results. Safe for concurrent use.
type JSONLWriter struct {
	mu         sync.Mutex
	windows    *os.File
	detections *os.File
	windowBuf  *bufio.Writer
	detectBuf  *bufio.Writer
	log        *logrus.Entry
}

// NewJSONLWriter opens (creating if needed) windows.jsonl and
// detections.jsonl under dir.
func NewJSONLWriter(dir string) (*JSONLWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	wf, err := os.OpenFile(filepath.Join(dir, "windows.jsonl"), flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open windows file: %w", err)
	}
	df, err := os.OpenFile(filepath.Join(dir, "detections.jsonl"), flags, 0o644)
	if err != nil {
		wf.Close()
		return nil, fmt.Errorf("open detections file: %w", err)
	}
	return &JSONLWriter{
		windows:    wf,
		detections: df,
		windowBuf:  bufio.NewWriter(wf),
		detectBuf:  bufio.NewWriter(df),
		log:        logrus.WithField("component", "jsonl-writer"),
	}, nil
}

// WriteWindow appends one metric window as a JSON line.
func (w *JSONLWriter) WriteWindow(window *model.MetricWindow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return writeLine(w.windowBuf, window)
}

// WriteDetection appends one detection result as a JSON line.
func (w *JSONLWriter) WriteDetection(result *model.DetectionResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return writeLine(w.detectBuf, result)
}

// Close flushes and closes both files.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for _, flush := range []func() error{w.windowBuf.Flush, w.detectBuf.Flush} {
		if err := flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, f := range []*os.File{w.windows, w.detections} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeLine(buf *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return err
	}
	return buf.WriteByte('\n')
}

// ReadWindows loads every metric window from a JSONL file, skipping blank
// lines.
func ReadWindows(path string) ([]*model.MetricWindow, error) {
	var out []*model.MetricWindow
	err := readLines(path, func(line []byte) error {
		var w model.MetricWindow
		if err := json.Unmarshal(line, &w); err != nil {
			return err
		}
		out = append(out, &w)
		return nil
	})
	return out, err
}

// ReadDetections loads every detection result from a JSONL file.
func ReadDetections(path string) ([]*model.DetectionResult, error) {
	var out []*model.DetectionResult
	err := readLines(path, func(line []byte) error {
		var r model.DetectionResult
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		out = append(out, &r)
		return nil
	})
	return out, err
}

// ReadRawRecords loads raw traffic records (one JSON object per line) for
// ingestion.
func ReadRawRecords(path string) ([]map[string]any, error) {
	var out []map[string]any
	err := readLines(path, func(line []byte) error {
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func readLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
	}
	return scanner.Err()
}
