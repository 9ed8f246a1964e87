// Package audit keeps an append-only JSON Lines trail of traceability
// events, independent of the relational store. Anomaly facts are written
// to both so a store failure cannot erase the evidence.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Log appends traceability events to a single JSONL file. The file is
// opened, written, and closed on every call, so a crash mid-event never
// corrupts previously written records.
type Log struct {
	path string
}

// New creates an audit log writing to the given path, creating the
// parent directory if needed.
func New(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	return &Log{path: path}, nil
}

// Path returns the location of the log artifact.
func (l *Log) Path() string {
	return l.path
}

// AnomalyEvent is the durable form of one detected index anomaly.
type AnomalyEvent struct {
	AnomalyID      string  `json:"anomaly_id"`
	AnomalyType    string  `json:"anomaly_type"`
	EmailFilePath  string  `json:"email_file_path"`
	MessageIDValue *string `json:"message_id_value"`
	ErrorDetails   string  `json:"error_details"`
}

// Anomaly appends an index_anomaly event.
func (l *Log) Anomaly(ev AnomalyEvent) error {
	return l.write(map[string]any{
		"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
		"event_type":       "index_anomaly",
		"anomaly_id":       ev.AnomalyID,
		"anomaly_type":     ev.AnomalyType,
		"email_file_path":  ev.EmailFilePath,
		"message_id_value": ev.MessageIDValue,
		"error_details":    ev.ErrorDetails,
	})
}

// Event appends a generic lifecycle event such as message_indexed or
// item_extracted. Keys in meta are merged into the record alongside the
// standard fields.
func (l *Log) Event(eventType, messageID, filePath string, meta map[string]any) error {
	record := map[string]any{
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"event_type": eventType,
		"message_id": messageID,
		"file_path":  filePath,
	}
	for k, v := range meta {
		record[k] = v
	}
	return l.write(record)
}

// Export collects every parseable record from the log into a single
// JSON array document at outPath, creating intermediate directories.
// It returns the number of records exported and the number of corrupt
// lines skipped; skipped lines are reported, never fatal.
func (l *Log) Export(outPath string) (exported, skipped int, err error) {
	var events []json.RawMessage

	f, err := os.Open(l.path)
	if err != nil && !os.IsNotExist(err) {
		return 0, 0, fmt.Errorf("failed to open audit log: %w", err)
	}
	if err == nil {
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var probe map[string]any
			if json.Unmarshal(line, &probe) != nil {
				skipped++
				continue
			}
			events = append(events, append(json.RawMessage(nil), line...))
		}
		if serr := scanner.Err(); serr != nil {
			return 0, 0, fmt.Errorf("failed to read audit log: %w", serr)
		}
	}

	if events == nil {
		events = []json.RawMessage{}
	}
	doc, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to encode export: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return 0, 0, fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(outPath, doc, 0644); err != nil {
		return 0, 0, fmt.Errorf("failed to write export: %w", err)
	}

	return len(events), skipped, nil
}

func (l *Log) write(record map[string]any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}
