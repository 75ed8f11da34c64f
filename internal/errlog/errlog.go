// Package errlog keeps a durable record of batch failures. Entries are
// never removed automatically; the log is a JSON array rewritten in full on
// each append (read-modify-write, not a true append-only log).
package errlog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mpawlak/statsync/pkg/models"
)

type Log struct {
	Path string
}

func New(path string) *Log {
	return &Log{Path: path}
}

// Append records one error with its context string.
func (l *Log) Append(err error, context string) error {
	records, readErr := l.Read()
	if readErr != nil {
		// A corrupt or unreadable log should not lose the new entry.
		records = nil
	}

	records = append(records, models.ErrorRecord{
		Timestamp: time.Now().UTC(),
		Error:     err.Error(),
		Context:   context,
	})

	data, marshalErr := json.MarshalIndent(records, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("encoding error log: %w", marshalErr)
	}
	if writeErr := os.WriteFile(l.Path, data, 0644); writeErr != nil {
		return fmt.Errorf("writing error log %s: %w", l.Path, writeErr)
	}
	return nil
}

// Read returns all recorded entries; an absent file yields an empty list.
func (l *Log) Read() ([]models.ErrorRecord, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading error log %s: %w", l.Path, err)
	}

	var records []models.ErrorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing error log %s: %w", l.Path, err)
	}
	return records, nil
}
