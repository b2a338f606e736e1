// Package model defines the core data structures used throughout the collector.
package model

import (
	"fmt"
	"time"
)

// LogEntry is a single record read from a file input.
type LogEntry struct {
	// Timestamp is when the record was read.
	Timestamp time.Time

	// Source identifies which ingestor produced this entry.
	Source string

	// Raw holds the decoded record, always UTF-8.
	Raw []byte

	// Metadata carries the originating file and input name.
	Metadata map[string]string
}

// NewLogEntry creates a new LogEntry with initialized metadata and current timestamp.
func NewLogEntry(source string, raw []byte) *LogEntry {
	return &LogEntry{
		Timestamp: time.Now(),
		Source:    source,
		Raw:       raw,
		Metadata:  make(map[string]string),
	}
}

// Fields flattens the entry for structured output. Metadata keys never
// override the timestamp, source and message fields.
func (e *LogEntry) Fields() map[string]any {
	fields := make(map[string]any, len(e.Metadata)+3)
	for k, v := range e.Metadata {
		fields[k] = v
	}
	fields["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	fields["source"] = e.Source
	fields["message"] = string(e.Raw)
	return fields
}

// Text formats the entry as a single human readable line.
func (e *LogEntry) Text() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Timestamp.Format(time.RFC3339), e.Source, e.Raw)
}
