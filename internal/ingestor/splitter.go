package ingestor

import (
	"bytes"
	"regexp"

	"github.com/tilaka3/collector/internal/fileinput"
)

// Splitter cuts decoded file content into records.
type Splitter interface {
	// Split returns the complete records in buf and the remainder that may
	// still grow into a record once more content arrives.
	Split(buf []byte) (records [][]byte, rest []byte)

	// Flush returns rest as a final record once the file has gone quiet,
	// or nil when rest must keep waiting for its terminator.
	Flush(rest []byte) []byte
}

// NewSplitter returns the splitter for the configured content splitter mode.
func NewSplitter(cfg fileinput.Configuration) (Splitter, error) {
	if cfg.ContentSplitter != fileinput.ContentSplitterPattern {
		return NewlineSplitter{}, nil
	}

	re, err := fileinput.CompilePattern(cfg.ContentSplitterPattern)
	if err != nil {
		return nil, err
	}
	return &PatternSplitter{re: re}, nil
}

// NewlineSplitter emits one record per line. CRLF endings are stripped.
type NewlineSplitter struct{}

// Split implements Splitter.
func (NewlineSplitter) Split(buf []byte) ([][]byte, []byte) {
	var records [][]byte
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			return records, buf
		}
		records = append(records, bytes.TrimSuffix(buf[:i], []byte{'\r'}))
		buf = buf[i+1:]
	}
}

// Flush implements Splitter. A line is only complete at its newline.
func (NewlineSplitter) Flush([]byte) []byte {
	return nil
}

// PatternSplitter starts a new record at every match of a multiline pattern,
// so continuation lines (stack traces, wrapped messages) stay with their first line.
type PatternSplitter struct {
	re *regexp.Regexp
}

// Split implements Splitter. Content before the first match forms its own record.
func (s *PatternSplitter) Split(buf []byte) ([][]byte, []byte) {
	var records [][]byte
	start := 0
	for _, loc := range s.re.FindAllIndex(buf, -1) {
		if loc[0] == start {
			continue
		}
		if record := bytes.TrimRight(buf[start:loc[0]], "\r\n"); len(record) > 0 {
			records = append(records, record)
		}
		start = loc[0]
	}
	return records, buf[start:]
}

// Flush implements Splitter. The last record of a file has no following match.
func (s *PatternSplitter) Flush(rest []byte) []byte {
	if record := bytes.TrimRight(rest, "\r\n"); len(record) > 0 {
		return record
	}
	return nil
}
