package testutil

import "sync"

// Warning is a single warning captured by RecordingSink.
type Warning struct {
	Message string
	Path    string
}

// RecordingSink collects validation warnings for assertions.
type RecordingSink struct {
	mu       sync.Mutex
	warnings []Warning
}

// Warn records the warning.
func (s *RecordingSink) Warn(message, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, Warning{Message: message, Path: path})
}

// Warnings returns a copy of the recorded warnings.
func (s *RecordingSink) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Warning(nil), s.warnings...)
}
