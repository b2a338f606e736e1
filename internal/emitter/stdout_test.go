package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tilaka3/collector/internal/config"
	"github.com/tilaka3/collector/internal/model"
	"github.com/tilaka3/collector/internal/testutil"
)

func testEntry() *model.LogEntry {
	return &model.LogEntry{
		Timestamp: time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC),
		Source:    "file:app",
		Raw:       []byte("test message"),
		Metadata:  map[string]string{"file": "/var/log/app.log"},
	}
}

func TestStdoutEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewStdoutEmitterWithWriter(config.OutputConfig{Format: "json"}, &buf, testutil.NewTestLogger())

	if emitter.Name() != "stdout" {
		t.Errorf("expected name 'stdout', got %q", emitter.Name())
	}

	if err := emitter.Emit(context.Background(), testEntry()); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if result["source"] != "file:app" {
		t.Errorf("expected source=file:app, got %v", result["source"])
	}
	if result["message"] != "test message" {
		t.Errorf("expected message, got %v", result["message"])
	}
	if result["file"] != "/var/log/app.log" {
		t.Errorf("expected file metadata, got %v", result["file"])
	}
}

func TestStdoutEmitter_Text(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewStdoutEmitterWithWriter(config.OutputConfig{Format: "text"}, &buf, testutil.NewTestLogger())

	if err := emitter.Emit(context.Background(), testEntry()); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	expected := "[2026-01-18T12:00:00Z] [file:app] test message\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestStdoutEmitter_WriteError(t *testing.T) {
	emitter := NewStdoutEmitterWithWriter(config.OutputConfig{Format: "json"}, failingWriter{}, testutil.NewTestLogger())

	if err := emitter.Emit(context.Background(), testEntry()); err == nil {
		t.Fatal("expected write error")
	}
}
