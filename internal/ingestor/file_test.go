package ingestor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilaka3/collector/internal/fileinput"
	"github.com/tilaka3/collector/internal/model"
	"github.com/tilaka3/collector/internal/pathset"
	"github.com/tilaka3/collector/internal/testutil"
)

func testConfiguration(dir string) fileinput.Configuration {
	return fileinput.Configuration{
		Name:             "app",
		Charset:          "UTF-8",
		ReaderBufferSize: 16,
		ReaderInterval:   20,
		ContentSplitter:  fileinput.ContentSplitterNewline,
		PathSet:          pathset.New(filepath.Join(dir, "*.log")),
	}
}

func receive(t *testing.T, out <-chan *model.LogEntry) *model.LogEntry {
	t.Helper()
	select {
	case entry := <-out:
		return entry
	case <-time.After(2 * time.Second): // File system events can be slow
		t.Fatal("timeout waiting for log entry")
		return nil
	}
}

func appendFile(t *testing.T, path string, content []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestNewFileIngestor_RejectsInvalidConfiguration(t *testing.T) {
	cfg := testConfiguration(t.TempDir())
	cfg.ReaderBufferSize = 0

	_, err := NewFileIngestor(cfg, fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.Error(t, err)

	var violation *fileinput.Violation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, fileinput.BufferTooSmallKind, violation.Kind)
}

func TestNewFileIngestor_RequiresPath(t *testing.T) {
	cfg := testConfiguration(t.TempDir())
	cfg.PathSet = nil

	_, err := NewFileIngestor(cfg, fileinput.NewValidator(nil), testutil.NewTestLogger())
	assert.Error(t, err)
}

func TestNewFileIngestor_MissingRootIsWarning(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "later")
	sink := &testutil.RecordingSink{}

	ingestor, err := NewFileIngestor(testConfiguration(missing), fileinput.NewValidator(sink), testutil.NewTestLogger())
	require.NoError(t, err)
	require.NotNil(t, ingestor)

	warnings := sink.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, missing, warnings[0].Path)
}

func TestFileIngestor(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")

	// Existing content is skipped, tailing starts at the end
	appendFile(t, logFile, []byte("line 1\n"))

	ingestor, err := NewFileIngestor(testConfiguration(tmpDir), fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "file:app", ingestor.Name())

	out := make(chan *model.LogEntry, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = ingestor.Start(ctx, out)
	}()

	time.Sleep(100 * time.Millisecond)

	// Longer than the 16 byte read buffer
	appendFile(t, logFile, []byte("line 2 spans more than one buffer\n"))

	entry := receive(t, out)
	assert.Equal(t, "line 2 spans more than one buffer", string(entry.Raw))
	assert.Equal(t, logFile, entry.Metadata["file"])
	assert.Equal(t, "app", entry.Metadata["input"])
	assert.Equal(t, "file:app", entry.Source)

	// Rotation: move away and recreate
	require.NoError(t, os.Rename(logFile, logFile+".1"))
	appendFile(t, logFile, []byte("line 3\n"))

	entry = receive(t, out)
	assert.Equal(t, "line 3", string(entry.Raw))
}

func TestFileIngestor_PatternAndCharset(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := testConfiguration(tmpDir)
	cfg.Charset = "ISO-8859-1"
	cfg.ContentSplitter = fileinput.ContentSplitterPattern
	cfg.ContentSplitterPattern = `^\d{4}-\d{2}-\d{2} `

	ingestor, err := NewFileIngestor(cfg, fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)
	ingestor.idleFlush = 1000

	out := make(chan *model.LogEntry, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- ingestor.Start(ctx, out)
	}()

	time.Sleep(100 * time.Millisecond)

	// New file, read from the start. 0xE9 is é in Latin-1.
	logFile := filepath.Join(tmpDir, "java.log")
	appendFile(t, logFile, []byte("2026-01-02 caf\xe9 failed\n\tat Main.run\n2026-01-02 next"))

	entry := receive(t, out)
	assert.Equal(t, "2026-01-02 café failed\n\tat Main.run", string(entry.Raw))

	// The last record is emitted once the next one starts
	appendFile(t, logFile, []byte(" record\n2026-01-03 third\n"))

	entry = receive(t, out)
	assert.Equal(t, "2026-01-02 next record", string(entry.Raw))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ingestor did not stop")
	}

	// Output channel is closed on return
	for range out {
	}
}

func TestFileIngestor_Truncation(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")
	appendFile(t, logFile, []byte("old line one\nold line two\n"))

	ingestor, err := NewFileIngestor(testConfiguration(tmpDir), fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)

	out := make(chan *model.LogEntry, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = ingestor.Start(ctx, out)
	}()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(logFile, []byte("new\n"), 0644))

	entry := receive(t, out)
	assert.Equal(t, "new", string(entry.Raw))
}

// startIngestor runs ingestor in the background and returns a stop function
// that cancels it and waits for Start to return.
func startIngestor(t *testing.T, ingestor *FileIngestor, out chan *model.LogEntry) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ingestor.Start(ctx, out)
	}()

	// Let Start record the existing files
	time.Sleep(100 * time.Millisecond)

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("ingestor did not stop")
		}
	}
}

func TestFileIngestor_IdleFlush(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := testConfiguration(tmpDir)
	cfg.ContentSplitter = fileinput.ContentSplitterPattern
	cfg.ContentSplitterPattern = `^\d{4}-\d{2}-\d{2} `

	ingestor, err := NewFileIngestor(cfg, fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)
	ingestor.idleFlush = 3

	out := make(chan *model.LogEntry, 10)
	stop := startIngestor(t, ingestor, out)
	defer stop()

	appendFile(t, filepath.Join(tmpDir, "java.log"), []byte("2026-01-02 first\n\tat A\n2026-01-02 last\n\tat B\n"))

	entry := receive(t, out)
	assert.Equal(t, "2026-01-02 first\n\tat A", string(entry.Raw))

	// No further record starts, the quiet file flushes its last one
	entry = receive(t, out)
	assert.Equal(t, "2026-01-02 last\n\tat B", string(entry.Raw))
}

func TestFileIngestor_NewlineNeverFlushesPartialLine(t *testing.T) {
	tmpDir := t.TempDir()

	ingestor, err := NewFileIngestor(testConfiguration(tmpDir), fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)
	ingestor.idleFlush = 1

	out := make(chan *model.LogEntry, 10)
	stop := startIngestor(t, ingestor, out)
	defer stop()

	logFile := filepath.Join(tmpDir, "app.log")
	appendFile(t, logFile, []byte("half a "))
	time.Sleep(150 * time.Millisecond)
	appendFile(t, logFile, []byte("line\n"))

	entry := receive(t, out)
	assert.Equal(t, "half a line", string(entry.Raw))
}

func TestFileIngestor_ResumeAfterRestart(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "app.log")
	appendFile(t, logFile, []byte("history\n"))

	first, err := NewFileIngestor(testConfiguration(tmpDir), fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)

	out := make(chan *model.LogEntry, 10)
	stop := startIngestor(t, first, out)
	appendFile(t, logFile, []byte("before restart\n"))
	assert.Equal(t, "before restart", string(receive(t, out).Raw))
	stop()

	appendFile(t, logFile, []byte("written while stopped\n"))

	second, err := NewFileIngestor(testConfiguration(tmpDir), fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)
	second.Resume(first.Positions())

	out = make(chan *model.LogEntry, 10)
	stop = startIngestor(t, second, out)
	defer stop()

	appendFile(t, logFile, []byte("after restart\n"))

	assert.Equal(t, "written while stopped", string(receive(t, out).Raw))
	assert.Equal(t, "after restart", string(receive(t, out).Raw))
}

func TestFileIngestor_PositionsExcludePendingRecord(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "java.log")
	appendFile(t, logFile, nil)

	cfg := testConfiguration(tmpDir)
	cfg.ContentSplitter = fileinput.ContentSplitterPattern
	cfg.ContentSplitterPattern = `^\d{4}-\d{2}-\d{2} `

	first, err := NewFileIngestor(cfg, fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)
	first.idleFlush = 1000

	out := make(chan *model.LogEntry, 10)
	stop := startIngestor(t, first, out)
	appendFile(t, logFile, []byte("2026-01-02 a\n2026-01-02 b"))
	assert.Equal(t, "2026-01-02 a", string(receive(t, out).Raw))
	stop()

	positions := first.Positions()
	require.Contains(t, positions, logFile)
	assert.Equal(t, int64(len("2026-01-02 a\n")), positions[logFile].Offset)

	second, err := NewFileIngestor(cfg, fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)
	second.Resume(positions)

	out = make(chan *model.LogEntry, 10)
	stop = startIngestor(t, second, out)
	defer stop()

	appendFile(t, logFile, []byte("\n2026-01-03 c\n"))
	assert.Equal(t, "2026-01-02 b", string(receive(t, out).Raw))
}

func TestFileIngestor_StartOffset(t *testing.T) {
	tmpDir := t.TempDir()
	current := filepath.Join(tmpDir, "app.log")
	other := filepath.Join(tmpDir, "other.log")
	appendFile(t, current, []byte("0123456789"))
	appendFile(t, other, []byte("x"))

	currentInfo, err := os.Stat(current)
	require.NoError(t, err)
	otherInfo, err := os.Stat(other)
	require.NoError(t, err)

	ingestor, err := NewFileIngestor(testConfiguration(tmpDir), fileinput.NewValidator(nil), testutil.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(10), ingestor.startOffset(current, currentInfo), "unknown file starts at its end")

	ingestor.Resume(map[string]Position{current: {Info: currentInfo, Offset: 4}})
	assert.Equal(t, int64(4), ingestor.startOffset(current, currentInfo))

	ingestor.Resume(map[string]Position{current: {Info: otherInfo, Offset: 4}})
	assert.Equal(t, int64(0), ingestor.startOffset(current, currentInfo), "replaced file starts over")

	ingestor.Resume(map[string]Position{current: {Info: currentInfo, Offset: 99}})
	assert.Equal(t, int64(0), ingestor.startOffset(current, currentInfo), "truncated file starts over")
}
