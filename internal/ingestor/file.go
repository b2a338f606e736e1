package ingestor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/tilaka3/collector/internal/fileinput"
	"github.com/tilaka3/collector/internal/model"
)

// maxPending bounds a record that never sees its terminator.
const maxPending = 1 << 20

// defaultIdleFlushPolls is how many polls without new content a file waits
// before its pending record is flushed.
const defaultIdleFlushPolls = 10

// fileState tracks the read position of one tailed file.
type fileState struct {
	info    os.FileInfo
	offset  int64
	raw     []byte // bytes read but not yet decodable
	pending []byte // decoded content not yet split into a record
	idle    int    // polls without new content
	decoder *encoding.Decoder
}

// Position is where reading of a file resumes after a restart.
type Position struct {
	Info   os.FileInfo
	Offset int64
}

// FileIngestor tails the files of a validated file input and emits log entries.
type FileIngestor struct {
	cfg       fileinput.Configuration
	name      string
	encoding  encoding.Encoding
	splitter  Splitter
	interval  time.Duration
	idleFlush int
	resume    map[string]Position
	positions map[string]Position
	logger    logger.ILogger
}

// NewFileIngestor creates a file tailing ingestor. Configurations rejected by
// the validator never reach the reading loop.
func NewFileIngestor(cfg fileinput.Configuration, validator *fileinput.Validator, log logger.ILogger) (*FileIngestor, error) {
	if ok, violation := validator.Validate(cfg); !ok {
		return nil, fmt.Errorf("file input %q: %w", cfg.Name, violation)
	}
	if cfg.PathSet == nil {
		return nil, fmt.Errorf("file input %q: no path configured", cfg.Name)
	}

	enc, err := fileinput.ResolveCharset(cfg.Charset)
	if err != nil {
		return nil, err
	}

	splitter, err := NewSplitter(cfg)
	if err != nil {
		return nil, err
	}

	return &FileIngestor{
		cfg:       cfg,
		name:      "file:" + cfg.Name,
		encoding:  enc,
		splitter:  splitter,
		interval:  time.Duration(cfg.ReaderInterval) * time.Millisecond,
		idleFlush: defaultIdleFlushPolls,
		logger:    log.SubLogger("FileIngestor"),
	}, nil
}

// Resume makes Start continue files from positions recorded by a previous
// ingestor instead of their end. Must be called before Start.
func (f *FileIngestor) Resume(positions map[string]Position) {
	f.resume = positions
}

// Positions returns where each file was left once Start has returned.
// Content read but not yet emitted as a record is not counted as read.
func (f *FileIngestor) Positions() map[string]Position {
	return f.positions
}

// Name returns the ingestor identifier.
func (f *FileIngestor) Name() string {
	return f.name
}

// Start tails the matching files, sending entries to the output channel.
// Existing files are read from their end unless a resume position exists,
// files appearing later from the start.
func (f *FileIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	states := make(map[string]*fileState)
	defer f.savePositions(states)

	paths, err := f.cfg.PathSet.Paths()
	if err != nil {
		return fmt.Errorf("invalid glob pattern %q: %w", f.cfg.PathSet.Pattern(), err)
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		states[path] = f.newState(info, f.startOffset(path, info))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Polling still picks up changes when the root cannot be watched yet.
	if err := watcher.Add(f.cfg.PathSet.RootPath()); err != nil {
		f.logger.Warningf("watching directory failed, polling only: path=%s, error=%v", f.cfg.PathSet.RootPath(), err)
	}

	f.logger.Debugf("tailing files: input=%s, pattern=%s, files=%d", f.cfg.Name, f.cfg.PathSet.Pattern(), len(states))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := f.poll(ctx, states, out); err != nil {
				return err
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !f.cfg.PathSet.Matches(event.Name) {
				continue
			}

			// Recreated files (rotation) are detected by readFile comparing file identity
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := f.readFile(ctx, event.Name, states, out); err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					f.logger.Debugf("read error: file=%s, error=%v", event.Name, err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warningf("file watcher error: %v", err)
		}
	}
}

// poll reads new content from every file currently matching the pattern.
func (f *FileIngestor) poll(ctx context.Context, states map[string]*fileState, out chan<- *model.LogEntry) error {
	paths, err := f.cfg.PathSet.Paths()
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := f.readFile(ctx, path, states, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Debugf("read error: file=%s, error=%v", path, err)
		}
	}
	return nil
}

// startOffset picks the offset of a file present at startup. A file replaced
// since its position was recorded is read from the start.
func (f *FileIngestor) startOffset(path string, info os.FileInfo) int64 {
	pos, ok := f.resume[path]
	switch {
	case !ok:
		return info.Size()
	case os.SameFile(pos.Info, info) && pos.Offset <= info.Size():
		return pos.Offset
	default:
		return 0
	}
}

// savePositions records the offsets of all files, minus the bytes of
// content not yet emitted so a successor reads it again.
func (f *FileIngestor) savePositions(states map[string]*fileState) {
	positions := make(map[string]Position, len(states))
	for path, st := range states {
		offset := st.offset - int64(len(st.raw))
		if len(st.pending) > 0 {
			encoded, err := f.encoding.NewEncoder().Bytes(st.pending)
			if err != nil {
				encoded = st.pending
			}
			offset -= int64(len(encoded))
		}
		positions[path] = Position{Info: st.info, Offset: max(offset, 0)}
	}
	f.positions = positions
}

func (f *FileIngestor) newState(info os.FileInfo, offset int64) *fileState {
	return &fileState{
		info:    info,
		offset:  offset,
		decoder: f.encoding.NewDecoder(),
	}
}

// readFile reads content appended since the last call and emits the complete records.
func (f *FileIngestor) readFile(ctx context.Context, path string, states map[string]*fileState, out chan<- *model.LogEntry) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	st, ok := states[path]
	switch {
	case !ok:
		st = f.newState(info, 0)
		states[path] = st
	case !os.SameFile(st.info, info) || info.Size() < st.offset:
		// Replaced or truncated, read from the beginning
		st = f.newState(info, 0)
		states[path] = st
	}
	st.info = info

	if info.Size() == st.offset {
		return f.idle(ctx, path, st, out)
	}
	st.idle = 0

	if _, err := file.Seek(st.offset, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, f.cfg.ReaderBufferSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			st.offset += int64(n)
			if err := f.consume(ctx, path, st, buf[:n], out); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// consume decodes chunk, splits the decoded content and emits finished records.
func (f *FileIngestor) consume(ctx context.Context, path string, st *fileState, chunk []byte, out chan<- *model.LogEntry) error {
	src := append(st.raw, chunk...)
	decoded, consumed, err := decode(st.decoder, src)
	if err != nil {
		return fmt.Errorf("decoding %s as %s: %w", path, f.cfg.Charset, err)
	}
	st.raw = append([]byte(nil), src[consumed:]...)
	st.pending = append(st.pending, decoded...)

	records, rest := f.splitter.Split(st.pending)
	if len(records) == 0 && len(rest) > maxPending {
		records, rest = [][]byte{rest}, nil
	}

	for _, record := range records {
		if err := f.emit(ctx, path, record, out); err != nil {
			return err
		}
	}

	st.pending = append([]byte(nil), rest...)
	return nil
}

// idle flushes the pending record of a file that has stopped growing.
func (f *FileIngestor) idle(ctx context.Context, path string, st *fileState, out chan<- *model.LogEntry) error {
	if len(st.pending) == 0 {
		return nil
	}
	st.idle++
	if st.idle < f.idleFlush {
		return nil
	}

	record := f.splitter.Flush(st.pending)
	if record == nil {
		return nil
	}
	if err := f.emit(ctx, path, record, out); err != nil {
		return err
	}
	st.pending = nil
	st.idle = 0
	return nil
}

func (f *FileIngestor) emit(ctx context.Context, path string, record []byte, out chan<- *model.LogEntry) error {
	raw := make([]byte, len(record))
	copy(raw, record)

	entry := model.NewLogEntry(f.name, raw)
	entry.Metadata["file"] = path
	entry.Metadata["input"] = f.cfg.Name

	// The offset already counts this record, deliver it whenever out has room.
	select {
	case out <- entry:
		return nil
	default:
	}

	select {
	case out <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decode converts as much of src as forms complete characters and reports how
// many source bytes were used. An incomplete trailing sequence is left for the next read.
func decode(dec *encoding.Decoder, src []byte) ([]byte, int, error) {
	dst := make([]byte, 2*len(src)+utf8Max)
	for {
		nDst, nSrc, err := dec.Transform(dst, src, false)
		switch {
		case err == nil, errors.Is(err, transform.ErrShortSrc):
			return dst[:nDst], nSrc, nil
		case errors.Is(err, transform.ErrShortDst):
			dec.Reset()
			dst = make([]byte, 2*len(dst))
		default:
			return nil, 0, err
		}
	}
}

const utf8Max = 4
