// Package fileinput validates file input configurations before they are handed
// to the file reading engine.
//
// Validation runs an ordered list of rules and stops at the first failure, so an
// invalid configuration always carries exactly one Violation. An unreadable root
// directory is reported to a Sink as a warning and never fails validation.
package fileinput

import (
	"errors"
	"strconv"

	"github.com/tilaka3/collector/internal/pathset"
)

// ContentSplitterPattern is the splitter mode that cuts records at pattern matches.
const ContentSplitterPattern = "PATTERN"

// ContentSplitterNewline is the default splitter mode, one record per line.
const ContentSplitterNewline = "NEWLINE"

const unreadablePathWarning = "configured directory does not exist or is not accessible"

// Configuration describes a single file input.
type Configuration struct {
	Name                   string
	Charset                string
	ReaderBufferSize       int
	ReaderInterval         int // milliseconds
	ContentSplitter        string
	ContentSplitterPattern string
	PathSet                *pathset.PathSet
}

// Kind classifies why a configuration was rejected.
type Kind int

const (
	// UnsupportedCharsetKind: the charset name is well-formed but no encoding provides it.
	UnsupportedCharsetKind Kind = iota + 1
	// IllegalCharsetKind: the charset name breaks the charset name grammar.
	IllegalCharsetKind
	// BufferTooSmallKind: the reader buffer size is below one byte.
	BufferTooSmallKind
	// IntervalTooSmallKind: the reader interval is below one millisecond.
	IntervalTooSmallKind
	// InvalidPatternKind: the content splitter pattern does not compile.
	InvalidPatternKind
	// MissingPatternKind: PATTERN mode is selected without a pattern.
	MissingPatternKind
)

var messageKeys = map[Kind]string{
	UnsupportedCharsetKind: "unsupportedCharset",
	IllegalCharsetKind:     "illegalCharset",
	BufferTooSmallKind:     "readerBufferSizeTooSmall",
	IntervalTooSmallKind:   "readerIntervalTooSmall",
	InvalidPatternKind:     "invalidPattern",
	MissingPatternKind:     "missingPattern",
}

// MessageKey returns the stable message template key of the kind.
func (k Kind) MessageKey() string {
	return messageKeys[k]
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if key, ok := messageKeys[k]; ok {
		return key
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Violation explains why a configuration is invalid.
// Value is nil when the message takes no argument.
type Violation struct {
	Field string
	Kind  Kind
	Value *string
}

// MessageKey returns the message template key for rendering.
func (v *Violation) MessageKey() string {
	return v.Kind.MessageKey()
}

// Error renders the violation with the English catalog.
func (v *Violation) Error() string {
	return Render(*v, defaultLanguage)
}

func newViolation(kind Kind, value string) *Violation {
	return &Violation{Kind: kind, Value: &value}
}

// rule is a single validation gate. check returns nil when the gate passes.
type rule struct {
	field string
	check func(cfg Configuration) *Violation
}

var rules = []rule{
	{field: "charset", check: checkCharset},
	{field: "readerBufferSize", check: checkReaderBufferSize},
	{field: "readerInterval", check: checkReaderInterval},
	{field: "contentSplitterPattern", check: checkContentSplitter},
}

// Validator checks file input configurations. It keeps no state between calls
// and is safe for concurrent use.
type Validator struct {
	sink    Sink
	metrics *Metrics
}

// Option configures a Validator.
type Option func(*Validator)

// WithMetrics counts every validation in m.
func WithMetrics(m *Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// NewValidator creates a validator reporting warnings to sink. A nil sink discards them.
func NewValidator(sink Sink, opts ...Option) *Validator {
	if sink == nil {
		sink = discardSink{}
	}
	v := &Validator{sink: sink}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks cfg and returns the first violation found, if any.
func (v *Validator) Validate(cfg Configuration) (bool, *Violation) {
	v.warnUnreadableRoot(cfg)

	for _, r := range rules {
		if violation := r.check(cfg); violation != nil {
			violation.Field = r.field
			v.metrics.observe(violation)
			return false, violation
		}
	}

	v.metrics.observe(nil)
	return true, nil
}

// Failure pairs a rejected input with its violation.
type Failure struct {
	Index     int
	Name      string
	Violation *Violation
}

// ValidateAll validates every configuration and returns one Failure per invalid input.
// Each input still stops at its own first violation.
func (v *Validator) ValidateAll(cfgs []Configuration) []Failure {
	var failures []Failure
	for i, cfg := range cfgs {
		if ok, violation := v.Validate(cfg); !ok {
			failures = append(failures, Failure{Index: i, Name: cfg.Name, Violation: violation})
		}
	}
	return failures
}

func (v *Validator) warnUnreadableRoot(cfg Configuration) {
	if cfg.PathSet == nil {
		return
	}

	root := cfg.PathSet.RootPath()
	if !isReadable(root) {
		v.metrics.unreadable()
		v.sink.Warn(unreadablePathWarning, root)
	}
}

func checkCharset(cfg Configuration) *Violation {
	_, err := ResolveCharset(cfg.Charset)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrIllegalCharsetName):
		return newViolation(IllegalCharsetKind, cfg.Charset)
	default:
		return newViolation(UnsupportedCharsetKind, cfg.Charset)
	}
}

func checkReaderBufferSize(cfg Configuration) *Violation {
	if cfg.ReaderBufferSize < 1 {
		return newViolation(BufferTooSmallKind, strconv.Itoa(cfg.ReaderBufferSize))
	}
	return nil
}

func checkReaderInterval(cfg Configuration) *Violation {
	if cfg.ReaderInterval < 1 {
		return newViolation(IntervalTooSmallKind, strconv.Itoa(cfg.ReaderInterval))
	}
	return nil
}

func checkContentSplitter(cfg Configuration) *Violation {
	if cfg.ContentSplitter != ContentSplitterPattern {
		return nil
	}

	if cfg.ContentSplitterPattern == "" {
		return &Violation{Kind: MissingPatternKind}
	}

	// The compiler's diagnostic is dropped, only the pattern is reported.
	if _, err := CompilePattern(cfg.ContentSplitterPattern); err != nil {
		return newViolation(InvalidPatternKind, cfg.ContentSplitterPattern)
	}
	return nil
}
