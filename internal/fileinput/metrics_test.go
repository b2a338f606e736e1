package fileinput

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tilaka3/collector/internal/pathset"
)

func TestMetrics_CountsResults(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	v := NewValidator(nil, WithMetrics(m))

	v.Validate(validConfiguration())
	v.Validate(validConfiguration())

	bad := validConfiguration()
	bad.ReaderBufferSize = 0
	v.Validate(bad)

	missing := validConfiguration()
	missing.PathSet = pathset.New(filepath.Join(t.TempDir(), "gone", "*.log"))
	v.Validate(missing)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.validations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("readerBufferSizeTooSmall")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unreadablePaths))
}

func TestMetrics_ValidateAllCountsEachInputOnce(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	v := NewValidator(nil, WithMetrics(m))

	bad := validConfiguration()
	bad.Charset = "x-no-such-charset"
	v.ValidateAll([]Configuration{validConfiguration(), bad})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("unsupportedCharset")))
}

func TestMetrics_NilCountsNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		NewValidator(nil, WithMetrics(m)).Validate(validConfiguration())
	})
}

func TestMetrics_RegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
