package logger_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/logger"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing to a buffer without ANSI escape codes.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New()
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Info(t *testing.T) {
	tests := []struct {
		name       string
		msg        string
		goldenName string
	}{
		{name: "plain message", msg: "build finished", goldenName: "info_basic"},
		{name: "success message", msg: "✓ built 3 pages", goldenName: "info_success"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			lg.Info(tt.msg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_DebugHiddenUnlessVerbose(t *testing.T) {
	lg, buf := newTestLogger(t)

	lg.Debug("hidden")
	assert.Empty(t, buf.String())

	lg.SetVerbose(true)
	lg.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_Error(t *testing.T) {
	lg, buf := newTestLogger(t)

	err := zerr.Wrap(domain.ErrPageStructure, domain.ErrPageBuildFailed.Error())
	lg.Error(zerr.With(err, "page", "index.html"))

	g := goldie.New(t)
	g.Assert(t, "error_chain", buf.Bytes())
}

func TestLogger_ErrorNil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_ErrorJSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Error(errors.New("boom"))

	assert.Contains(t, buf.String(), `"msg":"operation failed"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestLogger_DebugFile(t *testing.T) {
	lg, buf := newTestLogger(t)
	path := filepath.Join(t.TempDir(), ".weave", "debug.log")

	require.NoError(t, lg.SetDebugFile(path))
	require.NotNil(t, lg.DebugWriter())

	lg.Debug("only in file")
	lg.Info("everywhere")
	require.NoError(t, lg.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "only in file")
	assert.Contains(t, string(data), "everywhere")
	assert.NotContains(t, buf.String(), "only in file")
	assert.Contains(t, buf.String(), "everywhere")
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewPrettyHandler(buf, nil))
	lg.Warn("template not found", "name", "nav")

	g := goldie.New(t)
	g.Assert(t, "warn_attrs", buf.Bytes())
}

func TestErrorChain(t *testing.T) {
	base := errors.New("disk full")
	err := zerr.With(zerr.Wrap(base, "failed to write file"), "path", "dist/index.html")

	chain := logger.ErrorChain(err)
	assert.Equal(t, []string{"failed to write file", "disk full"}, chain)

	formatted := logger.FormatChain([]string{"outer\ndetail", "inner"})
	assert.Equal(t, "Error: outer\n       detail\n\n  Caused by:\n    → inner", formatted)
}
