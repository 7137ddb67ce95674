package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/cas"
	"go.trai.ch/weave/internal/adapters/config"
	"go.trai.ch/weave/internal/adapters/fs"
	"go.trai.ch/weave/internal/adapters/minify"
	"go.trai.ch/weave/internal/adapters/telemetry"
	"go.trai.ch/weave/internal/app"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func provide(loader ports.ConfigLoader, log ports.Logger) ComponentProvider {
	return func(_ context.Context) (*app.Components, error) {
		a := app.New(loader, log, cas.NewHasher(), fs.NewWalker(), minify.New(), telemetry.NewNoOpTracer(), nil)
		return &app.Components{App: a, Logger: log}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)

	stdout := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stdout, new(bytes.Buffer),
		provide(mocks.NewMockConfigLoader(ctrl), mockLogger))

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "weave version")
}

// TestRun_Build runs a real build through the CLI.
func TestRun_Build(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.html"),
		[]byte(`<html><head></head><body>hi</body></html>`), domain.FilePerm))
	cfgPath := filepath.Join(root, domain.ConfigFileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  http: false\n"), domain.FilePerm))

	exitCode := run(context.Background(), []string{"build", "--config", cfgPath}, new(bytes.Buffer), new(bytes.Buffer),
		provide(config.NewLoader(mockLogger), mockLogger))

	assert.Equal(t, 0, exitCode)
	assert.FileExists(t, filepath.Join(root, "dist", "index.html"))
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, error) {
		return nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run returns 1 and logs when the command fails.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLoader := mocks.NewMockConfigLoader(ctrl)
	mockLogger := mocks.NewMockLogger(ctrl)

	mockLoader.EXPECT().Load(domain.ConfigFileName).Return(nil, errors.New("load failed"))
	mockLogger.EXPECT().Error(gomock.Any()).Times(1)

	exitCode := run(context.Background(), []string{"build"}, new(bytes.Buffer), new(bytes.Buffer),
		provide(mockLoader, mockLogger))

	assert.Equal(t, 1, exitCode)
}
