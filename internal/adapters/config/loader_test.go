package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/config"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func createFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	return path
}

func TestLoader_Load(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "site", "partials"), domain.DirPerm))

	path := createFile(t, root, domain.ConfigFileName, `
version: "1"
src: site
out: public
templates: partials
sharedDomain: https://cdn.example.com/
templateEndpoints:
  - https://templates.example.com/list.json
workers: 3
cycles: warn
minify:
  js: false
purge:
  safelist: ["is-open"]
cache:
  entries: 64
  requestsPerSecond: 5
plugins:
  generatorMeta: false
dev:
  addr: 0.0.0.0:3000
  debounce: 250ms
`)

	cfg, err := newLoader(t).Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "site"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(root, "public"), cfg.OutDir)
	assert.Equal(t, filepath.Join(root, "site", "partials"), cfg.TemplatesDir)
	assert.Equal(t, "https://cdn.example.com/", cfg.SharedDomain)
	assert.Equal(t, []string{"https://templates.example.com/list.json"}, cfg.TemplateEndpoints)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, domain.CycleWarn, cfg.Cycles)
	assert.True(t, cfg.Minify.HTML)
	assert.True(t, cfg.Minify.CSS)
	assert.False(t, cfg.Minify.JS)
	assert.True(t, cfg.Purge.Enabled)
	assert.Equal(t, []string{"is-open"}, cfg.Purge.Safelist)
	assert.True(t, cfg.Cache.HTTP)
	assert.Equal(t, 64, cfg.Cache.Entries)
	assert.InDelta(t, 5.0, cfg.Cache.RequestsPerSecond, 0.001)
	assert.False(t, cfg.Plugins.GeneratorMeta)
	assert.Equal(t, "0.0.0.0:3000", cfg.Dev.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Dev.Debounce)
	assert.Equal(t, "bundle", cfg.BundleName)
}

func TestLoader_Load_Defaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "templates"), domain.DirPerm))

	cfg, err := newLoader(t).Load(filepath.Join(root, domain.ConfigFileName))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "src"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(root, "dist"), cfg.OutDir)
	assert.Equal(t, filepath.Join(root, "src", "templates"), cfg.TemplatesDir)
	assert.Equal(t, domain.CycleFail, cfg.Cycles)
	assert.Equal(t, domain.DefaultDebounce, cfg.Dev.Debounce)
	assert.Equal(t, filepath.Join(root, domain.DefaultHTTPCachePath()), cfg.Cache.Dir)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		mkdirs  []string
		wantErr error
	}{
		{
			name:    "missing source dir",
			content: "src: nowhere\n",
			wantErr: domain.ErrSourceDirMissing,
		},
		{
			name:    "missing templates dir",
			content: "templates: partials\n",
			mkdirs:  []string{"src"},
			wantErr: domain.ErrTemplatesDirMissing,
		},
		{
			name:    "unknown cycle policy",
			content: "cycles: ignore\n",
			mkdirs:  []string{"src"},
			wantErr: domain.ErrInvalidCyclePolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, dir := range tt.mkdirs {
				require.NoError(t, os.MkdirAll(filepath.Join(root, dir), domain.DirPerm))
			}
			path := createFile(t, root, domain.ConfigFileName, tt.content)

			_, err := newLoader(t).Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoader_Load_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	path := createFile(t, root, domain.ConfigFileName, "src: [unclosed\n")

	_, err := newLoader(t).Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigParseFailed.Error())
}
