// Package config provides the configuration loader for weave.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// defaultTemplatesDir is picked up inside the source root when no templates dir is configured.
const defaultTemplatesDir = "templates"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the configuration file at path. Relative directories in the file are
// resolved against the file's directory. A missing file yields the defaults.
func (l *Loader) Load(path string) (*domain.Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}
	root := filepath.Dir(absPath)

	var file Configfile
	switch err := readAndUnmarshalYAML(absPath, &file); {
	case errors.Is(err, fs.ErrNotExist):
		l.Logger.Debug(fmt.Sprintf("no %s found, using defaults", filepath.Base(absPath)))
	case err != nil:
		return nil, err
	}

	cfg, err := resolve(root, &file)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:cyclop // flat mapping of optional fields
func resolve(root string, file *Configfile) (*domain.Config, error) {
	cfg := domain.DefaultConfig(root)

	if file.Src != "" {
		cfg.SourceDir = resolvePath(root, file.Src)
	}
	if file.Out != "" {
		cfg.OutDir = resolvePath(root, file.Out)
	}
	if file.Templates != "" {
		cfg.TemplatesDir = resolvePath(cfg.SourceDir, file.Templates)
	} else if dir := filepath.Join(cfg.SourceDir, defaultTemplatesDir); isDir(dir) {
		cfg.TemplatesDir = dir
	}
	cfg.SharedDomain = file.SharedDomain
	if file.BundleName != "" {
		cfg.BundleName = file.BundleName
	}
	if file.AssetsDir != "" {
		cfg.AssetsDir = file.AssetsDir
	}
	cfg.TemplateEndpoints = file.TemplateEndpoints
	if file.Workers > 0 {
		cfg.Workers = file.Workers
	}

	switch domain.CyclePolicy(file.Cycles) {
	case "":
	case domain.CycleFail, domain.CycleWarn:
		cfg.Cycles = domain.CyclePolicy(file.Cycles)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidCyclePolicy, domain.ErrConfigParseFailed.Error()), "cycles", file.Cycles)
	}

	if m := file.Minify; m != nil {
		setBool(&cfg.Minify.HTML, m.HTML)
		setBool(&cfg.Minify.CSS, m.CSS)
		setBool(&cfg.Minify.JS, m.JS)
	}
	if p := file.Purge; p != nil {
		setBool(&cfg.Purge.Enabled, p.Enabled)
		cfg.Purge.Safelist = p.Safelist
	}
	if c := file.Cache; c != nil {
		setBool(&cfg.Cache.HTTP, c.HTTP)
		if c.Dir != "" {
			cfg.Cache.Dir = resolvePath(root, c.Dir)
		}
		if c.Entries > 0 {
			cfg.Cache.Entries = c.Entries
		}
		cfg.Cache.RequestsPerSecond = c.RequestsPerSecond
	}
	if p := file.Plugins; p != nil {
		setBool(&cfg.Plugins.GeneratorMeta, p.GeneratorMeta)
	}
	if d := file.Dev; d != nil {
		if d.Addr != "" {
			cfg.Dev.Addr = d.Addr
		}
		if d.Debounce != "" {
			window, err := time.ParseDuration(d.Debounce)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "dev.debounce", d.Debounce)
			}
			cfg.Dev.Debounce = window
		}
		setBool(&cfg.Dev.Purge, d.Purge)
	}

	return cfg, nil
}

func validate(cfg *domain.Config) error {
	if !isDir(cfg.SourceDir) {
		return zerr.With(zerr.Wrap(domain.ErrSourceDirMissing, "invalid configuration"), "src", cfg.SourceDir)
	}
	if cfg.TemplatesDir != "" && !isDir(cfg.TemplatesDir) {
		return zerr.With(zerr.Wrap(domain.ErrTemplatesDirMissing, "invalid configuration"), "templates", cfg.TemplatesDir)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath comes from the command line
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
