package ports

import "go.trai.ch/weave/internal/core/domain"

// ConfigLoader defines the interface for loading the build configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration file at path and returns the resolved configuration.
	// A missing file yields the defaults rooted at the file's directory.
	Load(path string) (*domain.Config, error)
}
