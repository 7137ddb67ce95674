package config

// Configfile represents the structure of the weave.yaml configuration file.
// Pointer fields distinguish "not set" from an explicit zero value.
type Configfile struct {
	Version           string     `yaml:"version"`
	Src               string     `yaml:"src"`
	Out               string     `yaml:"out"`
	Templates         string     `yaml:"templates"`
	SharedDomain      string     `yaml:"sharedDomain"`
	BundleName        string     `yaml:"bundleName"`
	AssetsDir         string     `yaml:"assetsDir"`
	TemplateEndpoints []string   `yaml:"templateEndpoints"`
	Workers           int        `yaml:"workers"`
	Cycles            string     `yaml:"cycles"`
	Minify            *MinifyDTO `yaml:"minify"`
	Purge             *PurgeDTO  `yaml:"purge"`
	Cache             *CacheDTO  `yaml:"cache"`
	Plugins           *PluginDTO `yaml:"plugins"`
	Dev               *DevDTO    `yaml:"dev"`
}

// MinifyDTO toggles minification per output kind.
type MinifyDTO struct {
	HTML *bool `yaml:"html"`
	CSS  *bool `yaml:"css"`
	JS   *bool `yaml:"js"`
}

// PurgeDTO configures unused-selector removal.
type PurgeDTO struct {
	Enabled  *bool    `yaml:"enabled"`
	Safelist []string `yaml:"safelist"`
}

// CacheDTO configures the HTTP and transform caches.
type CacheDTO struct {
	HTTP              *bool   `yaml:"http"`
	Dir               string  `yaml:"dir"`
	Entries           int     `yaml:"entries"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

// PluginDTO toggles built-in plugins.
type PluginDTO struct {
	GeneratorMeta *bool `yaml:"generatorMeta"`
}

// DevDTO configures the development server.
type DevDTO struct {
	Addr     string `yaml:"addr"`
	Debounce string `yaml:"debounce"`
	Purge    *bool  `yaml:"purge"`
}
