package types

// AppConfig represents the FlexMod tool configuration.
// Loaded from flexmod.json / flexmod.jsonc files and environment overrides.
type AppConfig struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Directory holding one sub-directory per mod
	ModsDir string `json:"mods_dir,omitempty"`

	// UI language index (0=English, 1=Chinese), passed through to the presentation layer
	Lang int `json:"lang,omitempty"`

	// Mods that carry a FlexMod/FlexMod.json, refreshed on discovery
	EnabledMods []string `json:"Enabled_FlexMod,omitempty"`

	// Glob patterns (relative to the scanned directory) searched for orphaned markers
	ScanPatterns []string `json:"scanPatterns,omitempty"`

	// HTTP API
	Server *ServerConfig `json:"server,omitempty"`

	// Logging
	Log *LogConfig `json:"log,omitempty"`

	// Settings file watcher
	Watcher *WatcherConfig `json:"watcher,omitempty"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port     int    `json:"port,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	CORS     *bool  `json:"cors,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `json:"level,omitempty"` // DEBUG|INFO|WARN|ERROR
	Pretty bool   `json:"pretty,omitempty"`
}

// WatcherConfig holds settings for the player_settings.json watcher.
type WatcherConfig struct {
	// Debounce window in milliseconds before re-applying
	DebounceMS int `json:"debounceMs,omitempty"`
}

// DefaultScanPatterns are used when no scanPatterns are configured.
var DefaultScanPatterns = []string{"**/*.xml"}

// Patterns returns the configured scan patterns or the defaults.
func (c *AppConfig) Patterns() []string {
	if c == nil || len(c.ScanPatterns) == 0 {
		return DefaultScanPatterns
	}
	return c.ScanPatterns
}
