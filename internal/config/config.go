package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/flexmod/flexmod/pkg/types"
)

const (
	EnvConfig   = "FLEXMOD_CONFIG"
	EnvModsDir  = "FLEXMOD_MODS_DIR"
	EnvLogLevel = "FLEXMOD_LOG_LEVEL"
	EnvPort     = "FLEXMOD_PORT"
)

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/flexmod/)
// 2. Project config (flexmod.json(c) and .flexmod/ in directory)
// 3. FLEXMOD_CONFIG file
// 4. Environment variables
//
// A .env file in directory is loaded into the environment first, without
// overriding variables that are already set, so it feeds both {env:VAR}
// placeholders and the overrides.
func Load(directory string) (*types.AppConfig, error) {
	config := &types.AppConfig{}

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	if directory != "" {
		// Missing .env is the normal case
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "flexmod.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "flexmod.jsonc"), globalPath)

	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".flexmod")
		loadOnce(filepath.Join(directory, "flexmod.json"), directory)
		loadOnce(filepath.Join(directory, "flexmod.jsonc"), directory)
		loadOnce(filepath.Join(projectConfigDir, "flexmod.json"), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "flexmod.jsonc"), projectConfigDir)
	}

	if configPath := os.Getenv(EnvConfig); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	applyEnvOverrides(config)

	if config.ModsDir != "" && !filepath.IsAbs(config.ModsDir) && directory != "" {
		config.ModsDir = filepath.Join(directory, config.ModsDir)
	}

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.AppConfig, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	var fileConfig types.AppConfig
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return jsonEscape(os.Getenv(envPattern.FindStringSubmatch(match)[1]))
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}
		return jsonEscape(strings.TrimRight(string(content), "\r\n"))
	})

	return []byte(str)
}

// jsonEscape escapes s for use inside a JSON string literal.
func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.AppConfig) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.ModsDir != "" {
		target.ModsDir = source.ModsDir
	}
	if source.Lang != 0 {
		target.Lang = source.Lang
	}
	if len(source.EnabledMods) > 0 {
		target.EnabledMods = source.EnabledMods
	}
	if len(source.ScanPatterns) > 0 {
		target.ScanPatterns = source.ScanPatterns
	}

	if source.Server != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if source.Server.Port != 0 {
			target.Server.Port = source.Server.Port
		}
		if source.Server.Hostname != "" {
			target.Server.Hostname = source.Server.Hostname
		}
		if source.Server.CORS != nil {
			target.Server.CORS = source.Server.CORS
		}
	}

	if source.Log != nil {
		target.Log = source.Log
	}

	if source.Watcher != nil {
		target.Watcher = source.Watcher
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.AppConfig) {
	if dir := os.Getenv(EnvModsDir); dir != "" {
		config.ModsDir = dir
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		if config.Log == nil {
			config.Log = &types.LogConfig{}
		}
		config.Log.Level = level
	}

	if port := os.Getenv(EnvPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			if config.Server == nil {
				config.Server = &types.ServerConfig{}
			}
			config.Server.Port = p
		}
	}
}

// Save saves the configuration to a file.
func Save(config *types.AppConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// RefreshEnabledMods records the given mod names as the enabled set,
// sorted as Discover returns them.
func RefreshEnabledMods(config *types.AppConfig, names []string) {
	config.EnabledMods = append([]string(nil), names...)
}
