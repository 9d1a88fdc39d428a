package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// capture points the global logger at a buffer for the rest of the test.
func capture(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	Init(cfg)
	t.Cleanup(func() { Init(DefaultConfig()) })
	return &buf
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, InfoLevel, cfg.Level)
	assert.Equal(t, os.Stderr, cfg.Output)
	assert.False(t, cfg.Pretty)
	assert.False(t, cfg.LogToFile)
	assert.Equal(t, "/tmp", cfg.LogDir)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		" INFO ":  InfoLevel,
		"Warning": WarnLevel,
		"WARN":    WarnLevel,
		"error":   ErrorLevel,
		"FATAL":   FatalLevel,
		"verbose": InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, Config{Level: WarnLevel})

	Debug().Msg("marker target unreadable")
	Info().Msg("apply completed")
	Warn().Msg("invalid scan pattern")
	Error().Msg("apply failed")

	got := lines(buf)
	require.Len(t, got, 2)
	assert.Equal(t, "invalid scan pattern", gjson.Get(got[0], "message").String())
	assert.Equal(t, "warn", gjson.Get(got[0], "level").String())
	assert.Equal(t, "apply failed", gjson.Get(got[1], "message").String())
}

func TestPatchFields(t *testing.T) {
	buf := capture(t, Config{Level: DebugLevel})

	Info().
		Str("mod", "Lamp").
		Bool("dryRun", true).
		Int("applied", 2).
		Int("skipped", 1).
		Msg("apply completed")
	Debug().
		Str("path", "Config/lamp.xml").
		Str("block", "Light").
		Msg("marker patch skipped")

	got := lines(buf)
	require.Len(t, got, 2)

	summary := gjson.Parse(got[0])
	assert.Equal(t, "Lamp", summary.Get("mod").String())
	assert.True(t, summary.Get("dryRun").Bool())
	assert.Equal(t, int64(2), summary.Get("applied").Int())
	assert.True(t, summary.Get("time").Exists())

	skip := gjson.Parse(got[1])
	assert.Equal(t, "debug", skip.Get("level").String())
	assert.Equal(t, "Light", skip.Get("block").String())
	assert.Equal(t, "Config/lamp.xml", skip.Get("path").String())
}

func TestWith(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel})

	modLog := With().Str("mod", "Lamp").Logger()
	modLog.Info().Str("block", "Hp").Msg("settings saved")

	line := gjson.Parse(strings.TrimSpace(buf.String()))
	assert.Equal(t, "Lamp", line.Get("mod").String())
	assert.Equal(t, "Hp", line.Get("block").String())
}

func TestPretty(t *testing.T) {
	buf := capture(t, Config{Level: InfoLevel, Pretty: true})

	Info().Str("mod", "Lamp").Msg("watching")

	out := buf.String()
	assert.Contains(t, out, "watching")
	assert.Contains(t, out, "Lamp")
	assert.False(t, gjson.Valid(strings.TrimSpace(out)))
}

func TestLogToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "logs")
	buf := capture(t, Config{Level: InfoLevel, LogToFile: true, LogDir: dir})

	path := GetLogFilePath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "flexmod-"))
	assert.Equal(t, ".log", filepath.Ext(path))

	Info().Str("mod", "Lamp").Msg("apply completed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", gjson.Get(strings.TrimSpace(string(data)), "mod").String())
	assert.Contains(t, buf.String(), "apply completed")
}

func TestLogToFile_UnusableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	buf := capture(t, Config{Level: InfoLevel, LogToFile: true, LogDir: filepath.Join(blocker, "logs")})

	assert.Empty(t, GetLogFilePath())
	assert.Contains(t, buf.String(), "logging: create log dir")

	Info().Msg("still logging")
	assert.Contains(t, buf.String(), "still logging")
}

func TestInit_ClosesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	capture(t, Config{Level: InfoLevel, LogToFile: true, LogDir: dir})
	first := GetLogFilePath()
	require.NotEmpty(t, first)

	fileMu.Lock()
	previous := logFile
	fileMu.Unlock()

	capture(t, Config{Level: InfoLevel})
	assert.Empty(t, GetLogFilePath())

	_, err := previous.Write([]byte("late\n"))
	assert.Error(t, err, "the file of the first Init should be closed")
}

func TestClose(t *testing.T) {
	capture(t, Config{Level: InfoLevel, LogToFile: true, LogDir: t.TempDir()})
	require.NotEmpty(t, GetLogFilePath())

	Close()
	assert.Empty(t, GetLogFilePath())

	// A second Close is a no-op.
	Close()
	assert.Empty(t, GetLogFilePath())
}

func TestInit_FillsDefaults(t *testing.T) {
	Init(Config{Level: ErrorLevel})
	t.Cleanup(func() { Init(DefaultConfig()) })

	assert.Equal(t, ErrorLevel, Logger.GetLevel())
	assert.Empty(t, GetLogFilePath())
}
