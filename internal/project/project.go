// Package project locates a mod on disk and resolves the file paths its
// document refers to.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/flexmod/flexmod/internal/storage"
)

const (
	// FlexModDirName is the directory holding FlexMod.json and player_settings.json.
	FlexModDirName = "FlexMod"
	// ConfigDirName is the sibling directory holding the game's data files.
	ConfigDirName = "Config"
	// DocumentKey is the storage key of FlexMod.json.
	DocumentKey = "FlexMod"
	// SettingsKey is the storage key of player_settings.json.
	SettingsKey = "player_settings"
)

var ErrNotMod = errors.New("not a FlexMod mod directory")

// Mod is a mod directory laid out as
//
//	<Dir>/FlexMod/FlexMod.json
//	<Dir>/FlexMod/player_settings.json
//	<Dir>/Config/...
type Mod struct {
	Name       string
	Dir        string
	FlexModDir string
	ConfigDir  string

	// FS holds the target files. The document store always stays on disk.
	FS afero.Fs

	store *storage.Storage
	mu    sync.Mutex
}

// cache keeps one Mod per directory so the per-mod lock is shared.
var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Mod)
)

// Open returns the mod at dir. dir may be the mod directory itself or its
// FlexMod directory. The FlexMod directory is created if it is missing.
func Open(dir string) (*Mod, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	osFs := afero.NewOsFs()
	if filepath.Base(dir) == FlexModDirName && !hasFlexModDir(osFs, dir) {
		dir = filepath.Dir(dir)
	}

	cacheMu.RLock()
	if m, ok := cache[dir]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	m, err := newMod(osFs, dir)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if existing, ok := cache[dir]; ok {
		return existing, nil
	}
	cache[dir] = m
	return m, nil
}

// OpenFs returns an uncached mod whose target files live on fsys. dir must
// be the mod directory and exist on fsys.
func OpenFs(fsys afero.Fs, dir string) (*Mod, error) {
	return newMod(fsys, filepath.Clean(dir))
}

func newMod(fsys afero.Fs, dir string) (*Mod, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open mod: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotMod, dir)
	}

	flexDir := filepath.Join(dir, FlexModDirName)
	if err := fsys.MkdirAll(flexDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", flexDir, err)
	}

	return &Mod{
		Name:       filepath.Base(dir),
		Dir:        dir,
		FlexModDir: flexDir,
		ConfigDir:  filepath.Join(dir, ConfigDirName),
		FS:         fsys,
		store:      storage.New(flexDir),
	}, nil
}

// Storage returns the store rooted at the FlexMod directory.
func (m *Mod) Storage() *storage.Storage {
	return m.store
}

// DocumentPath returns the path of FlexMod.json.
func (m *Mod) DocumentPath() string {
	return m.store.Path(DocumentKey)
}

// SettingsPath returns the path of player_settings.json.
func (m *Mod) SettingsPath() string {
	return m.store.Path(SettingsKey)
}

// HasDocument reports whether FlexMod.json exists.
func (m *Mod) HasDocument() bool {
	return isFile(afero.NewOsFs(), m.DocumentPath())
}

// Resolve maps a path from the document onto an existing file. It tries the
// FlexMod directory first, then the Config directory. The empty path never
// resolves.
func (m *Mod) Resolve(rel string) (string, bool) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", false
	}
	rel = filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))

	if filepath.IsAbs(rel) {
		return rel, isFile(m.FS, rel)
	}
	for _, base := range m.SearchDirs() {
		p := filepath.Join(base, rel)
		if isFile(m.FS, p) {
			return p, true
		}
	}
	return "", false
}

// SearchDirs returns the directories Resolve looks in, in order.
func (m *Mod) SearchDirs() []string {
	return []string{m.FlexModDir, m.ConfigDir}
}

// Exclusive runs fn while holding the mod's apply lock.
func (m *Mod) Exclusive(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

func hasFlexModDir(fsys afero.Fs, dir string) bool {
	info, err := fsys.Stat(filepath.Join(dir, FlexModDirName))
	return err == nil && info.IsDir()
}

func isFile(fsys afero.Fs, p string) bool {
	info, err := fsys.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// ClearCache clears the mod cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]*Mod)
}
