package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/flexmod/flexmod/pkg/types"
)

var ErrModNotFound = errors.New("mod not found")

// Service lists and opens the mods under a mods directory.
type Service struct {
	modsDir string
	enabled map[string]bool
}

// NewService creates a mod service. enabled restricts which mods are
// reported as enabled; an empty list enables every discovered mod.
func NewService(modsDir string, enabled []string) *Service {
	s := &Service{modsDir: modsDir}
	if len(enabled) > 0 {
		s.enabled = make(map[string]bool, len(enabled))
		for _, name := range enabled {
			s.enabled[name] = true
		}
	}
	return s
}

// ModsDir returns the directory the service scans.
func (s *Service) ModsDir() string {
	return s.modsDir
}

// List returns every sub-directory of the mods dir that carries a
// FlexMod/FlexMod.json, sorted by name.
func (s *Service) List(ctx context.Context) ([]types.ModInfo, error) {
	names, err := Discover(s.modsDir)
	if err != nil {
		return nil, err
	}

	mods := make([]types.ModInfo, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(s.modsDir, name)
		info := types.ModInfo{
			Name:    name,
			Dir:     dir,
			Enabled: s.enabled == nil || s.enabled[name],
		}
		if st, err := os.Stat(filepath.Join(dir, FlexModDirName, SettingsKey+".json")); err == nil {
			info.HasSettings = true
			info.Time.Modified = st.ModTime().UnixMilli()
		}
		if st, err := os.Stat(filepath.Join(dir, FlexModDirName, DocumentKey+".json")); err == nil {
			if m := st.ModTime().UnixMilli(); m > info.Time.Modified {
				info.Time.Modified = m
			}
		}
		mods = append(mods, info)
	}
	return mods, nil
}

// Get opens the mod with the given directory name.
func (s *Service) Get(ctx context.Context, name string) (*Mod, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %q", ErrModNotFound, name)
	}
	dir := filepath.Join(s.modsDir, name)
	if !isFile(afero.NewOsFs(), filepath.Join(dir, FlexModDirName, DocumentKey+".json")) {
		return nil, fmt.Errorf("%w: %s", ErrModNotFound, name)
	}
	return Open(dir)
}

// Discover returns the names of the sub-directories of modsDir that
// contain FlexMod/FlexMod.json.
func Discover(modsDir string) ([]string, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read mods dir: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if isFile(afero.NewOsFs(), filepath.Join(modsDir, e.Name(), FlexModDirName, DocumentKey+".json")) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
