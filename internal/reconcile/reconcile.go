// Package reconcile audits a mod's document against the files it patches.
// Every check is read-only.
package reconcile

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/flexmod/flexmod/internal/fsio"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/marker"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/pkg/types"
)

// CheckMissing reports, per referenced file, the marker blocks whose start
// or end marker is absent from it. A reference that does not resolve to a
// file counts as missing too. Sliders are patched by attribute and never
// reported.
func CheckMissing(doc *types.Document, mod *project.Mod) map[string][]string {
	missing := make(map[string][]string)
	for i := range doc.Configs {
		b := &doc.Configs[i]
		if b.UniqueID == "" || b.Kind.IsSlider() {
			continue
		}
		for _, ref := range b.FileRefs() {
			path, ok := mod.Resolve(ref)
			if !ok {
				missing[ref] = append(missing[ref], b.UniqueID)
				continue
			}
			data, err := fsio.ReadFile(mod.FS, path)
			if err != nil {
				logging.Debug().Err(err).Str("path", path).Msg("cannot read file for marker check")
				missing[ref] = append(missing[ref], b.UniqueID)
				continue
			}
			if !marker.Has(marker.StyleFor(path), string(data), b.UniqueID) {
				missing[ref] = append(missing[ref], b.UniqueID)
			}
		}
	}
	return missing
}

// CheckExtra scans the files matching patterns under the FlexMod and Config
// directories for start markers whose id is not a declared marker block.
// Keys are slash separated paths relative to the scanned directory.
func CheckExtra(doc *types.Document, mod *project.Mod, patterns []string) map[string][]string {
	if len(patterns) == 0 {
		patterns = types.DefaultScanPatterns
	}
	known := doc.MarkerIDs()

	extra := make(map[string][]string)
	for _, dir := range mod.SearchDirs() {
		for _, rel := range scan(mod.FS, dir, patterns) {
			path := filepath.Join(dir, filepath.FromSlash(rel))
			data, err := fsio.ReadFile(mod.FS, path)
			if err != nil {
				logging.Debug().Err(err).Str("path", path).Msg("cannot read file for orphan scan")
				continue
			}
			for _, id := range marker.FindStartIDs(marker.StyleFor(path), string(data)) {
				if !known[id] {
					extra[rel] = append(extra[rel], id)
				}
			}
		}
	}
	return extra
}

// CheckNonexistent reports, per referenced file, the blocks of any kind that
// refer to a file which resolves nowhere. Empty references are always
// reported.
func CheckNonexistent(doc *types.Document, mod *project.Mod) map[string][]types.BlockRef {
	out := make(map[string][]types.BlockRef)
	for i := range doc.Configs {
		b := &doc.Configs[i]
		if b.UniqueID == "" {
			continue
		}
		ref := types.BlockRef{ID: b.UniqueID, DisplayName: b.DisplayName}
		if ref.DisplayName == "" {
			ref.DisplayName = b.UniqueID
		}
		for _, file := range b.FileRefs() {
			if _, ok := mod.Resolve(file); !ok {
				out[file] = append(out[file], ref)
			}
		}
	}
	return out
}

// scan returns the sorted, de-duplicated regular files under dir of base matching
// any of patterns. A missing dir yields nothing.
func scan(base afero.Fs, dir string, patterns []string) []string {
	info, err := base.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	fsys := afero.NewIOFS(afero.NewBasePathFs(base, dir))

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			logging.Warn().Err(err).Str("pattern", pattern).Msg("invalid scan pattern")
			continue
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			if st, err := fs.Stat(fsys, m); err != nil || !st.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}
