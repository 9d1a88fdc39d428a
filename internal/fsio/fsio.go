// Package fsio reads and replaces whole target files on an afero.Fs, and
// builds the copy-on-write layer dry runs write into.
package fsio

import (
	"os"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// ReadFile reads the whole file at path.
func ReadFile(fsys afero.Fs, path string) ([]byte, error) {
	return afero.ReadFile(fsys, path)
}

// WriteFile replaces the content of an existing file, keeping its mode.
// Missing files are an error; patching never creates files.
func WriteFile(fsys afero.Fs, path string, data []byte) error {
	info, err := fsys.Stat(path)
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, info.Mode().Perm())
}

// Overlay is a copy-on-write view of a base filesystem. Reads fall through
// to the base until a file is written; writes land in memory only. Every
// written path keeps the base content it had before the first write.
type Overlay struct {
	afero.Fs
	base afero.Fs

	mu       sync.Mutex
	original map[string][]byte
}

// NewOverlay layers an in-memory filesystem over a read-only view of base.
func NewOverlay(base afero.Fs) *Overlay {
	return &Overlay{
		Fs:       afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewMemMapFs()),
		base:     base,
		original: make(map[string][]byte),
	}
}

const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC

// OpenFile records the base content of name before its first write.
func (o *Overlay) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&writeFlags != 0 {
		if err := o.remember(name); err != nil {
			return nil, err
		}
	}
	return o.Fs.OpenFile(name, flag, perm)
}

// Create records the base content of name like OpenFile does.
func (o *Overlay) Create(name string) (afero.File, error) {
	if err := o.remember(name); err != nil {
		return nil, err
	}
	return o.Fs.Create(name)
}

func (o *Overlay) remember(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.original[name]; ok {
		return nil
	}
	data, err := afero.ReadFile(o.base, name)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	o.original[name] = data
	return nil
}

// Change is a file whose content differs from the base.
type Change struct {
	Path   string
	Before []byte
	After  []byte
}

// Changes returns the written files whose content differs from the base,
// sorted by path.
func (o *Overlay) Changes() []Change {
	o.mu.Lock()
	paths := make([]string, 0, len(o.original))
	for p := range o.original {
		paths = append(paths, p)
	}
	o.mu.Unlock()
	sort.Strings(paths)

	var out []Change
	for _, p := range paths {
		after, err := afero.ReadFile(o.Fs, p)
		if err != nil {
			continue
		}
		o.mu.Lock()
		before := o.original[p]
		o.mu.Unlock()
		if string(before) == string(after) {
			continue
		}
		out = append(out, Change{Path: p, Before: before, After: after})
	}
	return out
}
