// Package marker patches the region between a block's start and end marker
// comments in a target file.
package marker

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/flexmod/flexmod/internal/fsio"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/xpath"
	"github.com/flexmod/flexmod/pkg/types"
)

// ErrUnbalanced reports a file holding only one of a block's two markers.
var ErrUnbalanced = errors.New("unbalanced markers")

// ErrSelfClosingRoot reports a markup file whose root element has no body
// to insert a region into.
var ErrSelfClosingRoot = errors.New("root element is self-closing")

// Style is the comment syntax markers are written in.
type Style struct {
	Open  string
	Close string
}

var (
	XMLStyle   = Style{Open: "<!-- ", Close: " -->"}
	DashStyle  = Style{Open: "-- "}
	SemiStyle  = Style{Open: "; "}
	HashStyle  = Style{Open: "# "}
	SlashStyle = Style{Open: "// "}
)

var styleByExt = map[string]Style{
	".lua":   DashStyle,
	".sql":   DashStyle,
	".ini":   SemiStyle,
	".cfg":   SemiStyle,
	".toml":  HashStyle,
	".yaml":  HashStyle,
	".yml":   HashStyle,
	".py":    HashStyle,
	".js":    SlashStyle,
	".json5": SlashStyle,
}

// StyleFor picks the comment style from a file's extension. Anything not
// listed is treated as markup.
func StyleFor(path string) Style {
	if s, ok := styleByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return s
	}
	return XMLStyle
}

// IsMarkup reports whether the style is the block-comment markup style.
func (s Style) IsMarkup() bool {
	return s == XMLStyle
}

// Start returns the start marker line for id.
func (s Style) Start(id string) string {
	return s.Open + "FlexMod__" + id + "__Start" + s.Close
}

// End returns the end marker line for id.
func (s Style) End(id string) string {
	return s.Open + "FlexMod__" + id + "__End" + s.Close
}

// Block returns the full replacement for id's region.
func (s Style) Block(id, code string) string {
	return s.Start(id) + "\n" + strings.TrimSpace(code) + "\n" + s.End(id)
}

func (s Style) regionPattern(id string) *regexp.Regexp {
	return regexp.MustCompile("(?s)" + regexp.QuoteMeta(s.Start(id)) + ".*?" + regexp.QuoteMeta(s.End(id)))
}

func (s Style) startPattern() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(s.Open) + `FlexMod__(.+?)__Start` + regexp.QuoteMeta(s.Close))
}

// Has reports whether content holds both of id's markers.
func Has(s Style, content, id string) bool {
	return strings.Contains(content, s.Start(id)) && strings.Contains(content, s.End(id))
}

// FindStartIDs returns the ids of every start marker in content, in order
// of appearance. Duplicates are kept.
func FindStartIDs(s Style, content string) []string {
	var ids []string
	for _, m := range s.startPattern().FindAllStringSubmatch(content, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// Patch replaces the region of every start/end pair of id with code. When
// the file has no markers for id, the region is inserted on its own lines
// right before the closing tag of a markup file's root element, or appended
// to files without a parsable root. Applying the same code twice yields the
// same content.
func Patch(s Style, content, id, code string) (string, error) {
	hasStart := strings.Contains(content, s.Start(id))
	hasEnd := strings.Contains(content, s.End(id))

	switch {
	case hasStart && hasEnd:
		return s.regionPattern(id).ReplaceAllLiteralString(content, s.Block(id, code)), nil
	case hasStart || hasEnd:
		return content, fmt.Errorf("%w for %s", ErrUnbalanced, id)
	}

	block := s.Block(id, code) + "\n"
	if s.IsMarkup() {
		if root, err := xpath.Parse([]byte(content)); err == nil && root.Closed {
			if root.SelfClosing {
				return content, fmt.Errorf("%w: <%s/>", ErrSelfClosingRoot, root.Name)
			}
			return insertBefore(content, int(root.Close), block), nil
		}
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + block, nil
}

// insertBefore puts block on its own lines ahead of the tag at offset i.
func insertBefore(content string, i int, block string) string {
	lineStart := strings.LastIndex(content[:i], "\n") + 1
	if strings.TrimSpace(content[lineStart:i]) == "" {
		return content[:lineStart] + block + content[lineStart:]
	}
	return content[:i] + "\n" + block + content[i:]
}

// ApplyFile patches the file at path through fsys. The file is written only
// when its content changes. Failures become a skipped outcome.
func ApplyFile(fsys afero.Fs, path, id, code string) types.Outcome {
	out := types.Outcome{BlockID: id, Path: path}

	data, err := fsio.ReadFile(fsys, path)
	if err != nil {
		logging.Debug().Err(err).Str("path", path).Str("block", id).Msg("marker target unreadable")
		return out.Skipped("read failed: " + err.Error())
	}

	content := string(data)
	patched, err := Patch(StyleFor(path), content, id, code)
	if err != nil {
		logging.Debug().Err(err).Str("path", path).Msg("marker patch skipped")
		return out.Skipped(err.Error())
	}

	if patched == content {
		out.Status = types.StatusUnchanged
		return out
	}

	if err := fsio.WriteFile(fsys, path, []byte(patched)); err != nil {
		logging.Debug().Err(err).Str("path", path).Str("block", id).Msg("marker target unwritable")
		return out.Skipped("write failed: " + err.Error())
	}

	out.Status = types.StatusApplied
	return out
}
