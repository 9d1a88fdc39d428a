package xpath

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/flexmod/flexmod/internal/fsio"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/pkg/types"
)

// ErrUnresolved reports an attribute path that matched no element carrying
// the attribute.
var ErrUnresolved = errors.New("path not resolved")

// ErrTagNotFound reports a resolved element whose opening tag could not be
// located in the file text, so its attribute could not be rewritten.
var ErrTagNotFound = errors.New("opening tag not found in text")

// ValidateAttribute reports whether expr is an attribute selector that at
// least one element of data carries.
func ValidateAttribute(data []byte, expr string) bool {
	e, err := ParseExpr(expr)
	if err != nil || !e.IsAttribute() {
		return false
	}
	root, err := Parse(data)
	if err != nil {
		return false
	}
	return len(e.Carrying(root)) > 0
}

// Patch sets the attribute expr addresses to value on every resolved
// element. The tree only locates the elements; the edit itself replaces
// the value bytes in content so everything else stays as written. If any
// element's opening tag cannot be matched in the text, content is returned
// unchanged with ErrTagNotFound.
func Patch(content, expr, value string) (string, error) {
	e, err := ParseExpr(expr)
	if err != nil {
		return content, err
	}
	if !e.IsAttribute() {
		return content, ErrNotAttribute
	}
	root, err := Parse([]byte(content))
	if err != nil {
		return content, err
	}
	nodes := e.Carrying(root)
	if len(nodes) == 0 {
		return content, ErrUnresolved
	}

	// Last to first, so earlier spans keep their offsets.
	patched := content
	for i := len(nodes) - 1; i >= 0; i-- {
		var ok bool
		if patched, ok = replaceAttr(patched, nodes[i], e.Attr, value); !ok {
			return content, fmt.Errorf("%w: <%s> for %s", ErrTagNotFound, nodes[i].Name, expr)
		}
	}
	return patched, nil
}

func replaceAttr(content string, n *Node, attr, value string) (string, bool) {
	re, err := tagPattern(n, attr)
	if err != nil {
		logging.Debug().Err(err).Str("tag", n.Name).Msg("cannot build tag pattern")
		return content, false
	}

	var base int
	var loc []int
	if n.End <= int64(len(content)) && n.Start < n.End {
		span := content[n.Start:n.End]
		if loc = re.FindStringSubmatchIndex(span); loc != nil {
			base = int(n.Start)
		}
	}
	if loc == nil {
		all := re.FindAllStringSubmatchIndex(content, 2)
		if len(all) != 1 {
			logging.Debug().Str("tag", n.Name).Str("attr", attr).Int("matches", len(all)).Msg("opening tag not found in text")
			return content, false
		}
		loc = all[0]
	}

	quote := byte('"')
	start, end := loc[2], loc[3]
	if start < 0 {
		quote = '\''
		start, end = loc[4], loc[5]
	}
	start += base
	end += base
	return content[:start] + escapeValue(value, quote) + content[end:], true
}

// tagPattern matches n's opening tag by reproducing every attribute in
// order and captures the value of the first attr, in group 1 for double
// quotes or group 2 for single quotes.
func tagPattern(n *Node, attr string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`<\s*`)
	b.WriteString(regexp.QuoteMeta(n.Name))

	captured := false
	for _, a := range n.Attrs {
		b.WriteString(`\s+`)
		b.WriteString(regexp.QuoteMeta(a.Name))
		b.WriteString(`\s*=\s*`)
		if a.Name == attr && !captured {
			captured = true
			b.WriteString(`(?:"([^"]*)"|'([^']*)')`)
			continue
		}
		alts := valueAlternatives(a.Value)
		b.WriteString(`(?:"(?:` + alts + `)"|'(?:` + alts + `)')`)
	}
	b.WriteString(`\s*/?>`)
	return regexp.Compile(b.String())
}

// valueAlternatives matches a decoded attribute value written either
// literally or entity-escaped.
func valueAlternatives(v string) string {
	literal := regexp.QuoteMeta(v)
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(v))
	escaped := regexp.QuoteMeta(buf.String())
	if escaped == literal {
		return literal
	}
	return literal + "|" + escaped
}

func escapeValue(v string, quote byte) string {
	v = strings.ReplaceAll(v, "&", "&amp;")
	v = strings.ReplaceAll(v, "<", "&lt;")
	if quote == '"' {
		return strings.ReplaceAll(v, `"`, "&quot;")
	}
	return strings.ReplaceAll(v, "'", "&apos;")
}

// UpdateFile applies every expression in exprs to the file at path with the
// same value, writing the file once at the end if it changed. Each
// expression gets its own outcome and a failing one never blocks the rest.
func UpdateFile(fsys afero.Fs, path, id string, exprs []string, value string) []types.Outcome {
	outcomes := make([]types.Outcome, 0, len(exprs))
	newOutcome := func(expr string) types.Outcome {
		return types.Outcome{BlockID: id, Path: path, Expr: expr, Value: value}
	}

	data, err := fsio.ReadFile(fsys, path)
	if err != nil {
		logging.Debug().Err(err).Str("path", path).Str("block", id).Msg("xpath target unreadable")
		for _, expr := range exprs {
			outcomes = append(outcomes, newOutcome(expr).Skipped("read failed: "+err.Error()))
		}
		return outcomes
	}

	content := string(data)
	var applied []int
	for _, expr := range exprs {
		out := newOutcome(expr)
		patched, err := Patch(content, expr, value)
		switch {
		case err != nil:
			logging.Debug().Err(err).Str("path", path).Str("xpath", expr).Msg("xpath skipped")
			out = out.Skipped(err.Error())
		case patched == content:
			out.Status = types.StatusUnchanged
		default:
			content = patched
			out.Status = types.StatusApplied
			applied = append(applied, len(outcomes))
		}
		outcomes = append(outcomes, out)
	}

	if len(applied) == 0 {
		return outcomes
	}
	if err := fsio.WriteFile(fsys, path, []byte(content)); err != nil {
		logging.Debug().Err(err).Str("path", path).Str("block", id).Msg("xpath target unwritable")
		for _, i := range applied {
			outcomes[i] = outcomes[i].Skipped("write failed: " + err.Error())
		}
	}
	return outcomes
}
