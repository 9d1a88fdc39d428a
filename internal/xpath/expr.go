package xpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrSyntax reports an expression the path language cannot parse.
	ErrSyntax = errors.New("invalid path expression")
	// ErrNotAttribute reports an expression that does not end in an attribute selector.
	ErrNotAttribute = errors.New("not an attribute selector")
)

// Axis selects which nodes a step looks at.
type Axis int

const (
	AxisChild Axis = iota
	AxisDescendant
)

// PredKind discriminates step predicates.
type PredKind int

const (
	PredHasAttr PredKind = iota
	PredAttrEquals
	PredPosition
	PredLast
	PredHasChild
)

// Pred is one bracketed step filter.
type Pred struct {
	Kind  PredKind
	Name  string
	Value string
	Pos   int
}

// Step is one slash separated segment of an element path.
type Step struct {
	Axis  Axis
	Name  string
	Preds []Pred
}

// Expr is a parsed path expression.
type Expr struct {
	Raw      string
	Absolute bool
	Steps    []Step
	// Attr is the trailing attribute selector without the @, empty when
	// the expression selects elements only.
	Attr string
}

// IsAttribute reports whether the expression ends in an attribute selector.
func (e *Expr) IsAttribute() bool {
	return e.Attr != ""
}

// String returns the expression as written.
func (e *Expr) String() string {
	return e.Raw
}

// IsAttributeSelector reports whether the last segment of expr starts with @.
func IsAttributeSelector(expr string) bool {
	parts := strings.Split(strings.TrimSpace(expr), "/")
	return strings.HasPrefix(parts[len(parts)-1], "@")
}

// ParseExpr parses expr. Supported forms are /a/b (absolute; a leading
// step naming the root element is dropped), a/b (relative to the root),
// a trailing /@attr, a bare @attr, the steps *, . and .., // for
// descendants, and the predicates [@a], [@a='v'], [n], [last()] and [tag].
func ParseExpr(expr string) (*Expr, error) {
	raw := strings.TrimSpace(expr)
	e := &Expr{Raw: raw}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	path := raw
	if IsAttributeSelector(path) {
		i := strings.LastIndex(path, "@")
		e.Attr = path[i+1:]
		path = path[:i]
		if !validName(e.Attr) {
			return nil, fmt.Errorf("%w: bad attribute name in %q", ErrSyntax, raw)
		}
		if path != "" {
			if !strings.HasSuffix(path, "/") {
				return nil, fmt.Errorf("%w: %q", ErrSyntax, raw)
			}
			path = path[:len(path)-1]
			if path == "" {
				// "/@attr" addresses the root the same way "@attr" does.
				e.Absolute = true
				return e, nil
			}
			if path == "/" {
				return nil, fmt.Errorf("%w: %q", ErrSyntax, raw)
			}
		}
	}
	if path == "" {
		return e, nil
	}

	if strings.HasPrefix(path, "/") {
		e.Absolute = true
		path = path[1:]
	}

	segments, err := splitSegments(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, raw, err)
	}

	axis := AxisChild
	for i, seg := range segments {
		if seg == "" {
			if axis == AxisDescendant || i == len(segments)-1 {
				return nil, fmt.Errorf("%w: %q", ErrSyntax, raw)
			}
			axis = AxisDescendant
			continue
		}
		step, err := parseStep(seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, raw, err)
		}
		step.Axis = axis
		e.Steps = append(e.Steps, step)
		axis = AxisChild
	}
	return e, nil
}

// splitSegments splits on slashes outside brackets and quotes.
func splitSegments(path string) ([]string, error) {
	var (
		segs  []string
		cur   strings.Builder
		depth int
		quote rune
	)
	for _, r := range path {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return nil, errors.New("unbalanced brackets")
			}
		case r == '/' && depth == 0:
			segs = append(segs, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if depth != 0 || quote != 0 {
		return nil, errors.New("unterminated predicate")
	}
	return append(segs, cur.String()), nil
}

func parseStep(seg string) (Step, error) {
	name := seg
	rest := ""
	if i := strings.IndexByte(seg, '['); i >= 0 {
		name, rest = seg[:i], seg[i:]
	}
	switch {
	case name == "*", name == ".", name == "..":
	case validName(name):
	default:
		return Step{}, fmt.Errorf("bad step %q", seg)
	}
	if rest != "" && (name == "." || name == "..") {
		return Step{}, fmt.Errorf("predicates on %q", name)
	}

	step := Step{Name: name}
	for rest != "" {
		end := closingBracket(rest)
		if end < 0 {
			return Step{}, fmt.Errorf("bad predicate in %q", seg)
		}
		pred, err := parsePred(strings.TrimSpace(rest[1:end]))
		if err != nil {
			return Step{}, err
		}
		step.Preds = append(step.Preds, pred)
		rest = rest[end+1:]
	}
	return step, nil
}

// closingBracket returns the index of the bracket closing s[0], or -1.
func closingBracket(s string) int {
	if s == "" || s[0] != '[' {
		return -1
	}
	var quote byte
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

func parsePred(body string) (Pred, error) {
	switch {
	case body == "last()":
		return Pred{Kind: PredLast}, nil
	case strings.HasPrefix(body, "@"):
		name, value, hasValue := strings.Cut(body[1:], "=")
		name = strings.TrimSpace(name)
		if !validName(name) {
			return Pred{}, fmt.Errorf("bad attribute predicate [%s]", body)
		}
		if !hasValue {
			return Pred{Kind: PredHasAttr, Name: name}, nil
		}
		v, ok := unquote(strings.TrimSpace(value))
		if !ok {
			return Pred{}, fmt.Errorf("bad attribute value in [%s]", body)
		}
		return Pred{Kind: PredAttrEquals, Name: name, Value: v}, nil
	}

	if n, err := strconv.Atoi(body); err == nil {
		if n < 1 {
			return Pred{}, fmt.Errorf("position must be positive in [%s]", body)
		}
		return Pred{Kind: PredPosition, Pos: n}, nil
	}
	if validName(body) {
		return Pred{Kind: PredHasChild, Name: body}, nil
	}
	return Pred{}, fmt.Errorf("unsupported predicate [%s]", body)
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// validName accepts XML names, including a namespace prefix.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == ':' || r >= 0x80:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
