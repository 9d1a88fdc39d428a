package xpath

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// ErrParse reports a target file that holds no usable element tree.
var ErrParse = errors.New("unparsable markup")

// NodeKind discriminates tree nodes.
type NodeKind int

const (
	ElementNode NodeKind = iota
	CommentNode
)

// Attr is an attribute as written, with the prefix kept in the name.
type Attr struct {
	Name  string
	Value string
}

// Node is an element or comment of a parsed file. Elements remember the
// byte span of their opening tag in the source and, once closed, the offset
// of their closing tag.
type Node struct {
	Kind     NodeKind
	Name     string
	Attrs    []Attr
	Text     string
	Parent   *Node
	Children []*Node

	Start int64
	End   int64

	Closed      bool
	SelfClosing bool
	Close       int64
}

// Attr returns the value of the first attribute called name.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Elements returns the element children of n in document order.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Comments returns the comment children of n.
func (n *Node) Comments() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == CommentNode {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) descendants(out []*Node) []*Node {
	for _, c := range n.Children {
		if c.Kind != ElementNode {
			continue
		}
		out = append(out, c)
		out = c.descendants(out)
	}
	return out
}

// Parse builds the element tree of data. Comments are kept as nodes; text
// content is dropped. Parsing is lenient about undeclared entities and
// mismatched end tags, since game data files are rarely strict XML.
func Parse(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	// Only tags and attribute names are interpreted, so any declared
	// encoding is read as raw bytes and offsets stay byte offsets.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		root  *Node
		stack []*Node
	)
	for {
		start := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if root != nil && len(stack) == 0 {
				// Trailing junk after the root element.
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{
				Kind:  ElementNode,
				Name:  qualified(t.Name),
				Start: start,
				End:   dec.InputOffset(),
			}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					continue
				}
				root = n
			} else {
				n.Parent = stack[len(stack)-1]
				n.Parent.Children = append(n.Parent.Children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			name := qualified(t.Name)
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].Name == name {
					n := stack[i]
					n.Closed = true
					n.Close = start
					// <a/> yields an end token without consuming input.
					n.SelfClosing = start == dec.InputOffset()
					stack = stack[:i]
					break
				}
			}

		case xml.Comment:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{
				Kind:   CommentNode,
				Text:   string(t),
				Parent: parent,
				Start:  start,
				End:    dec.InputOffset(),
			})
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParse)
	}
	return root, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
