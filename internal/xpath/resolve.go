package xpath

import "sort"

// Select returns the elements e's element path resolves to, in document
// order. The attribute selector, if any, is not consulted.
func (e *Expr) Select(root *Node) []*Node {
	steps := e.Steps
	if e.Absolute && len(steps) > 0 {
		first := steps[0]
		if first.Axis == AxisChild && first.Name == root.Name && len(first.Preds) == 0 {
			steps = steps[1:]
		}
	}

	ctx := []*Node{root}
	for _, step := range steps {
		var next []*Node
		for _, n := range ctx {
			next = append(next, step.apply(n)...)
		}
		ctx = uniqueInOrder(next)
		if len(ctx) == 0 {
			return nil
		}
	}
	return ctx
}

// Carrying returns the selected elements that carry e's attribute.
func (e *Expr) Carrying(root *Node) []*Node {
	if !e.IsAttribute() {
		return nil
	}
	var out []*Node
	for _, n := range e.Select(root) {
		if _, ok := n.Attr(e.Attr); ok {
			out = append(out, n)
		}
	}
	return out
}

func (s Step) apply(n *Node) []*Node {
	var cands []*Node
	switch s.Name {
	case ".":
		cands = []*Node{n}
	case "..":
		if n.Parent != nil {
			cands = []*Node{n.Parent}
		}
	default:
		var pool []*Node
		if s.Axis == AxisDescendant {
			pool = n.descendants(nil)
		} else {
			pool = n.Elements()
		}
		for _, c := range pool {
			if s.Name == "*" || c.Name == s.Name {
				cands = append(cands, c)
			}
		}
	}
	if s.Axis == AxisDescendant && (s.Name == "." || s.Name == "..") {
		// ".//." and ".//.." walk every descendant.
		var out []*Node
		for _, d := range n.descendants(nil) {
			if s.Name == "." {
				out = append(out, d)
			} else if d.Parent != nil {
				out = append(out, d.Parent)
			}
		}
		cands = out
	}

	for _, p := range s.Preds {
		cands = p.filter(cands)
	}
	return cands
}

func (p Pred) filter(nodes []*Node) []*Node {
	switch p.Kind {
	case PredPosition, PredLast:
		// Positions count among siblings matched by the same step.
		var out []*Node
		for _, group := range byParent(nodes) {
			i := p.Pos - 1
			if p.Kind == PredLast {
				i = len(group) - 1
			}
			if i >= 0 && i < len(group) {
				out = append(out, group[i])
			}
		}
		return out
	}

	var out []*Node
	for _, n := range nodes {
		if p.match(n) {
			out = append(out, n)
		}
	}
	return out
}

func (p Pred) match(n *Node) bool {
	switch p.Kind {
	case PredHasAttr:
		_, ok := n.Attr(p.Name)
		return ok
	case PredAttrEquals:
		v, ok := n.Attr(p.Name)
		return ok && v == p.Value
	case PredHasChild:
		for _, c := range n.Elements() {
			if c.Name == p.Name {
				return true
			}
		}
	}
	return false
}

func byParent(nodes []*Node) [][]*Node {
	index := make(map[*Node]int)
	var groups [][]*Node
	for _, n := range nodes {
		i, ok := index[n.Parent]
		if !ok {
			i = len(groups)
			index[n.Parent] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], n)
	}
	return groups
}

func uniqueInOrder(nodes []*Node) []*Node {
	seen := make(map[*Node]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
