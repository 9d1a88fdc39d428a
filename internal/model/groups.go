package model

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/flexmod/flexmod/pkg/types"
)

var (
	ErrGroupExists    = errors.New("group already exists")
	ErrGroupNotFound  = errors.New("group not found")
	ErrGroupProtected = errors.New("the default group cannot be removed or renamed")
	ErrGroupEmptyName = errors.New("group name is empty")
)

// EnsureDefaultGroup inserts the default group at index 0 if it is missing.
// Returns true if the document was changed.
func EnsureDefaultGroup(doc *types.Document) bool {
	if doc.Group(types.DefaultGroupName) != nil {
		return false
	}
	doc.Groups = append([]types.Group{{Name: types.DefaultGroupName}}, doc.Groups...)
	return true
}

// DedupeGroups drops groups whose name was already seen, keeping the first.
// Returns true if the document was changed.
func DedupeGroups(doc *types.Document) bool {
	seen := make(map[string]bool, len(doc.Groups))
	out := doc.Groups[:0]
	for _, g := range doc.Groups {
		if seen[g.Name] {
			continue
		}
		seen[g.Name] = true
		out = append(out, g)
	}
	changed := len(out) != len(doc.Groups)
	doc.Groups = out
	return changed
}

// AddGroup appends a new group with a unique name.
func AddGroup(doc *types.Document, name, desc string) error {
	if name == "" {
		return ErrGroupEmptyName
	}
	if doc.Group(name) != nil {
		return fmt.Errorf("%w: %s", ErrGroupExists, name)
	}
	doc.Groups = append(doc.Groups, types.Group{Name: name, Desc: desc})
	return nil
}

// RemoveGroup deletes a group and moves its blocks to the default group.
func RemoveGroup(doc *types.Document, name string) error {
	if name == types.DefaultGroupName {
		return ErrGroupProtected
	}
	for i, g := range doc.Groups {
		if g.Name != name {
			continue
		}
		doc.Groups = append(doc.Groups[:i], doc.Groups[i+1:]...)
		for _, b := range doc.BlocksInGroup(name) {
			b.GroupName = types.DefaultGroupName
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
}

// UpdateGroup renames a group and updates its description.
// Blocks assigned to the old name follow the rename.
func UpdateGroup(doc *types.Document, name, newName, newDesc string) error {
	g := doc.Group(name)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	if g.IsDefault() {
		return ErrGroupProtected
	}
	if newName == "" {
		return ErrGroupEmptyName
	}
	if newName != name && doc.Group(newName) != nil {
		return fmt.Errorf("%w: %s", ErrGroupExists, newName)
	}
	for _, b := range doc.BlocksInGroup(name) {
		b.GroupName = newName
	}
	g.Name = newName
	g.Desc = newDesc
	return nil
}

// NewGroupName returns an unused "NewGroup_xxxxxx" name.
func NewGroupName(doc *types.Document) string {
	for {
		id := ulid.Make().String()
		name := "NewGroup_" + id[len(id)-6:]
		if doc.Group(name) == nil {
			return name
		}
	}
}
