package types

import "strings"

// Group is a named partition of blocks.
type Group struct {
	Name string `json:"groupName"`
	Desc string `json:"groupDesc"`
}

// IsDefault reports whether g is the undeletable default group.
func (g Group) IsDefault() bool {
	return g.Name == DefaultGroupName
}

// Document is the content of FlexMod.json.
type Document struct {
	Groups  []Group `json:"groups"`
	Configs []Block `json:"configs"`
}

// NewDocument returns an empty document holding only the default group.
func NewDocument() *Document {
	return &Document{
		Groups:  []Group{{Name: DefaultGroupName}},
		Configs: []Block{},
	}
}

// Block returns the block with the given id, or nil.
func (d *Document) Block(id string) *Block {
	for i := range d.Configs {
		if d.Configs[i].UniqueID == id {
			return &d.Configs[i]
		}
	}
	return nil
}

// BlockFold returns the first block whose id equals id ignoring case.
func (d *Document) BlockFold(id string) *Block {
	for i := range d.Configs {
		if strings.EqualFold(d.Configs[i].UniqueID, id) {
			return &d.Configs[i]
		}
	}
	return nil
}

// Group returns the group with the given name, or nil.
func (d *Document) Group(name string) *Group {
	for i := range d.Groups {
		if d.Groups[i].Name == name {
			return &d.Groups[i]
		}
	}
	return nil
}

// BlocksInGroup returns the blocks assigned to a group in declaration order.
func (d *Document) BlocksInGroup(name string) []*Block {
	var out []*Block
	for i := range d.Configs {
		if d.Configs[i].GroupName == name {
			out = append(out, &d.Configs[i])
		}
	}
	return out
}

// MarkerIDs returns the ids of blocks patched through marker comments.
func (d *Document) MarkerIDs() map[string]bool {
	ids := make(map[string]bool)
	for i := range d.Configs {
		b := &d.Configs[i]
		if b.UniqueID != "" && !b.Kind.IsSlider() {
			ids[b.UniqueID] = true
		}
	}
	return ids
}
