package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// BlockKind is the configType discriminator of a block.
type BlockKind string

const (
	KindSwitch      BlockKind = "boolConfig"
	KindOption      BlockKind = "selectConfig"
	KindIntSlider   BlockKind = "intSlider"
	KindFloatSlider BlockKind = "floatSlider"
)

// ParseBlockKind maps a wire configType onto a BlockKind.
// Legacy slider names are normalized; unknown names are kept verbatim.
func ParseBlockKind(s string) BlockKind {
	switch s {
	case "intSliderConfig":
		return KindIntSlider
	case "floatSliderConfig":
		return KindFloatSlider
	}
	return BlockKind(s)
}

// Known reports whether the kind is one of the four supported kinds.
func (k BlockKind) Known() bool {
	switch k {
	case KindSwitch, KindOption, KindIntSlider, KindFloatSlider:
		return true
	}
	return false
}

// IsSlider reports whether blocks of this kind are patched by attribute.
func (k BlockKind) IsSlider() bool {
	return k == KindIntSlider || k == KindFloatSlider
}

// UsesMarkers reports whether blocks of this kind are patched through marker comments.
func (k BlockKind) UsesMarkers() bool {
	return k == KindSwitch || k == KindOption
}

// Label returns a human readable kind name.
func (k BlockKind) Label() string {
	switch k {
	case KindSwitch:
		return "Boolean"
	case KindOption:
		return "Dropdown"
	case KindIntSlider:
		return "Integer Slider"
	case KindFloatSlider:
		return "Float Slider"
	}
	return string(k)
}

// ExecUnit is a code fragment injected between the marker comments of one file.
type ExecUnit struct {
	FilePath string `json:"filePath"`
	Code     string `json:"execCode"`
}

// OptionItem is one selectable value of a switch or dropdown block.
type OptionItem struct {
	Key       string     `json:"optionKey"`
	ExecUnits []ExecUnit `json:"execUnits"`
}

// XpathTarget is a file plus the attribute paths a slider writes to.
type XpathTarget struct {
	FilePath string   `json:"filePath"`
	Exprs    []string `json:"xpath"`
}

// Range holds slider bounds.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// Block is a configurable unit of a mod.
type Block struct {
	UniqueID    string
	DisplayName string
	GroupName   string
	Desc        string
	Kind        BlockKind

	// Default is bool for switches, the option key for dropdowns and a float64 for sliders.
	Default Value

	// Options is used by switches (always "true" then "false") and dropdowns.
	Options []OptionItem

	// Range and Targets are used by sliders.
	Range   Range
	Targets []XpathTarget

	// FilePath is the legacy block-level file reference, nil when absent.
	FilePath *string
}

// DefaultGroupName is the name of the undeletable group.
const DefaultGroupName = "Default"

// blockJSON is the FlexMod.json representation of a block.
type blockJSON struct {
	UniqueID    string          `json:"uniqueId"`
	DisplayName string          `json:"displayName"`
	GroupName   string          `json:"groupName"`
	Kind        string          `json:"configType"`
	Desc        string          `json:"desc"`
	Default     any             `json:"defaultValue"`
	OptionItems []OptionItem    `json:"optionItems,omitempty"`
	MinValue    json.RawMessage `json:"minValue,omitempty"`
	MaxValue    json.RawMessage `json:"maxValue,omitempty"`
	StepValue   json.RawMessage `json:"stepValue,omitempty"`
	XpathSet    []XpathTarget   `json:"XpathSet,omitempty"`
	FilePath    *string         `json:"filePath,omitempty"`
}

// MarshalJSON writes the block in the FlexMod.json layout.
func (b Block) MarshalJSON() ([]byte, error) {
	out := blockJSON{
		UniqueID:    b.UniqueID,
		DisplayName: b.DisplayName,
		GroupName:   b.GroupName,
		Kind:        string(b.Kind),
		Desc:        b.Desc,
		Default:     b.DefaultValue(),
		FilePath:    b.FilePath,
	}

	switch {
	case b.Kind.UsesMarkers():
		out.OptionItems = b.Options
		if out.OptionItems == nil {
			out.OptionItems = []OptionItem{}
		}
	case b.Kind.IsSlider():
		out.MinValue = rawNumber(b.Range.Min)
		out.MaxValue = rawNumber(b.Range.Max)
		out.StepValue = rawNumber(b.Range.Step)
		out.XpathSet = b.Targets
		if out.XpathSet == nil {
			out.XpathSet = []XpathTarget{}
		}
	default:
		out.OptionItems = b.Options
		out.XpathSet = b.Targets
	}

	// Marker comments live in execCode, so keep < and > readable.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a block, normalizing legacy kinds and loosely typed numbers.
func (b *Block) UnmarshalJSON(data []byte) error {
	var in blockJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*b = Block{
		UniqueID:    in.UniqueID,
		DisplayName: in.DisplayName,
		GroupName:   in.GroupName,
		Desc:        in.Desc,
		Kind:        ParseBlockKind(in.Kind),
		Default:     in.Default,
		Options:     in.OptionItems,
		Targets:     in.XpathSet,
		FilePath:    in.FilePath,
	}
	if b.GroupName == "" {
		b.GroupName = DefaultGroupName
	}

	switch b.Kind {
	case KindSwitch:
		b.Options = switchOptions(in.OptionItems)
	case KindIntSlider:
		b.Range = Range{
			Min:  math.Trunc(rawFloat(in.MinValue, 1)),
			Max:  math.Trunc(rawFloat(in.MaxValue, 100)),
			Step: math.Trunc(rawFloat(in.StepValue, 1)),
		}
	case KindFloatSlider:
		b.Range = Range{
			Min:  rawFloat(in.MinValue, 0.5),
			Max:  rawFloat(in.MaxValue, 2.0),
			Step: rawFloat(in.StepValue, 0.1),
		}
	}
	b.Default = b.DefaultValue()

	return nil
}

// DefaultValue returns the declared default normalized to the kind's value type.
func (b *Block) DefaultValue() Value {
	switch b.Kind {
	case KindSwitch:
		if v, ok := ToBool(b.Default); ok {
			return v
		}
		return true
	case KindOption:
		if b.Default == nil {
			return "option1"
		}
		return FormatValue(b.Default)
	case KindIntSlider:
		if f, ok := ToFloat(b.Default); ok {
			return math.Trunc(f)
		}
		return float64(100)
	case KindFloatSlider:
		if f, ok := ToFloat(b.Default); ok {
			return f
		}
		return 1.0
	}
	return b.Default
}

// Option returns the option whose key matches value case-insensitively.
func (b *Block) Option(value Value) *OptionItem {
	want := FormatValue(value)
	for i := range b.Options {
		if strings.EqualFold(b.Options[i].Key, want) {
			return &b.Options[i]
		}
	}
	return nil
}

// FileRefs returns every file path referenced by the block, first occurrence first.
// Empty paths are kept: they mark a reference that was never filled in.
func (b *Block) FileRefs() []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(p string) {
		if seen[p] {
			return
		}
		seen[p] = true
		refs = append(refs, p)
	}

	if b.FilePath != nil {
		add(*b.FilePath)
	}
	for _, t := range b.Targets {
		add(t.FilePath)
	}
	for _, opt := range b.Options {
		for _, u := range opt.ExecUnits {
			add(u.FilePath)
		}
	}
	return refs
}

// Decimals returns the display precision of a float slider, derived from its step.
func (b *Block) Decimals() int {
	if b.Kind != KindFloatSlider {
		return 0
	}
	return Decimals(b.Range.Step)
}

// FormatSliderValue stringifies a slider value the way it is written into target files.
func (b *Block) FormatSliderValue(v Value) (string, bool) {
	f, ok := ToFloat(v)
	if !ok {
		return "", false
	}
	switch b.Kind {
	case KindIntSlider:
		return FormatFixed(math.Trunc(f), 0), true
	case KindFloatSlider:
		return FormatFixed(f, b.Decimals()), true
	}
	return "", false
}

// switchOptions returns the "true" and "false" options in that order,
// synthesizing whichever is missing.
func switchOptions(items []OptionItem) []OptionItem {
	opts := []OptionItem{
		{Key: "true", ExecUnits: []ExecUnit{}},
		{Key: "false", ExecUnits: []ExecUnit{}},
	}
	for _, item := range items {
		for i := range opts {
			if strings.EqualFold(item.Key, opts[i].Key) && item.ExecUnits != nil {
				opts[i].ExecUnits = item.ExecUnits
			}
		}
	}
	return opts
}

func rawNumber(f float64) json.RawMessage {
	return json.RawMessage(FormatValue(f))
}

func rawFloat(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 {
		return fallback
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	if f, ok := ToFloat(v); ok {
		return f
	}
	return fallback
}
