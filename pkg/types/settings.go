package types

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ValueMap is an insertion-ordered block id -> value map.
type ValueMap = orderedmap.OrderedMap[string, Value]

// PresetMap is an insertion-ordered preset name -> snapshot map.
type PresetMap = orderedmap.OrderedMap[string, *ValueMap]

// PlayerSettings is the content of player_settings.json.
type PlayerSettings struct {
	// FinalSettings holds the currently selected values; its order is the apply order.
	FinalSettings *ValueMap `json:"finalSettings"`
	// DefaultValues holds each block's default as captured when it was added.
	DefaultValues *ValueMap `json:"defaultValues"`
	// Presets holds named snapshots of FinalSettings.
	Presets *PresetMap `json:"presets"`
}

// NewValueMap returns an empty ordered value map.
func NewValueMap() *ValueMap {
	return orderedmap.New[string, Value]()
}

// NewPlayerSettings returns empty settings with all maps allocated.
func NewPlayerSettings() *PlayerSettings {
	return &PlayerSettings{
		FinalSettings: NewValueMap(),
		DefaultValues: NewValueMap(),
		Presets:       orderedmap.New[string, *ValueMap](),
	}
}

// EnsureMaps allocates any map left nil by decoding.
func (p *PlayerSettings) EnsureMaps() {
	if p.FinalSettings == nil {
		p.FinalSettings = NewValueMap()
	}
	if p.DefaultValues == nil {
		p.DefaultValues = NewValueMap()
	}
	if p.Presets == nil {
		p.Presets = orderedmap.New[string, *ValueMap]()
	}
}

// CopyValues returns a shallow copy of m preserving order.
func CopyValues(m *ValueMap) *ValueMap {
	out := NewValueMap()
	if m == nil {
		return out
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// Keys returns the keys of m in insertion order.
func Keys(m *ValueMap) []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}
