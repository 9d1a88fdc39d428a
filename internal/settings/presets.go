package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flexmod/flexmod/pkg/types"
)

var (
	ErrUnknownPreset   = errors.New("unknown preset")
	ErrEmptyPresetName = errors.New("preset name is empty")
)

// PresetNames returns the preset names in the order they were saved.
func PresetNames(ps *types.PlayerSettings) []string {
	ps.EnsureMaps()
	names := make([]string, 0, ps.Presets.Len())
	for pair := ps.Presets.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// SavePreset snapshots the final settings under name, replacing any preset
// of the same name.
func SavePreset(ps *types.PlayerSettings, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyPresetName
	}
	ps.EnsureMaps()
	ps.Presets.Set(name, types.CopyValues(ps.FinalSettings))
	return nil
}

// DeletePreset removes a preset.
func DeletePreset(ps *types.PlayerSettings, name string) error {
	ps.EnsureMaps()
	if _, ok := ps.Presets.Delete(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return nil
}

// LoadPreset copies the preset's values into the final settings. Only ids
// present in the final settings are taken, so the apply order and the set
// of ids stay as reconciled. Returns the ids whose value changed.
func LoadPreset(ps *types.PlayerSettings, name string) ([]string, error) {
	ps.EnsureMaps()
	preset, ok := ps.Presets.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	if preset == nil {
		return nil, nil
	}

	var changed []string
	for pair := ps.FinalSettings.Oldest(); pair != nil; pair = pair.Next() {
		v, ok := preset.Get(pair.Key)
		if !ok || types.ValuesEqual(v, pair.Value) {
			continue
		}
		pair.Value = v
		changed = append(changed, pair.Key)
	}
	return changed, nil
}

// ResetToDefaults sets every final value back to its stored default.
// Returns the ids whose value changed.
func ResetToDefaults(ps *types.PlayerSettings) []string {
	ps.EnsureMaps()
	var changed []string
	for pair := ps.FinalSettings.Oldest(); pair != nil; pair = pair.Next() {
		def, ok := ps.DefaultValues.Get(pair.Key)
		if !ok || types.ValuesEqual(def, pair.Value) {
			continue
		}
		pair.Value = def
		changed = append(changed, pair.Key)
	}
	return changed
}

// RenameID moves the entries of oldID to newID in the final settings, the
// defaults and every preset, keeping each map's order.
func RenameID(ps *types.PlayerSettings, oldID, newID string) {
	ps.EnsureMaps()
	ps.FinalSettings = renameKey(ps.FinalSettings, oldID, newID)
	ps.DefaultValues = renameKey(ps.DefaultValues, oldID, newID)
	for pair := ps.Presets.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value = renameKey(pair.Value, oldID, newID)
	}
}

func renameKey(m *types.ValueMap, oldID, newID string) *types.ValueMap {
	if m == nil {
		return m
	}
	if _, ok := m.Get(oldID); !ok {
		return m
	}
	renamed := types.NewValueMap()
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		key := pair.Key
		if key == oldID {
			key = newID
		}
		renamed.Set(key, pair.Value)
	}
	return renamed
}
