// Package settings manages a mod's player_settings.json: the selected value
// of every block, the defaults they were created with, and named presets.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/flexmod/flexmod/internal/event"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/storage"
	"github.com/flexmod/flexmod/pkg/types"
)

// ErrMalformed reports a player_settings.json that cannot be decoded.
var ErrMalformed = errors.New("malformed player_settings.json")

// LoadResult tells the caller what LoadOrCreate did.
type LoadResult struct {
	Created    bool
	Recovered  bool
	Reconciled bool
	Cause      error
}

// Defaults returns every block's default value in document order.
func Defaults(doc *types.Document) *types.ValueMap {
	m := types.NewValueMap()
	for i := range doc.Configs {
		b := &doc.Configs[i]
		if b.UniqueID == "" {
			continue
		}
		m.Set(b.UniqueID, b.DefaultValue())
	}
	return m
}

// New returns settings holding the defaults of doc and no presets.
func New(doc *types.Document) *types.PlayerSettings {
	ps := types.NewPlayerSettings()
	ps.DefaultValues = Defaults(doc)
	ps.FinalSettings = types.CopyValues(ps.DefaultValues)
	return ps
}

// Reconcile brings ps in line with doc:
//   - blocks missing from the settings are appended with their default,
//   - ids that no block declares any more are pruned,
//   - when a block's default changed, the stored default follows and the
//     selected value follows too if it still equaled the old default.
//
// Everything else is left untouched. Returns the ids whose entries changed.
func Reconcile(ps *types.PlayerSettings, doc *types.Document) []string {
	ps.EnsureMaps()
	var changed []string
	declared := make(map[string]bool, len(doc.Configs))

	for i := range doc.Configs {
		b := &doc.Configs[i]
		id := b.UniqueID
		if id == "" {
			continue
		}
		declared[id] = true
		def := b.DefaultValue()

		oldDef, hasDef := ps.DefaultValues.Get(id)
		final, hasFinal := ps.FinalSettings.Get(id)

		switch {
		case !hasFinal:
			ps.FinalSettings.Set(id, def)
			ps.DefaultValues.Set(id, def)
			changed = append(changed, id)
		case !hasDef:
			ps.DefaultValues.Set(id, def)
			changed = append(changed, id)
		case !types.ValuesEqual(oldDef, def):
			ps.DefaultValues.Set(id, def)
			if types.ValuesEqual(final, oldDef) {
				ps.FinalSettings.Set(id, def)
			}
			changed = append(changed, id)
		}
	}

	for _, m := range []*types.ValueMap{ps.FinalSettings, ps.DefaultValues} {
		for _, id := range types.Keys(m) {
			if !declared[id] {
				m.Delete(id)
				changed = appendUnique(changed, id)
			}
		}
	}

	return changed
}

// LoadOrCreate reads the mod's player_settings.json and reconciles it with
// doc. A missing or malformed file is rebuilt from the defaults. Any change
// is persisted before returning.
func LoadOrCreate(ctx context.Context, mod *project.Mod, doc *types.Document) (*types.PlayerSettings, LoadResult, error) {
	var res LoadResult

	raw, err := mod.Storage().Read(ctx, []string{project.SettingsKey})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		res.Created = true
	case err != nil:
		res.Recovered = true
		res.Cause = err
	}

	var ps *types.PlayerSettings
	if err == nil {
		ps, err = Decode(raw)
		if err != nil {
			res.Recovered = true
			res.Cause = err
		}
	}

	if ps == nil {
		if res.Recovered {
			logging.Warn().Err(res.Cause).Str("mod", mod.Name).Msg("player_settings.json is unreadable, rebuilding from defaults")
		}
		ps = New(doc)
		return ps, res, Save(ctx, mod, ps, "reconcile", types.Keys(ps.FinalSettings))
	}

	if changed := Reconcile(ps, doc); len(changed) > 0 {
		res.Reconciled = true
		logging.Debug().Str("mod", mod.Name).Strs("ids", changed).Msg("reconciled player settings")
		if err := Save(ctx, mod, ps, "reconcile", changed); err != nil {
			return ps, res, err
		}
	}
	return ps, res, nil
}

// Decode parses player_settings.json content.
func Decode(raw []byte) (*types.PlayerSettings, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}
	for _, key := range []string{"finalSettings", "defaultValues", "presets"} {
		v := root.Get(key)
		if v.Exists() && v.Type != gjson.Null && !v.IsObject() {
			return nil, fmt.Errorf("%w: %q is not an object", ErrMalformed, key)
		}
	}
	var bad error
	root.Get("presets").ForEach(func(k, v gjson.Result) bool {
		if !v.IsObject() {
			bad = fmt.Errorf("%w: preset %q is not an object", ErrMalformed, k.String())
			return false
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}

	ps := &types.PlayerSettings{}
	if err := json.Unmarshal(raw, ps); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ps.EnsureMaps()
	return ps, nil
}

// Save writes ps to the mod's player_settings.json and announces the ids
// that changed.
func Save(ctx context.Context, mod *project.Mod, ps *types.PlayerSettings, reason string, changed []string) error {
	ps.EnsureMaps()
	if err := mod.Storage().Put(ctx, []string{project.SettingsKey}, ps); err != nil {
		return fmt.Errorf("save player_settings.json: %w", err)
	}
	event.Publish(event.Event{
		Type: event.SettingsUpdated,
		Data: event.SettingsUpdatedData{Mod: mod.Name, Changed: changed, Reason: reason},
	})
	return nil
}

func appendUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}
