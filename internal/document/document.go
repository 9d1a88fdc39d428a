// Package document loads, repairs and saves a mod's FlexMod.json.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"github.com/flexmod/flexmod/internal/event"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/model"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/storage"
	"github.com/flexmod/flexmod/pkg/types"
)

// ErrMalformed reports a FlexMod.json whose shape does not match a document.
var ErrMalformed = errors.New("malformed FlexMod.json")

// LoadResult tells the caller what Load had to do to produce a document.
type LoadResult struct {
	// Created is set when no FlexMod.json existed.
	Created bool
	// Recovered is set when the stored document was unreadable and replaced.
	Recovered bool
	// Fixed is set when ValidateAndFix changed the stored document.
	Fixed bool
	// Cause is the decode error behind a recovery.
	Cause error
}

// Load reads the document of mod. A missing or malformed document is
// replaced by an empty one holding only the default group, which is
// persisted immediately. Structural repairs made by ValidateAndFix are
// persisted too. Only a failure to write the replacement is returned.
func Load(ctx context.Context, mod *project.Mod) (*types.Document, LoadResult, error) {
	var res LoadResult
	store := mod.Storage()

	raw, err := store.Read(ctx, []string{project.DocumentKey})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		res.Created = true
	case err != nil:
		res.Recovered = true
		res.Cause = err
	}

	var doc *types.Document
	if err == nil {
		doc, err = Decode(raw)
		if err != nil {
			res.Recovered = true
			res.Cause = err
		}
	}

	if doc == nil {
		if res.Recovered {
			logging.Warn().Err(res.Cause).Str("mod", mod.Name).Msg("FlexMod.json is unreadable, resetting to an empty document")
		}
		doc = types.NewDocument()
		if err := Save(ctx, mod, doc); err != nil {
			return doc, res, err
		}
		if res.Recovered {
			event.Publish(event.Event{
				Type: event.DocumentUpdated,
				Data: event.DocumentUpdatedData{Mod: mod.Name, Recovered: true},
			})
		}
		return doc, res, nil
	}

	if ValidateAndFix(doc) {
		res.Fixed = true
		logging.Info().Str("mod", mod.Name).Msg("repaired FlexMod.json structure")
		if err := Save(ctx, mod, doc); err != nil {
			return doc, res, err
		}
	}

	return doc, res, nil
}

// Decode parses FlexMod.json content. Comments and trailing commas are
// tolerated. The shape is probed before decoding so that a document of the
// wrong shape is rejected instead of half-decoded.
func Decode(raw []byte) (*types.Document, error) {
	data := jsonc.ToJSON(raw)
	if err := probe(data); err != nil {
		return nil, err
	}

	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &doc, nil
}

func probe(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}

	for _, key := range []string{"groups", "configs"} {
		v := root.Get(key)
		if v.Exists() && v.Type != gjson.Null && !v.IsArray() {
			return fmt.Errorf("%w: %q is not an array", ErrMalformed, key)
		}
	}

	var bad error
	root.Get("configs").ForEach(func(i, v gjson.Result) bool {
		if !v.IsObject() {
			bad = fmt.Errorf("%w: configs[%d] is not an object", ErrMalformed, i.Int())
			return false
		}
		return true
	})
	if bad != nil {
		return bad
	}
	root.Get("groups").ForEach(func(i, v gjson.Result) bool {
		if !v.IsObject() {
			bad = fmt.Errorf("%w: groups[%d] is not an object", ErrMalformed, i.Int())
			return false
		}
		return true
	})
	return bad
}

// ValidateAndFix repairs the structural invariants of doc: the default group
// exists at index 0, group names are unique, every block belongs to a known
// group and nil lists are empty. Returns true if anything changed.
func ValidateAndFix(doc *types.Document) bool {
	changed := false
	if doc.Groups == nil {
		doc.Groups = []types.Group{}
	}
	if doc.Configs == nil {
		doc.Configs = []types.Block{}
	}

	if model.DedupeGroups(doc) {
		changed = true
	}
	if model.EnsureDefaultGroup(doc) {
		changed = true
	}

	for i := range doc.Configs {
		b := &doc.Configs[i]
		if doc.Group(b.GroupName) == nil {
			logging.Debug().Str("block", b.UniqueID).Str("group", b.GroupName).Msg("moving block of unknown group to default")
			b.GroupName = types.DefaultGroupName
			changed = true
		}
	}
	return changed
}

// Save writes doc to the mod's FlexMod.json.
func Save(ctx context.Context, mod *project.Mod, doc *types.Document) error {
	if err := mod.Storage().Put(ctx, []string{project.DocumentKey}, doc); err != nil {
		return fmt.Errorf("save FlexMod.json: %w", err)
	}
	event.Publish(event.Event{
		Type: event.DocumentUpdated,
		Data: event.DocumentUpdatedData{Mod: mod.Name},
	})
	return nil
}
