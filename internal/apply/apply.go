// Package apply projects the selected settings of a mod onto its target
// files.
package apply

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/event"
	"github.com/flexmod/flexmod/internal/fsio"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/marker"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/internal/xpath"
	"github.com/flexmod/flexmod/pkg/types"
)

// Report is the result of one apply pass.
type Report struct {
	Mod      string          `json:"mod" yaml:"mod"`
	DryRun   bool            `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	Outcomes []types.Outcome `json:"outcomes" yaml:"outcomes"`
	Diffs    []FileDiff      `json:"diffs,omitempty" yaml:"diffs,omitempty"`
}

// Counts returns how many outcomes ended in each status.
func (r *Report) Counts() (applied, unchanged, skipped int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case types.StatusApplied:
			applied++
		case types.StatusUnchanged:
			unchanged++
		case types.StatusSkipped:
			skipped++
		}
	}
	return applied, unchanged, skipped
}

type options struct {
	dryRun bool
	bus    *event.Bus
}

// Option configures ApplyAll.
type Option func(*options)

// WithDryRun keeps every write in memory and reports diffs instead.
func WithDryRun() Option {
	return func(o *options) { o.dryRun = true }
}

// WithBus publishes outcomes on bus instead of the default bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// ApplyAll walks the selected values in their stored order and patches the
// files each block declares: marker blocks through their matching option's
// exec units, sliders through their xpath targets. Nothing aborts the pass;
// every unit of work that could not be done shows up as a skipped outcome.
func ApplyAll(ps *types.PlayerSettings, doc *types.Document, mod *project.Mod, opts ...Option) *Report {
	o := options{bus: event.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	fsys := mod.FS
	var overlay *fsio.Overlay
	if o.dryRun {
		overlay = fsio.NewOverlay(fsys)
		fsys = overlay
	}

	r := &Report{Mod: mod.Name, DryRun: o.dryRun, Outcomes: []types.Outcome{}}
	for pair := ps.FinalSettings.Oldest(); pair != nil; pair = pair.Next() {
		b := doc.Block(pair.Key)
		if b == nil {
			r.Outcomes = append(r.Outcomes, types.Outcome{BlockID: pair.Key}.Skipped("unknown block"))
			continue
		}
		r.Outcomes = append(r.Outcomes, applyBlock(fsys, mod, b, pair.Value)...)
	}

	if overlay != nil {
		r.Diffs = diffChanges(overlay.Changes(), mod.Dir)
	}

	r.publish(o.bus)
	applied, unchanged, skipped := r.Counts()
	logging.Info().
		Str("mod", mod.Name).
		Bool("dryRun", o.dryRun).
		Int("applied", applied).
		Int("unchanged", unchanged).
		Int("skipped", skipped).
		Msg("apply completed")
	return r
}

func applyBlock(fsys afero.Fs, mod *project.Mod, b *types.Block, value types.Value) []types.Outcome {
	base := types.Outcome{BlockID: b.UniqueID}

	switch {
	case b.Kind.UsesMarkers():
		opt := b.Option(value)
		if opt == nil {
			return []types.Outcome{base.Skipped(fmt.Sprintf("no option matches %q", types.FormatValue(value)))}
		}
		out := make([]types.Outcome, 0, len(opt.ExecUnits))
		for _, u := range opt.ExecUnits {
			path, ok := mod.Resolve(u.FilePath)
			if !ok {
				skipped := base.Skipped("file not found")
				skipped.File = u.FilePath
				out = append(out, skipped)
				continue
			}
			res := marker.ApplyFile(fsys, path, b.UniqueID, u.Code)
			res.File = u.FilePath
			out = append(out, res)
		}
		return out

	case b.Kind.IsSlider():
		text, ok := b.FormatSliderValue(value)
		if !ok {
			return []types.Outcome{base.Skipped(fmt.Sprintf("not a number: %q", types.FormatValue(value)))}
		}
		var out []types.Outcome
		for _, t := range b.Targets {
			path, ok := mod.Resolve(t.FilePath)
			if !ok {
				for _, expr := range t.Exprs {
					skipped := base.Skipped("file not found")
					skipped.File, skipped.Expr, skipped.Value = t.FilePath, expr, text
					out = append(out, skipped)
				}
				continue
			}
			for _, res := range xpath.UpdateFile(fsys, path, b.UniqueID, t.Exprs, text) {
				res.File = t.FilePath
				out = append(out, res)
			}
		}
		return out
	}

	return []types.Outcome{base.Skipped("unsupported kind " + string(b.Kind))}
}

func (r *Report) publish(bus *event.Bus) {
	if bus == nil {
		return
	}
	for _, o := range r.Outcomes {
		t := event.PatchApplied
		switch o.Status {
		case types.StatusUnchanged:
			t = event.PatchUnchanged
		case types.StatusSkipped:
			t = event.PatchSkipped
		}
		bus.Publish(event.Event{
			Type: t,
			Data: event.PatchData{
				Mod:     r.Mod,
				BlockID: o.BlockID,
				File:    o.File,
				Expr:    o.Expr,
				Reason:  o.Reason,
				DryRun:  r.DryRun,
			},
		})
	}

	applied, unchanged, skipped := r.Counts()
	bus.Publish(event.Event{
		Type: event.ApplyCompleted,
		Data: event.ApplyCompletedData{
			Mod:       r.Mod,
			Applied:   applied,
			Unchanged: unchanged,
			Skipped:   skipped,
			DryRun:    r.DryRun,
		},
	})
}

// ApplyMod loads the document and settings of mod, reconciling and
// persisting them as needed, and applies them while holding the mod's
// apply lock.
func ApplyMod(ctx context.Context, mod *project.Mod, opts ...Option) (*Report, error) {
	var report *Report
	err := mod.Exclusive(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, _, err := document.Load(ctx, mod)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		ps, _, err := settings.LoadOrCreate(ctx, mod, doc)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		report = ApplyAll(ps, doc, mod, opts...)
		return nil
	})
	return report, err
}
