package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change the selected values of a mod",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <mod>",
	Short: "Show the selected values in apply order",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <mod> <id>=<value>...",
	Short: "Select values; all are validated before any is stored",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset <mod>",
	Short: "Set every value back to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsReset,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
}

// withSettings loads the document and reconciled settings of the mod named
// by arg and runs fn under the mod's lock.
func withSettings(ctx context.Context, cmd *cobra.Command, arg string, fn func(mod *project.Mod, doc *types.Document, ps *types.PlayerSettings) error) error {
	mod, err := openMod(cmd, arg)
	if err != nil {
		return err
	}
	return mod.Exclusive(func() error {
		doc, _, err := document.Load(ctx, mod)
		if err != nil {
			return err
		}
		ps, _, err := settings.LoadOrCreate(ctx, mod, doc)
		if err != nil {
			return err
		}
		return fn(mod, doc, ps)
	})
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	return withSettings(cmd.Context(), cmd, args[0], func(_ *project.Mod, doc *types.Document, ps *types.PlayerSettings) error {
		return render(cmd, ps, func(w io.Writer) { printValues(w, doc, ps) })
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withSettings(ctx, cmd, args[0], func(mod *project.Mod, doc *types.Document, ps *types.PlayerSettings) error {
		staged := &types.PlayerSettings{
			FinalSettings: types.CopyValues(ps.FinalSettings),
			DefaultValues: ps.DefaultValues,
			Presets:       ps.Presets,
		}
		var changed []string
		for _, arg := range args[1:] {
			id, raw, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("expected <id>=<value>, got %q", arg)
			}
			b := doc.Block(id)
			if b == nil {
				return fmt.Errorf("%w: %s", settings.ErrUnknownBlock, id)
			}
			v, err := settings.Coerce(b, raw)
			if err != nil {
				return err
			}
			if _, err := settings.SetValue(staged, doc, id, v); err != nil {
				return err
			}
			changed = append(changed, id)
		}
		ps.FinalSettings = staged.FinalSettings
		if err := settings.Save(ctx, mod, ps, "set", changed); err != nil {
			return err
		}
		return render(cmd, ps, func(w io.Writer) { printValues(w, doc, ps) })
	})
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withSettings(ctx, cmd, args[0], func(mod *project.Mod, doc *types.Document, ps *types.PlayerSettings) error {
		changed := settings.ResetToDefaults(ps)
		if len(changed) > 0 {
			if err := settings.Save(ctx, mod, ps, "reset", changed); err != nil {
				return err
			}
		}
		return render(cmd, ps, func(w io.Writer) { printValues(w, doc, ps) })
	})
}

func printValues(w io.Writer, doc *types.Document, ps *types.PlayerSettings) {
	for pair := ps.FinalSettings.Oldest(); pair != nil; pair = pair.Next() {
		label := pair.Key
		if b := doc.Block(pair.Key); b != nil && b.DisplayName != "" {
			label += " (" + b.DisplayName + ")"
		}
		mark := ""
		if def, ok := ps.DefaultValues.Get(pair.Key); ok && !types.ValuesEqual(def, pair.Value) {
			mark = "  *"
		}
		fmt.Fprintf(w, "%s = %s%s\n", label, types.FormatValue(pair.Value), mark)
	}
}
