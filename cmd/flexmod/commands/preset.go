package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage named snapshots of the selected values",
}

var presetListCmd = &cobra.Command{
	Use:   "list <mod>",
	Short: "List presets in the order they were saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), cmd, args[0], func(_ *project.Mod, _ *types.Document, ps *types.PlayerSettings) error {
			names := settings.PresetNames(ps)
			return render(cmd, names, func(w io.Writer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		})
	},
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <mod> <name>",
	Short: "Save the selected values under name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), cmd, args[0], func(mod *project.Mod, _ *types.Document, ps *types.PlayerSettings) error {
			if err := settings.SavePreset(ps, args[1]); err != nil {
				return err
			}
			return settings.Save(cmd.Context(), mod, ps, "preset", nil)
		})
	},
}

var presetLoadCmd = &cobra.Command{
	Use:   "load <mod> <name>",
	Short: "Select the values stored in a preset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), cmd, args[0], func(mod *project.Mod, doc *types.Document, ps *types.PlayerSettings) error {
			changed, err := settings.LoadPreset(ps, args[1])
			if err != nil {
				return err
			}
			if len(changed) > 0 {
				if err := settings.Save(cmd.Context(), mod, ps, "preset", changed); err != nil {
					return err
				}
			}
			return render(cmd, ps, func(w io.Writer) { printValues(w, doc, ps) })
		})
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <mod> <name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd.Context(), cmd, args[0], func(mod *project.Mod, _ *types.Document, ps *types.PlayerSettings) error {
			if err := settings.DeletePreset(ps, args[1]); err != nil {
				return err
			}
			return settings.Save(cmd.Context(), mod, ps, "preset", nil)
		})
	},
}

func init() {
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetSaveCmd)
	presetCmd.AddCommand(presetLoadCmd)
	presetCmd.AddCommand(presetDeleteCmd)
}
