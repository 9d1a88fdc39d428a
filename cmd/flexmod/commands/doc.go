package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/model"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

var docBlockGroup string

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Inspect and edit a mod's FlexMod.json",
}

var docShowCmd = &cobra.Command{
	Use:   "show <mod>",
	Short: "Show groups and blocks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDocument(cmd, args[0], func(_ context.Context, _ *project.Mod, doc *types.Document) (bool, error) {
			return false, render(cmd, doc, func(w io.Writer) { printDocument(w, doc) })
		})
	},
}

var docValidateCmd = &cobra.Command{
	Use:   "validate <mod>",
	Short: "Check every block against the id and payload rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDocument(cmd, args[0], func(_ context.Context, _ *project.Mod, doc *types.Document) (bool, error) {
			problems := model.ValidateDocument(doc)
			if problems == nil {
				problems = []model.Problem{}
			}
			if err := render(cmd, problems, func(w io.Writer) {
				if len(problems) == 0 {
					fmt.Fprintln(w, "document is valid")
				}
				for _, p := range problems {
					fmt.Fprintf(w, "%s: %s\n", p.BlockID, p.Message)
				}
			}); err != nil {
				return false, err
			}
			if len(problems) > 0 {
				return false, fmt.Errorf("%d invalid block(s)", len(problems))
			}
			return false, nil
		})
	},
}

var docAddBlockCmd = &cobra.Command{
	Use:   "add-block <mod> <kind>",
	Short: "Append a block of kind boolConfig, selectConfig, intSlider or floatSlider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDocument(cmd, args[0], func(_ context.Context, _ *project.Mod, doc *types.Document) (bool, error) {
			b, err := model.NewBlock(doc, types.ParseBlockKind(args[1]))
			if err != nil {
				return false, err
			}
			if docBlockGroup != "" {
				b.GroupName = docBlockGroup
			}
			if err := model.AddBlock(doc, b); err != nil {
				return false, err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.UniqueID)
			return true, nil
		})
	},
}

var docRemoveBlockCmd = &cobra.Command{
	Use:   "remove-block <mod> <id>",
	Short: "Remove a block",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDocument(cmd, args[0], func(_ context.Context, _ *project.Mod, doc *types.Document) (bool, error) {
			return true, model.RemoveBlock(doc, args[1])
		})
	},
}

var docRenameCmd = &cobra.Command{
	Use:   "rename <mod> <id> <new-id>",
	Short: "Rename a block; its selected value and presets follow",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldID, newID := args[1], args[2]
		return editDocument(cmd, args[0], func(ctx context.Context, mod *project.Mod, doc *types.Document) (bool, error) {
			ps, _, err := settings.LoadOrCreate(ctx, mod, doc)
			if err != nil {
				return false, err
			}
			if err := model.RenameBlock(doc, oldID, newID); err != nil {
				return false, err
			}
			if oldID == newID {
				return false, nil
			}
			settings.RenameID(ps, oldID, newID)
			return true, settings.Save(ctx, mod, ps, "rename", []string{oldID, newID})
		})
	},
}

var docAddGroupCmd = &cobra.Command{
	Use:   "add-group <mod> [name]",
	Short: "Add a group; a name is generated when omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDocument(cmd, args[0], func(_ context.Context, _ *project.Mod, doc *types.Document) (bool, error) {
			name := model.NewGroupName(doc)
			if len(args) == 2 {
				name = args[1]
			}
			if err := model.AddGroup(doc, name, ""); err != nil {
				return false, err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return true, nil
		})
	},
}

var docRemoveGroupCmd = &cobra.Command{
	Use:   "remove-group <mod> <name>",
	Short: "Remove a group; its blocks move to the default group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDocument(cmd, args[0], func(_ context.Context, _ *project.Mod, doc *types.Document) (bool, error) {
			return true, model.RemoveGroup(doc, args[1])
		})
	},
}

func init() {
	docAddBlockCmd.Flags().StringVar(&docBlockGroup, "group", "", "Group of the new block")

	docCmd.AddCommand(docShowCmd)
	docCmd.AddCommand(docValidateCmd)
	docCmd.AddCommand(docAddBlockCmd)
	docCmd.AddCommand(docRemoveBlockCmd)
	docCmd.AddCommand(docRenameCmd)
	docCmd.AddCommand(docAddGroupCmd)
	docCmd.AddCommand(docRemoveGroupCmd)
}

// editDocument runs fn on the loaded document under the mod's lock. When fn
// reports a change the document is saved and the settings reconciled.
func editDocument(cmd *cobra.Command, arg string, fn func(ctx context.Context, mod *project.Mod, doc *types.Document) (bool, error)) error {
	ctx := cmd.Context()
	mod, err := openMod(cmd, arg)
	if err != nil {
		return err
	}
	return mod.Exclusive(func() error {
		doc, _, err := document.Load(ctx, mod)
		if err != nil {
			return err
		}
		changed, err := fn(ctx, mod, doc)
		if err != nil || !changed {
			return err
		}
		if err := document.Save(ctx, mod, doc); err != nil {
			return err
		}
		_, _, err = settings.LoadOrCreate(ctx, mod, doc)
		return err
	})
}

func printDocument(w io.Writer, doc *types.Document) {
	for _, g := range doc.Groups {
		fmt.Fprintf(w, "[%s]", g.Name)
		if g.Desc != "" {
			fmt.Fprintf(w, " %s", g.Desc)
		}
		fmt.Fprintln(w)
		for _, b := range doc.BlocksInGroup(g.Name) {
			fmt.Fprintf(w, "  %-24s %-15s default=%s", b.UniqueID, b.Kind.Label(), types.FormatValue(b.DefaultValue()))
			if refs := b.FileRefs(); len(refs) > 0 {
				fmt.Fprintf(w, "  files=%v", refs)
			}
			fmt.Fprintln(w)
		}
	}
}
