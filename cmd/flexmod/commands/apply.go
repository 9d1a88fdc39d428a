package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/apply"
	"github.com/flexmod/flexmod/pkg/types"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply <mod>",
	Short: "Apply the selected settings to the mod's files",
	Long: `Apply walks the selected settings in order and patches every file the
matching blocks declare. Work that cannot be done is reported as skipped;
nothing aborts the pass.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Report the changes as diffs without writing")
}

func runApply(cmd *cobra.Command, args []string) error {
	mod, err := openMod(cmd, args[0])
	if err != nil {
		return err
	}

	var opts []apply.Option
	if applyDryRun {
		opts = append(opts, apply.WithDryRun())
	}
	report, err := apply.ApplyMod(cmd.Context(), mod, opts...)
	if err != nil {
		return err
	}

	return render(cmd, report, func(w io.Writer) {
		printOutcomes(w, report.Outcomes)
		for _, d := range report.Diffs {
			fmt.Fprintf(w, "\n%s (+%d -%d)\n%s", d.Path, d.Additions, d.Deletions, d.Diff)
		}
		applied, unchanged, skipped := report.Counts()
		fmt.Fprintf(w, "\n%d applied, %d unchanged, %d skipped\n", applied, unchanged, skipped)
	})
}

func printOutcomes(w io.Writer, outcomes []types.Outcome) {
	for _, o := range outcomes {
		target := o.File
		if o.Expr != "" {
			target += " " + o.Expr
		}
		line := fmt.Sprintf("%-9s %s", o.Status, o.BlockID)
		if target != "" {
			line += "  " + target
		}
		if o.Value != "" {
			line += " = " + o.Value
		}
		if o.Reason != "" {
			line += "  (" + o.Reason + ")"
		}
		fmt.Fprintln(w, line)
	}
}
