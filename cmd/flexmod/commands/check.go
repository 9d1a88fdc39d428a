package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/reconcile"
	"github.com/flexmod/flexmod/pkg/types"
)

var (
	checkOnly   string
	checkStrict bool
)

// errDrift makes check --strict exit non-zero.
var errDrift = errors.New("document and files have drifted")

var checkCmd = &cobra.Command{
	Use:   "check <mod>",
	Short: "Audit the document against the mod's files",
	Long: `Check reports marker blocks whose markers are missing from their files,
markers in the files that no block declares, and references to files that
do not exist. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkOnly, "only", "", "Run one check (missing|extra|nonexistent)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit with an error when drift is found")
}

func runCheck(cmd *cobra.Command, args []string) error {
	mod, err := openMod(cmd, args[0])
	if err != nil {
		return err
	}
	var doc *types.Document
	err = mod.Exclusive(func() error {
		var err error
		doc, _, err = document.Load(cmd.Context(), mod)
		return err
	})
	if err != nil {
		return err
	}

	report, err := runChecks(doc, mod)
	if err != nil {
		return err
	}

	if err := render(cmd, report, func(w io.Writer) { printCheck(w, report) }); err != nil {
		return err
	}
	if checkStrict && !report.Clean() {
		return errDrift
	}
	return nil
}

func runChecks(doc *types.Document, mod *project.Mod) (*types.CheckReport, error) {
	patterns := appConfig.Patterns()
	switch checkOnly {
	case "":
		return reconcile.Run(doc, mod, patterns, nil), nil
	case "missing":
		return &types.CheckReport{Missing: reconcile.CheckMissing(doc, mod)}, nil
	case "extra":
		extra := reconcile.CheckExtra(doc, mod, patterns)
		return &types.CheckReport{Extra: extra, Renames: reconcile.SuggestRenames(extra, doc)}, nil
	case "nonexistent":
		return &types.CheckReport{Nonexistent: reconcile.CheckNonexistent(doc, mod)}, nil
	}
	return nil, fmt.Errorf("unknown check %q", checkOnly)
}

func printCheck(w io.Writer, r *types.CheckReport) {
	if r.Clean() {
		fmt.Fprintln(w, "no drift found")
		return
	}
	for _, file := range sortedKeys(r.Missing) {
		for _, id := range r.Missing[file] {
			fmt.Fprintf(w, "missing      %s  %s\n", file, id)
		}
	}
	for _, file := range sortedKeys(r.Extra) {
		for _, id := range r.Extra[file] {
			line := fmt.Sprintf("extra        %s  %s", file, id)
			if to, ok := r.Renames[id]; ok {
				line += fmt.Sprintf("  (renamed to %s?)", to)
			}
			fmt.Fprintln(w, line)
		}
	}
	for _, file := range sortedKeys(r.Nonexistent) {
		for _, ref := range r.Nonexistent[file] {
			fmt.Fprintf(w, "nonexistent  %q  %s (%s)\n", file, ref.ID, ref.DisplayName)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
