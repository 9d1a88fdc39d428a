package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/config"
	"github.com/flexmod/flexmod/internal/project"
)

var modsSave bool

var modsCmd = &cobra.Command{
	Use:   "mods",
	Short: "List the mods under the mods directory",
	Long: `List every sub-directory of the mods directory that carries a
FlexMod/FlexMod.json. With --save the list is recorded as the enabled mods
in the project config.`,
	Args: cobra.NoArgs,
	RunE: runMods,
}

func init() {
	modsCmd.Flags().BoolVar(&modsSave, "save", false, "Record the discovered mods as enabled in .flexmod/flexmod.json")
}

func runMods(cmd *cobra.Command, args []string) error {
	mods, err := modService().List(cmd.Context())
	if err != nil {
		return err
	}

	if modsSave {
		names, err := project.Discover(appConfig.ModsDir)
		if err != nil {
			return err
		}
		workDir, err := os.Getwd()
		if err != nil {
			return err
		}
		config.RefreshEnabledMods(appConfig, names)
		if err := config.Save(appConfig, config.ProjectConfigPath(workDir)); err != nil {
			return err
		}
	}

	return render(cmd, mods, func(w io.Writer) {
		if len(mods) == 0 {
			fmt.Fprintf(w, "no mods under %s\n", appConfig.ModsDir)
			return
		}
		for _, m := range mods {
			state := "enabled"
			if !m.Enabled {
				state = "disabled"
			}
			modified := "-"
			if m.Time.Modified > 0 {
				modified = time.UnixMilli(m.Time.Modified).Format(time.DateTime)
			}
			fmt.Fprintf(w, "%-24s %-8s %s\n", m.Name, state, modified)
		}
	})
}
