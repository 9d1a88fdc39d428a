// Package commands provides the CLI commands for FlexMod.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/config"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	modsDir   string
	output    string
)

// appConfig is loaded once before any subcommand runs.
var appConfig *types.AppConfig

var rootCmd = &cobra.Command{
	Use:   "flexmod",
	Short: "FlexMod - declarative settings for game mods",
	Long: `FlexMod turns the blocks declared in a mod's FlexMod/FlexMod.json into
edits of the mod's own files: marker-delimited code regions for switches and
dropdowns, attribute values for sliders.

A <mod> argument is either a path to a mod directory or the name of a
directory under the configured mods directory.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&modsDir, "mods-dir", "", "Directory holding one sub-directory per mod")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format (text|json|yaml)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("flexmod %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(modsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the configuration and configures logging. Flags win over the
// config file.
func setup(cmd *cobra.Command, args []string) error {
	switch output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}
	appConfig, err = config.Load(workDir)
	if err != nil {
		return err
	}
	if modsDir != "" {
		appConfig.ModsDir = modsDir
	}
	if appConfig.ModsDir == "" {
		appConfig.ModsDir = workDir
	}

	level := logLevel
	if level == "" && appConfig.Log != nil {
		level = appConfig.Log.Level
	}
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(level)
	if printLogs {
		cfg.Pretty = true
	} else {
		cfg.Output = io.Discard
		cfg.LogToFile = true
		cfg.LogDir = config.GetPaths().LogPath()
	}
	logging.Init(cfg)
	return nil
}

// modService lists the mods under the configured mods dir.
func modService() *project.Service {
	return project.NewService(appConfig.ModsDir, appConfig.EnabledMods)
}

// openMod resolves a <mod> argument: an existing directory is opened as is,
// anything else is looked up by name under the mods dir.
func openMod(cmd *cobra.Command, arg string) (*project.Mod, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		if _, err := os.Stat(filepath.Join(arg, project.FlexModDirName)); err == nil || filepath.Base(arg) == project.FlexModDirName {
			return project.Open(arg)
		}
	}
	return modService().Get(cmd.Context(), arg)
}
