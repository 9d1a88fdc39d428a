package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/apply"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <mod>",
	Short: "Re-apply whenever the settings or the document change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	mod, err := openMod(cmd, args[0])
	if err != nil {
		return err
	}

	opts := watch.Options{
		OnApply: func(r *apply.Report, err error) {
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "apply failed: %v\n", err)
				return
			}
			applied, unchanged, skipped := r.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %d applied, %d unchanged, %d skipped\n",
				time.Now().Format(time.TimeOnly), applied, unchanged, skipped)
		},
	}
	if appConfig.Watcher != nil && appConfig.Watcher.DebounceMS > 0 {
		opts.Debounce = time.Duration(appConfig.Watcher.DebounceMS) * time.Millisecond
	}

	w, err := watch.New(mod, opts)
	if err != nil {
		return err
	}
	w.Start()
	logging.Info().Str("mod", mod.Name).Msg("watching for settings changes")
	fmt.Fprintf(cmd.OutOrStdout(), "watching %s, press Ctrl+C to stop\n", mod.FlexModDir)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-cmd.Context().Done():
	}

	return w.Stop()
}
