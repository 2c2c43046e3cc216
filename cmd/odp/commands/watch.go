package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opendatastudio/opendatago/pkg/datapackage"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <view>...",
		Short: "Re-render views when resources change",
		Long: `Watch the datapackage's resources directory and re-render the given
views whenever a resource record is written. Runs until interrupted.`,
		Example: `  # Keep a plot up to date while a datapackage is being re-executed
  odp watch scatter-plot`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			views := args

			application, cleanup, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			watcher, err := datapackage.NewWatcher(application.store, log.Logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			ctx := cmd.Context()
			go watcher.Run(ctx)

			log.Info().Strs("views", views).Msg("Watching for resource changes")
			for {
				select {
				case <-ctx.Done():
					return nil
				case resource, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					log.Info().Str("resource", resource).Msg("Resource changed, re-rendering views")
					for _, view := range views {
						if _, err := application.engine.ExecuteView(ctx, view); err != nil {
							log.Error().Err(err).Str("view", view).Msg("View render failed")
						}
					}
				}
			}
		},
	}

	return cmd
}
