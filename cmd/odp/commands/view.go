package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opendatastudio/opendatago/pkg/executor"
)

func newViewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <view>",
		Short: "Render a view",
		Long: `Execute the container that renders a view.

Every resource the view declares must already hold data; rendering fails
fast on the first empty resource without starting the container. The VIEW
environment variable tells the containerized program which view to render.`,
		Example: `  # Render a plot over executed resources
  odp view scatter-plot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewName := args[0]

			application, cleanup, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			logs, err := application.engine.ExecuteView(cmd.Context(), viewName)
			if err != nil {
				var execErr *executor.ExecutionError
				if errors.As(err, &execErr) && execErr.Logs != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), execErr.Logs)
				}
				return err
			}

			log.Info().Str("view", viewName).Msg("View rendered")
			if logs != "" {
				fmt.Fprintln(cmd.OutOrStdout(), logs)
			}
			return nil
		},
	}

	return cmd
}
