package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opendatastudio/opendatago/pkg/executor"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <configuration>",
		Short: "Execute a datapackage configuration",
		Long: `Execute the algorithm container named by a configuration.

The datapackage base path is bind-mounted into the container and the
CONFIGURATION environment variable tells the containerized program which
configuration to run. The command blocks until the container exits and
prints its captured logs.`,
		Example: `  # Run the default analysis configuration
  odp run analysis.default

  # Run against a datapackage in another directory
  odp run analysis.default --path /data/my-datapackage`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configurationName := args[0]

			application, cleanup, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			logs, err := application.engine.ExecuteDatapackage(cmd.Context(), configurationName)
			if err != nil {
				var execErr *executor.ExecutionError
				if errors.As(err, &execErr) && execErr.Logs != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), execErr.Logs)
				}
				return err
			}

			log.Info().Str("configuration", configurationName).Msg("Datapackage executed")
			if logs != "" {
				fmt.Fprintln(cmd.OutOrStdout(), logs)
			}
			return nil
		},
	}

	return cmd
}
