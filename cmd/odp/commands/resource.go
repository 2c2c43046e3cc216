package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newResourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Inspect datapackage resources",
	}

	cmd.AddCommand(newResourceShowCommand())
	return cmd
}

func newResourceShowCommand() *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a resource record",
		Long: `Print a resource record as JSON.

With --format the record is merged with the named format definition the
way a containerized algorithm would see it: the format's schema fills the
transient format field, and a schema inheriting from the format is
expanded to the format's schema object.`,
		Example: `  # Raw record as stored on disk
  odp resource show measurements

  # Merged with its format
  odp resource show measurements --format timeseries`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			store, err := newStore()
			if err != nil {
				return err
			}

			var rec map[string]any
			if formatName == "" {
				rec, err = store.LoadRawResource(name)
			} else {
				rec, err = store.LoadResourceMap(name, formatName)
			}
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", "", "format to merge the resource with")
	return cmd
}
