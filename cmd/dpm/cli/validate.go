package cli

import (
	"os"

	"github.com/deploykit/dpm-cli/internal/infrastructure/console"
	"github.com/deploykit/dpm-cli/internal/infrastructure/specfile"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <specfile>",
	Short: "Validate a project specfile against the Deploy Manager schema",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := console.New(os.Stdout)
		out.Progress("Validating project spec file...")

		spec, err := specfile.Load(args[0])
		if err != nil {
			out.Failure("Validation failed!")
			return err
		}

		client, _, err := newClient()
		if err != nil {
			return err
		}
		if err := client.ValidateSpec(cmd.Context(), spec); err != nil {
			out.Failure("Validation failed!")
			return err
		}

		out.Success("OK! Project spec file is valid!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
