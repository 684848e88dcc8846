package cli

import (
	"os"

	"github.com/deploykit/dpm-cli/internal/domain"
	"github.com/deploykit/dpm-cli/internal/infrastructure/console"
	"github.com/spf13/cobra"
)

var (
	allowOrg    string
	allowUser   string
	allowView   bool
	allowChange bool
	allowDelete bool
)

var allowCmd = &cobra.Command{
	Use:   "allow",
	Short: "Grant access to Deploy Manager resources",
}

var allowProjectCmd = &cobra.Command{
	Use:               "project <project_name> <subject>",
	Short:             "Grant a subject access to a project",
	Args:              cobra.MatchAll(cobra.ExactArgs(2)),
	ValidArgsFunction: projectNameCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		out := console.New(os.Stdout)

		ref := domain.ProjectRef{Name: args[0], Org: allowOrg, User: allowUser}
		project, err := client.GetProject(cmd.Context(), ref)
		if err != nil {
			out.Failure("Failed to grant permission to project!")
			return err
		}

		// delete implies change, change implies view
		perm := domain.Permission{
			Subject: args[1],
			View:    allowView || allowChange || allowDelete,
			Change:  allowChange || allowDelete,
			Delete:  allowDelete,
		}

		conf, err := client.AllowProject(cmd.Context(), project.Name, perm)
		if err != nil {
			out.Failure("Failed to grant permission to project!")
			return err
		}

		out.Success("Permissions for project '%s' set successfully!", ref.Name)
		if conf.Detail != "" {
			out.Plain("%s", conf.Detail)
		}
		return nil
	},
}

func init() {
	allowProjectCmd.Flags().StringVar(&allowOrg, "org", "", "project organization")
	allowProjectCmd.Flags().StringVar(&allowUser, "user", "", "project owner email")
	allowProjectCmd.Flags().BoolVarP(&allowView, "view", "v", false, "allow to see the project")
	allowProjectCmd.Flags().BoolVarP(&allowChange, "change", "c", false, "allow to edit the project, implies --view")
	allowProjectCmd.Flags().BoolVarP(&allowDelete, "delete", "d", false, "allow to delete the project, implies --view and --change")

	allowCmd.AddCommand(allowProjectCmd)
	rootCmd.AddCommand(allowCmd)
}
