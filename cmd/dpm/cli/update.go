package cli

import (
	"fmt"

	"github.com/deploykit/dpm-cli/internal/domain"
	"github.com/spf13/cobra"
)

var (
	updateOrg         string
	updateUser        string
	updateDescription string
	updateActive      bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update Deploy Manager resources",
}

var updateProjectCmd = &cobra.Command{
	Use:               "project <project_name>",
	Short:             "Update project parameters",
	Args:              cobra.MatchAll(cobra.ExactArgs(1)),
	ValidArgsFunction: projectNameCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		var ops []domain.PatchOp
		if cmd.Flags().Changed("description") {
			ops = append(ops, domain.PatchOp{Op: "replace", Path: "/description", Value: updateDescription})
		}
		if cmd.Flags().Changed("active") {
			ops = append(ops, domain.PatchOp{Op: "replace", Path: "/active", Value: updateActive})
		}
		if len(ops) == 0 {
			return fmt.Errorf("nothing to update, pass --description or --active")
		}

		ref := domain.ProjectRef{Name: args[0], Org: updateOrg, User: updateUser}
		if _, err := client.GetProject(cmd.Context(), ref); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		if _, err := client.PatchProject(cmd.Context(), ref.Name, ops); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		fmt.Printf("Project '%s' updated!\n", ref.Name)
		return nil
	},
}

func init() {
	updateProjectCmd.Flags().StringVar(&updateOrg, "org", "", "project organization")
	updateProjectCmd.Flags().StringVar(&updateUser, "user", "", "project owner email")
	updateProjectCmd.Flags().StringVar(&updateDescription, "description", "", "update project description")
	updateProjectCmd.Flags().BoolVar(&updateActive, "active", false, "update project active status")

	updateCmd.AddCommand(updateProjectCmd)
	rootCmd.AddCommand(updateCmd)
}
