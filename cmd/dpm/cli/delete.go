package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/deploykit/dpm-cli/internal/domain"
	"github.com/deploykit/dpm-cli/internal/infrastructure/console"
	"github.com/spf13/cobra"
)

var (
	deleteOrg  string
	deleteUser string
	deleteYes  bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete Deploy Manager resources",
}

var deleteProjectCmd = &cobra.Command{
	Use:               "project <project_name>",
	Short:             "Delete a project and its deployed resources",
	Args:              cobra.MatchAll(cobra.ExactArgs(1)),
	ValidArgsFunction: projectNameCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		out := console.New(os.Stdout)

		ref := domain.ProjectRef{Name: args[0], Org: deleteOrg, User: deleteUser}
		project, err := client.GetProject(cmd.Context(), ref)
		if err != nil {
			out.Failure("Failed to delete project '%s'!", ref.Name)
			return err
		}

		if !deleteYes {
			fmt.Printf("Deleting project:\n\n")
			fmt.Printf("Project Name: %s\n", project.Name)
			fmt.Printf("Org: %s\n", project.Org)
			fmt.Printf("Owner: %s\n\n", project.Owner)
			fmt.Print("This will attempt to remove all deployed resources for this project! Are you sure? [y/N]: ")

			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
			default:
				return fmt.Errorf("aborted")
			}
		}

		if err := client.DeleteProject(cmd.Context(), ref); err != nil {
			out.Failure("Failed to delete existing project!")
			return err
		}

		out.Success("Project %s deleted successfully!", ref.Name)
		out.Progress("Deployed resources will be removed shortly...")
		return nil
	},
}

func init() {
	deleteProjectCmd.Flags().StringVar(&deleteOrg, "org", "", "project organization")
	deleteProjectCmd.Flags().StringVar(&deleteUser, "user", "", "project owner email")
	deleteProjectCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")

	deleteCmd.AddCommand(deleteProjectCmd)
	rootCmd.AddCommand(deleteCmd)
}
