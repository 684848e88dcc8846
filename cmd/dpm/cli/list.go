package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/deploykit/dpm-cli/internal/domain"
	"github.com/deploykit/dpm-cli/internal/infrastructure/dpm_http"
	"github.com/spf13/cobra"
)

var (
	listSearch string
	listOrg    string
	listUser   string
	listStatus string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List Deploy Manager resources",
}

var listProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		projects, err := client.ListProjects(cmd.Context(), dpm_http.ProjectFilters{
			Search: listSearch,
			Org:    listOrg,
			User:   listUser,
			Status: listStatus,
		})
		if err != nil {
			return fmt.Errorf("could not list projects: %w", err)
		}
		if len(projects) == 0 {
			return fmt.Errorf("no projects found")
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(projects)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tORG\tREV\tSTATUS\tSTAGES")
		for _, p := range projects {
			rev := "-"
			if p.LastRevision != nil {
				rev = fmt.Sprintf("#%d", p.LastRevision.Number)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Org, rev, p.Status, stageSummary(p.Stages))
		}
		_ = w.Flush()
		return nil
	},
}

var listRoutesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List routes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		routes, err := client.ListRoutes(cmd.Context(), dpm_http.ProjectFilters{
			Search: listSearch,
			Org:    listOrg,
			User:   listUser,
			Status: listStatus,
		})
		if err != nil {
			return fmt.Errorf("could not list routes: %w", err)
		}
		if len(routes) == 0 {
			return fmt.Errorf("no routes found")
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(routes)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tSTAGE\tSTATUS\tURL")
		for _, r := range routes {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Stage, r.Status, r.URL)
		}
		_ = w.Flush()
		return nil
	},
}

func stageSummary(stages []domain.Stage) string {
	if len(stages) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		parts = append(parts, s.Name+"="+string(s.Status))
	}
	return strings.Join(parts, ",")
}

func init() {
	listCmd.PersistentFlags().StringVar(&listSearch, "search", "", "search by name or description")
	listCmd.PersistentFlags().StringVar(&listOrg, "org", "", "filter by organization name")
	listCmd.PersistentFlags().StringVar(&listUser, "user", "", "filter by user email")
	listCmd.PersistentFlags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.PersistentFlags().BoolVar(&listJSON, "json", false, "print JSON")

	listCmd.AddCommand(listProjectsCmd)
	listCmd.AddCommand(listRoutesCmd)
	rootCmd.AddCommand(listCmd)
}
