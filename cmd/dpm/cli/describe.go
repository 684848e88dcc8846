package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/deploykit/dpm-cli/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	describeOrg      string
	describeUserFlag string
	describeShowSpec bool
	describeOnlySpec bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe Deploy Manager resources",
}

var describeProjectCmd = &cobra.Command{
	Use:               "project <project_name>",
	Short:             "Describe a project",
	Args:              cobra.MatchAll(cobra.ExactArgs(1)),
	ValidArgsFunction: projectNameCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		project, err := client.GetProject(cmd.Context(), domain.ProjectRef{
			Name: args[0],
			Org:  describeOrg,
			User: describeUserFlag,
		})
		if err != nil {
			return fmt.Errorf("could not describe project: %w", err)
		}

		if project.LastRevision == nil {
			fmt.Printf("Project '%s' does not have any revisions!\n", args[0])
			return nil
		}

		if !describeOnlySpec {
			printProject(project)
		}

		if (describeShowSpec || describeOnlySpec) && project.LastRevision.Spec != nil {
			if !describeOnlySpec {
				fmt.Println()
				fmt.Println("Project Spec:")
				fmt.Println("---")
			}
			b, err := yaml.Marshal(project.LastRevision.Spec)
			if err != nil {
				return err
			}
			fmt.Print(string(b))
		}
		return nil
	},
}

var describeRouteCmd = &cobra.Command{
	Use:   "route <route_name>",
	Short: "Describe a route",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		route, err := client.GetRoute(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("could not describe route: %w", err)
		}

		fmt.Printf("  Name: %s\n", route.Name)
		fmt.Printf("  Stage: %s\n", route.Stage)
		fmt.Printf("  Status: %s\n", route.Status)
		fmt.Printf("  URL: %s\n", route.URL)
		if len(route.CustomDomains) > 0 {
			fmt.Printf("  Custom Domains: %s\n", strings.Join(route.CustomDomains, ", "))
		}
		return nil
	},
}

var describeUserCmd = &cobra.Command{
	Use:   "user",
	Short: "Describe Deploy Manager users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		users, err := client.GetUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not fetch users: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "USERNAME\tEMAIL\tCURRENT_ORG")
		for _, u := range users {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", u.Username, u.Email, u.CurrentOrg)
		}
		_ = w.Flush()
		return nil
	},
}

func printProject(p domain.Project) {
	fmt.Println()
	fmt.Println("Describing project...")
	fmt.Println()
	fmt.Printf("  Name: %s\n", p.Name)
	fmt.Printf("  Org: %s\n", p.Org)
	fmt.Printf("  User: %s\n", p.Owner)
	fmt.Printf("  Status: %s\n", p.Status)
	fmt.Printf("  Created: %s\n", p.CreatedAt)

	rev := p.LastRevision
	fmt.Println("  Last Revision:")
	fmt.Printf("    Number: %d\n", rev.Number)
	fmt.Printf("    Created: %s\n", rev.CreatedAt)
	fmt.Printf("    User: %s\n", rev.Author)
	fmt.Printf("    Status: %s\n", rev.Status)

	if len(p.Stages) > 0 {
		fmt.Println("  Stages:")
		for _, s := range p.Stages {
			fmt.Printf("  - Name: %s\n", s.Name)
			fmt.Printf("    Status: %s\n", s.Status)
			fmt.Printf("    Message: %s\n", s.ErrorMessage)
			fmt.Printf("    Updated: %s\n", s.UpdatedAt)
		}
	}
	if len(p.Builds) > 0 {
		fmt.Println("  Builds:")
		for _, b := range p.Builds {
			fmt.Printf("  - Name: %s\n", b.Name)
			fmt.Printf("    Status: %s\n", b.Status)
			fmt.Printf("    Stage: %s\n", b.Stage)
			fmt.Printf("    Workflow: %s\n", b.WorkflowRef)
			fmt.Printf("    Updated: %s\n", b.UpdatedAt)
			if b.ImageDigest != "" {
				fmt.Printf("    Image Digest: %s\n", b.ImageDigest)
			}
			if b.CommitSHA != "" {
				fmt.Printf("    Source Commit: %s\n", b.CommitSHA)
			}
		}
	}
	if len(p.Routes) > 0 {
		fmt.Println("  Routes:")
		for _, r := range p.Routes {
			fmt.Printf("  - Name: %s\n", r.Name)
			fmt.Printf("    Status: %s\n", r.Status)
			fmt.Printf("    URL: %s\n", r.URL)
			if len(r.CustomDomains) > 0 {
				fmt.Printf("    Custom Domains: %s\n", strings.Join(r.CustomDomains, ", "))
			}
		}
	}
}

func init() {
	describeProjectCmd.Flags().StringVar(&describeOrg, "org", "", "project organization")
	describeProjectCmd.Flags().StringVar(&describeUserFlag, "user", "", "project owner email")
	describeProjectCmd.Flags().BoolVar(&describeShowSpec, "show-spec", false, "show project spec")
	describeProjectCmd.Flags().BoolVar(&describeOnlySpec, "only-spec", false, "show only project spec")

	describeCmd.AddCommand(describeProjectCmd)
	describeCmd.AddCommand(describeRouteCmd)
	describeCmd.AddCommand(describeUserCmd)
	rootCmd.AddCommand(describeCmd)
}
