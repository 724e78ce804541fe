package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDashboardCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize workspaces, papers and chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			d, err := e.api.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render("Dashboard"))
			fmt.Fprintf(out, "Workspaces %s  Papers %s  Chats %s\n",
				countStyle.Render(fmt.Sprint(d.Workspaces)),
				countStyle.Render(fmt.Sprint(d.Papers)),
				countStyle.Render(fmt.Sprint(d.Chats)))
			if len(d.Recent) == 0 {
				return nil
			}
			fmt.Fprintln(out, headerStyle.Render("Recent"))
			for _, r := range d.Recent {
				fmt.Fprintf(out, "%s  %s  %s\n", titleStyle.Render(plain(r.Title)), idStyle.Render(r.Workspace), dateStyle.Render(r.Date))
			}
			return nil
		},
	}
}
