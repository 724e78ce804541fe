package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/researchhub/internal/client"
	"github.com/markdave123-py/researchhub/internal/models"
)

func newWorkspaceCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List workspaces",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := e.requireLogin(); err != nil {
					return err
				}
				list := client.NewWorkspaceList(e.api)
				if err := list.Load(cmd.Context()); err != nil {
					return err
				}
				printWorkspaces(cmd.OutOrStdout(), list.Items(), e.sel.Active())
				return nil
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a workspace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := e.requireLogin(); err != nil {
					return err
				}
				list := client.NewWorkspaceList(e.api)
				ws, err := list.Create(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				// The first workspace becomes active so import and chat work right away.
				if len(list.Items()) == 1 {
					e.cfg.ActiveWorkspace = ws.ID
					if err := e.save(); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", titleStyle.Render(ws.Name), idStyle.Render(ws.ID))
				return nil
			},
		},
		&cobra.Command{
			Use:   "use <id|name>",
			Short: "Select the active workspace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := e.requireLogin(); err != nil {
					return err
				}
				list := client.NewWorkspaceList(e.api)
				if err := list.Load(cmd.Context()); err != nil {
					return err
				}
				ws, err := findWorkspace(list.Items(), args[0])
				if err != nil {
					return err
				}
				e.sel.Select(ws.ID)
				e.cfg.ActiveWorkspace = ws.ID
				if err := e.save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active workspace: %s\n", titleStyle.Render(ws.Name))
				return nil
			},
		},
	)
	return cmd
}

func findWorkspace(items []models.Workspace, ref string) (*models.Workspace, error) {
	var byName []models.Workspace
	for _, ws := range items {
		if ws.ID == ref {
			return &ws, nil
		}
		if ws.Name == ref {
			byName = append(byName, ws)
		}
	}
	switch len(byName) {
	case 0:
		return nil, fmt.Errorf("no workspace %q", ref)
	case 1:
		return &byName[0], nil
	default:
		return nil, fmt.Errorf("%d workspaces are named %q; use the id instead", len(byName), ref)
	}
}

func printWorkspaces(w io.Writer, items []models.Workspace, active string) {
	if len(items) == 0 {
		fmt.Fprintln(w, hintStyle.Render("No workspaces yet. Create one with `researchhub workspace create <name>`."))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Workspaces (%d)", len(items))))
	for _, ws := range items {
		marker := "  "
		if ws.ID == active {
			marker = activeStyle.Render("* ")
		}
		fmt.Fprintf(w, "%s%s  %s  %s\n", marker, titleStyle.Render(ws.Name), idStyle.Render(ws.ID),
			dateStyle.Render(ws.CreatedAt.Format("2006-01-02")))
	}
}
