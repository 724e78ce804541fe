package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/researchhub/internal/client"
	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

func newSearchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the external paper index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			found, err := e.api.SearchPapers(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				if errors.Is(err, core.ErrUpstream) {
					return fmt.Errorf("search is unavailable right now: %w", err)
				}
				return err
			}
			e.cfg.LastSearch = found
			if err := e.save(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, hintStyle.Render("No papers matched that query."))
				return nil
			}
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Results (%d)", len(found))))
			for i, c := range found {
				fmt.Fprintf(out, "%s %s\n", countStyle.Render(strconv.Itoa(i+1)+"."), titleStyle.Render(plain(c.Title)))
				fmt.Fprintf(out, "   %s  %s\n", plain(c.Authors), dateStyle.Render(c.PublishedDate))
			}
			fmt.Fprintln(out, hintStyle.Render("Import one with `researchhub import <n>`."))
			return nil
		},
	}
}

func newImportCmd(e *env) *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "import <n>",
		Short: "Import result n of the last search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > len(e.cfg.LastSearch) {
				return fmt.Errorf("pick a result between 1 and %d from the last search", len(e.cfg.LastSearch))
			}

			workspaces := client.NewWorkspaceList(e.api)
			if err := workspaces.Load(cmd.Context()); err != nil {
				return err
			}
			importer := client.NewImporter(e.api, workspaces, client.NewPaperList(e.api, e.sel))
			p, err := importer.Import(cmd.Context(), e.cfg.LastSearch[n-1], workspace)
			if errors.Is(err, core.ErrAmbiguousTarget) {
				printWorkspaces(cmd.ErrOrStderr(), workspaces.Items(), e.sel.Active())
				return fmt.Errorf("choose a target with --workspace <id>")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s %s\n", titleStyle.Render(plain(p.Title)), idStyle.Render(p.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "Target workspace id")
	return cmd
}

func newUploadCmd(e *env) *cobra.Command {
	var workspace string
	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF into the active workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			if workspace != "" {
				e.sel.Select(workspace)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := client.NewPaperList(e.api, e.sel).Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s %s\n", titleStyle.Render(plain(p.Title)), idStyle.Render(p.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "Target workspace id (defaults to the active one)")
	return cmd
}

func newPapersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "papers",
		Short: "List papers of the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			list := client.NewPaperList(e.api, e.sel)
			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			_, papers := list.Papers()
			printPapers(cmd.OutOrStdout(), papers)
			return nil
		},
	}
}

func printPapers(w io.Writer, papers []models.Paper) {
	if len(papers) == 0 {
		fmt.Fprintln(w, hintStyle.Render("No papers yet. Use `researchhub search` and `import`, or `upload`."))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Papers (%d)", len(papers))))
	for _, p := range papers {
		fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(plain(p.Title)), idStyle.Render(p.Origin))
		if p.Authors != "" || p.PublishedDate != "" {
			fmt.Fprintf(w, "   %s  %s\n", plain(p.Authors), dateStyle.Render(p.PublishedDate))
		}
	}
}
