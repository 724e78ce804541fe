package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/researchhub/internal/client"
	"github.com/markdave123-py/researchhub/internal/models"
)

func newChatCmd(e *env) *cobra.Command {
	var asHTML, yes bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about the active workspace's papers",
	}
	cmd.PersistentFlags().BoolVar(&asHTML, "html", false, "Print answers as sanitized HTML")

	send := &cobra.Command{
		Use:   "send <message>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			papers := client.NewPaperList(e.api, e.sel)
			if err := papers.Load(cmd.Context()); err != nil {
				return err
			}
			msg, err := client.NewChatView(e.api, e.sel, papers).Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printMessage(cmd.OutOrStdout(), *msg, asHTML)
			return nil
		},
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Show the transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			view := client.NewChatView(e.api, e.sel, nil)
			if err := view.Load(cmd.Context()); err != nil {
				return err
			}
			_, msgs := view.Messages()
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, hintStyle.Render("No messages yet."))
				return nil
			}
			for _, m := range msgs {
				printMessage(out, m, asHTML)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the transcript (irreversible)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("this deletes the whole chat history; re-run with --yes to confirm")
			}
			if err := client.NewChatView(e.api, e.sel, nil).Clear(cmd.Context(), yes); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Chat history cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	cmd.AddCommand(send, history, clearCmd)
	return cmd
}

func printMessage(w io.Writer, m models.ChatMessage, asHTML bool) {
	fmt.Fprintf(w, "%s %s\n", youStyle.Render("You:"), plain(m.Question))
	answer := plain(m.Answer)
	if asHTML {
		answer = client.RenderAnswer(answer)
	}
	fmt.Fprintf(w, "%s %s\n\n", assistantStyle.Render("Assistant:"), answer)
}
