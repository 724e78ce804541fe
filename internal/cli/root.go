package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/researchhub/internal/client"
)

// env is the per-invocation state shared by all commands.
type env struct {
	cfgPath string
	server  string

	cfg     *Config
	session *client.Session
	api     *client.Client
	sel     *client.Selector
}

// load reads the config and wires the session. Failures to persist a
// changed credential are reported on warn.
func (e *env) load(warn io.Writer) error {
	cfg, err := LoadConfig(e.cfgPath)
	if err != nil {
		return err
	}
	if e.server != "" {
		cfg.BaseURL = e.server
	}
	e.cfg = cfg

	e.session = client.NewSession(cfg.AccessToken)
	e.session.OnChange(func(token string) {
		e.cfg.AccessToken = token
		if err := e.cfg.Save(e.cfgPath); err != nil {
			fmt.Fprintf(warn, "Warning: session not saved, you will need to sign in again: %v\n", err)
		}
	})
	e.api = client.New(cfg.BaseURL, e.session)
	e.sel = client.NewSelector(cfg.ActiveWorkspace)
	return nil
}

func (e *env) save() error {
	return e.cfg.Save(e.cfgPath)
}

func (e *env) requireLogin() error {
	if !e.session.Authenticated() {
		return fmt.Errorf("not signed in; run `researchhub login` first")
	}
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "researchhub",
		Short: "Organize papers into workspaces and chat about them",
		Long: `A terminal client for researchhub.

Quick Start:
  researchhub register --username ada --password secret1
  researchhub workspace create "ML Papers"
  researchhub search transformer
  researchhub import 1
  researchhub chat send "summarize this"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&e.cfgPath, "config", DefaultConfigPath(), "Path to the client config file")
	root.PersistentFlags().StringVar(&e.server, "server", "", "API base URL (overrides the config file)")

	root.AddCommand(
		newRegisterCmd(e),
		newLoginCmd(e),
		newLogoutCmd(e),
		newWorkspaceCmd(e),
		newSearchCmd(e),
		newImportCmd(e),
		newUploadCmd(e),
		newPapersCmd(e),
		newChatCmd(e),
		newDashboardCmd(e),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
