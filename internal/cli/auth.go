package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/researchhub/internal/client"
)

func newRegisterCmd(e *env) *cobra.Command {
	var req client.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.api.Register(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", titleStyle.Render(req.Username))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "Username (at least 3 characters)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (at least 6 characters)")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&req.Role, "role", "", "Role, e.g. student or professor")
	cmd.Flags().StringVar(&req.Institution, "institution", "", "Institution")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(e *env) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.api.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", titleStyle.Render(username))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and forget the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := e.api.Logout(cmd.Context())
			e.cfg.ActiveWorkspace = ""
			e.cfg.LastSearch = nil
			if saveErr := e.save(); saveErr != nil {
				return saveErr
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
