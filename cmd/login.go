package cmd

import (
	"fmt"

	"github.com/bnema/online-session-kit/internal/adapters/render/roster"
	"github.com/bnema/online-session-kit/internal/application"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	var portal bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with the stored credential, or through the account portal",
		Long:  "login signs in with the stored refresh token or the device's persistent session. With --portal it signs in through the account portal as sandbox.portal_account instead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				start := func(done *application.Completion) error {
					return s.system.Login(s.ctx(), done)
				}
				if portal {
					start = func(done *application.Completion) error {
						return s.system.LoginInteractive(s.ctx(), done)
					}
				}

				if err := s.run("Signing in...", start); err != nil {
					return err
				}
				return s.render(roster.View{Sections: roster.SectionSession, Identity: s.system.Identity()})
			})
		},
	}

	cmd.Flags().BoolVar(&portal, "portal", false, "Sign in through the account portal")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored refresh token",
		Long:  "logout signs out and deletes the stored refresh token; the device's persistent session is kept. With --hard the connect session is ended and the persistent session revoked as well.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					s.logger.Debug().Err(err).Msg("no live session to sign out of")
				}

				if hard {
					err := s.run("Signing out...", func(done *application.Completion) error {
						return s.system.HardLogout(s.ctx(), done)
					})
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(s.cmd.OutOrStdout(), "Signed out. Persistent session revoked.")
					return err
				}

				if err := s.system.Logout(s.ctx()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(s.cmd.OutOrStdout(), "Signed out.")
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "Also end the connect session and revoke the persistent session")

	return cmd
}
