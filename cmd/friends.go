package cmd

import (
	"fmt"

	"github.com/bnema/online-session-kit/internal/adapters/render/roster"
	"github.com/bnema/online-session-kit/internal/application"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/spf13/cobra"
)

func newFriendsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "List friends and manage friend invites",
	}

	cmd.AddCommand(
		newFriendsListCmd(app),
		newFriendInviteCmd(app, "invite", "Send a friend invite", "Invite sent to %s.", (*application.System).SendFriendInvite),
		newFriendInviteCmd(app, "accept", "Accept a friend invite", "Now friends with %s.", (*application.System).AcceptFriendInvite),
		newFriendInviteCmd(app, "reject", "Reject a friend invite", "Invite from %s rejected.", (*application.System).RejectFriendInvite),
	)

	return cmd
}

func newFriendsListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Query and show the friends roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				if err := s.run("Querying friends...", s.system.QueryFriends); err != nil {
					return err
				}

				friends := s.system.Friends()
				if asJSON {
					return writeJSON(cmd, friends)
				}
				return s.render(roster.View{Sections: roster.SectionFriends, Friends: friends})
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the roster as JSON")

	return cmd
}

type friendCall func(s *application.System, target domain.AccountID, done *application.Completion) error

func newFriendInviteCmd(app *app, use, short, success string, call friendCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ACCOUNT_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := domain.AccountID(args[0])
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				err := s.run("Contacting friends service...", func(done *application.Completion) error {
					return call(s.system, target, done)
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), success+"\n", target)
				return err
			})
		},
	}
}
