package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/online-session-kit/internal/adapters/render/roster"
	"github.com/bnema/online-session-kit/internal/application"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/spf13/cobra"
)

func newLobbyCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Create, search, join and manage lobbies",
	}

	cmd.AddCommand(
		newLobbyShowCmd(app),
		newLobbyCreateCmd(app),
		newLobbySearchCmd(app),
		newLobbyJoinCmd(app),
		newLobbyExitCmd(app, "leave", "Leave the current lobby", "Leaving lobby...", "Left lobby %s.", (*application.System).LeaveLobby),
		newLobbyExitCmd(app, "destroy", "Destroy the current lobby (owner only)", "Destroying lobby...", "Destroyed lobby %s.", (*application.System).DestroyLobby),
		newLobbyModifyCmd(app),
		newLobbyInviteCmd(app),
		newLobbyInvitesCmd(app),
		newLobbyInviteReplyCmd(app, "accept", "Accept a lobby invite and join its lobby", (*application.System).AcceptLobbyInvite,
			func(s *session, _ domain.InviteID) error { return s.renderCurrentLobby() }),
		newLobbyInviteReplyCmd(app, "reject", "Reject a lobby invite", (*application.System).RejectLobbyInvite,
			func(s *session, inviteID domain.InviteID) error {
				_, err := fmt.Fprintf(s.cmd.OutOrStdout(), "Invite %s rejected.\n", inviteID)
				return err
			}),
	)

	return cmd
}

func (s *session) renderCurrentLobby() error {
	lobby, ok := s.system.CurrentLobby()
	return s.render(roster.View{Sections: roster.SectionLobby, Lobby: lobby, InLobby: ok})
}

func newLobbyShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current lobby",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				return s.renderCurrentLobby()
			})
		},
	}
}

func bindLobbyChanges(cmd *cobra.Command, changes *domain.LobbyChanges) {
	cmd.Flags().StringVar(&changes.Name, "name", "", "Lobby name")
	cmd.Flags().StringVar(&changes.Map, "map", "", "Map attribute")
	cmd.Flags().StringVar(&changes.Mode, "mode", "", "Game mode attribute")
	cmd.Flags().IntVar(&changes.MaxMembers, "max-members", 0, "Member capacity")
}

func hasChanges(changes domain.LobbyChanges) bool {
	return len(changes.Attributes()) > 0 || changes.MaxMembers > 0
}

func newLobbyCreateCmd(app *app) *cobra.Command {
	var changes domain.LobbyChanges

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lobby in the configured bucket and join it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				if err := s.run("Creating lobby...", s.system.CreateLobby); err != nil {
					return err
				}
				if hasChanges(changes) {
					err := s.run("Updating lobby...", func(done *application.Completion) error {
						return s.system.ModifyCurrentLobby(changes, done)
					})
					if err != nil {
						return err
					}
				}
				return s.renderCurrentLobby()
			})
		},
	}

	bindLobbyChanges(cmd, &changes)

	return cmd
}

func newLobbyModifyCmd(app *app) *cobra.Command {
	var changes domain.LobbyChanges

	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Change the current lobby's attributes (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !hasChanges(changes) {
				return fmt.Errorf("nothing to change: set at least one of --name, --map, --mode, --max-members")
			}
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				err := s.run("Updating lobby...", func(done *application.Completion) error {
					return s.system.ModifyCurrentLobby(changes, done)
				})
				if err != nil {
					return err
				}
				return s.renderCurrentLobby()
			})
		},
	}

	bindLobbyChanges(cmd, &changes)

	return cmd
}

func newLobbySearchCmd(app *app) *cobra.Command {
	var (
		rawFilters []string
		maxResults int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search lobbies in the configured bucket",
		Long:  "search finds lobbies in the configured bucket. Filters are key=value (equal), key!=value (not equal) or key~value (contains, case-insensitive).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, err := parseFilters(rawFilters)
			if err != nil {
				return err
			}
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				err := s.run("Searching lobbies...", func(done *application.Completion) error {
					return s.system.SearchLobbies(filters, maxResults, done)
				})
				if err != nil {
					return err
				}

				results := s.system.SearchResults()
				if asJSON {
					return writeJSON(cmd, results)
				}
				return s.render(roster.View{Sections: roster.SectionSearch, Results: results})
			})
		},
	}

	cmd.Flags().StringArrayVar(&rawFilters, "filter", nil, "Attribute filter (key=value, key!=value, key~value); repeatable")
	cmd.Flags().IntVar(&maxResults, "max", 0, "Maximum results (0 uses lobby.search_max_results)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

func parseFilters(raw []string) ([]domain.SearchFilter, error) {
	filters := make([]domain.SearchFilter, 0, len(raw))
	for _, expr := range raw {
		filter, err := parseFilter(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

func parseFilter(expr string) (domain.SearchFilter, error) {
	for _, candidate := range []struct {
		sep string
		op  domain.ComparisonOp
	}{
		{sep: "!=", op: domain.CompareNotEqual},
		{sep: "~", op: domain.CompareContains},
		{sep: "=", op: domain.CompareEqual},
	} {
		key, value, ok := strings.Cut(expr, candidate.sep)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			break
		}
		return domain.SearchFilter{Key: key, Value: value, Op: candidate.op}, nil
	}
	return domain.SearchFilter{}, fmt.Errorf("invalid filter %q: want key=value, key!=value or key~value", expr)
}

func newLobbyJoinCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join LOBBY_ID",
		Short: "Join a lobby by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lobbyID := domain.LobbyID(args[0])
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				err := s.run("Joining lobby...", func(done *application.Completion) error {
					return s.system.JoinLobby(lobbyID, done)
				})
				if err != nil {
					return err
				}
				return s.renderCurrentLobby()
			})
		},
	}
}

type lobbyExitCall func(s *application.System, done *application.Completion) error

func newLobbyExitCmd(app *app, use, short, label, success string, call lobbyExitCall) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				current, _ := s.system.CurrentLobby()
				err := s.run(label, func(done *application.Completion) error {
					return call(s.system, done)
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), success+"\n", current.LobbyID)
				return err
			})
		},
	}
}

func newLobbyInviteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invite SESSION_ID",
		Short: "Invite a user to the current lobby by session id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := domain.SessionID(args[0])
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				err := s.run("Sending invite...", func(done *application.Completion) error {
					return s.system.SendLobbyInvite(target, done)
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Invite sent to %s.\n", target)
				return err
			})
		},
	}
}

func newLobbyInvitesCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invites",
		Short: "List pending lobby invites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				invites := s.platform.PendingInvites(s.system.Identity().SessionID)
				out := cmd.OutOrStdout()
				if len(invites) == 0 {
					_, err := fmt.Fprintln(out, "No pending invites.")
					return err
				}
				for _, inv := range invites {
					if _, err := fmt.Fprintf(out, "%s  lobby %s  from %s\n", inv.ID, inv.LobbyID, inv.From); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

type inviteReplyCall func(s *application.System, inviteID domain.InviteID, done *application.Completion) error

func newLobbyInviteReplyCmd(app *app, use, short string, call inviteReplyCall, report func(*session, domain.InviteID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " INVITE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inviteID := domain.InviteID(args[0])
			return app.withSession(cmd, func(s *session) error {
				if err := s.signIn(); err != nil {
					return err
				}
				err := s.run("Answering invite...", func(done *application.Completion) error {
					return call(s.system, inviteID, done)
				})
				if err != nil {
					return err
				}
				return report(s, inviteID)
			})
		},
	}
}
