package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/online-session-kit/internal/adapters/platform/sandbox"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/spf13/cobra"
)

var friendStatusFlags = map[string]domain.FriendStatus{
	"friends":         domain.FriendStatusFriends,
	"invite-sent":     domain.FriendStatusInviteSent,
	"invite-received": domain.FriendStatusInviteReceived,
	"blocked":         domain.FriendStatusBlocked,
	"not-friends":     domain.FriendStatusNotFriends,
}

var presenceFlags = map[string]domain.PresenceStatus{
	"offline":  domain.PresenceOffline,
	"online":   domain.PresenceOnline,
	"away":     domain.PresenceAway,
	"busy":     domain.PresenceBusy,
	"joinable": domain.PresenceJoinable,
	"in-lobby": domain.PresenceInLobby,
	"in-match": domain.PresenceInMatch,
}

func lookupFlag[T any](kind string, values map[string]T, raw string) (T, error) {
	if value, ok := values[strings.ToLower(raw)]; ok {
		return value, nil
	}
	var zero T
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	return zero, fmt.Errorf("unknown %s %q (want one of %s)", kind, raw, strings.Join(names, ", "))
}

func newSandboxCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Seed and inspect the local sandbox platform",
	}

	cmd.AddCommand(
		newSandboxAccountCmd(app),
		newSandboxFriendCmd(app),
		newSandboxPresenceCmd(app),
	)

	return cmd
}

func newSandboxAccountCmd(app *app) *cobra.Command {
	var (
		name       string
		presence   string
		persistent bool
	)

	cmd := &cobra.Command{
		Use:   "account ACCOUNT_ID",
		Short: "Create or update a sandbox account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := lookupFlag("presence", presenceFlags, presence)
			if err != nil {
				return err
			}
			return app.withSession(cmd, func(s *session) error {
				s.platform.SeedAccount(sandbox.AccountSeed{
					ID:          domain.AccountID(args[0]),
					DisplayName: name,
					Presence:    status,
					Persistent:  persistent,
				})
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Account %s saved.\n", args[0])
				return err
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&presence, "presence", "offline", "Presence status")
	cmd.Flags().BoolVar(&persistent, "persistent", false, "Make this the device's persistent session")

	return cmd
}

func newSandboxFriendCmd(app *app) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "friend LOCAL_ID TARGET_ID",
		Short: "Record a relationship between two sandbox accounts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			relation, err := lookupFlag("friend status", friendStatusFlags, status)
			if err != nil {
				return err
			}
			local, target := domain.AccountID(args[0]), domain.AccountID(args[1])
			return app.withSession(cmd, func(s *session) error {
				for _, id := range []domain.AccountID{local, target} {
					if !s.platform.HasAccount(id) {
						return fmt.Errorf("sandbox account %s does not exist", id)
					}
				}
				s.platform.SeedFriendship(local, target, relation)
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %s\n", local, target, relation)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "friends", "Relationship status")

	return cmd
}

func newSandboxPresenceCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presence ACCOUNT_ID STATUS",
		Short: "Set a sandbox account's presence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := lookupFlag("presence", presenceFlags, args[1])
			if err != nil {
				return err
			}
			accountID := domain.AccountID(args[0])
			return app.withSession(cmd, func(s *session) error {
				if !s.platform.HasAccount(accountID) {
					return fmt.Errorf("sandbox account %s does not exist", accountID)
				}
				s.platform.SetPresence(accountID, status)
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", accountID, status)
				return err
			})
		},
	}
}
