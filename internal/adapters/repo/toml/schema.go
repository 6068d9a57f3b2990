package toml

import (
	"fmt"

	"github.com/bnema/online-session-kit/internal/adapters/platform/sandbox"
	"github.com/bnema/online-session-kit/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version           int                `toml:"version"`
	PersistentAccount string             `toml:"persistent_account,omitempty"`
	Accounts          []accountSchema    `toml:"accounts"`
	Friendships       []friendshipSchema `toml:"friendships"`
	RefreshTokens     []tokenSchema      `toml:"refresh_tokens"`
	Lobbies           []lobbySchema      `toml:"lobbies"`
	Invites           []inviteSchema     `toml:"invites"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported world schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID          string `toml:"id"`
	DisplayName string `toml:"display_name,omitempty"`
	Presence    string `toml:"presence"`
	SessionID   string `toml:"session_id,omitempty"`
}

type friendshipSchema struct {
	Local  string `toml:"local"`
	Target string `toml:"target"`
	Status string `toml:"status"`
}

type tokenSchema struct {
	Token     string `toml:"token"`
	AccountID string `toml:"account_id"`
}

type lobbySchema struct {
	ID              string            `toml:"id"`
	Owner           string            `toml:"owner"`
	Members         []string          `toml:"members"`
	MaxMembers      int               `toml:"max_members"`
	Bucket          string            `toml:"bucket"`
	Permission      string            `toml:"permission"`
	PresenceEnabled bool              `toml:"presence_enabled"`
	AllowInvites    bool              `toml:"allow_invites"`
	Attributes      map[string]string `toml:"attributes,omitempty"`
}

type inviteSchema struct {
	ID      string `toml:"id"`
	LobbyID string `toml:"lobby_id"`
	From    string `toml:"from"`
	To      string `toml:"to"`
}

var friendStatusNames = map[domain.FriendStatus]string{
	domain.FriendStatusUnknown:        "unknown",
	domain.FriendStatusNotFriends:     "not_friends",
	domain.FriendStatusInviteSent:     "invite_sent",
	domain.FriendStatusInviteReceived: "invite_received",
	domain.FriendStatusFriends:        "friends",
	domain.FriendStatusBlocked:        "blocked",
}

var presenceNames = map[domain.PresenceStatus]string{
	domain.PresenceOffline:  "offline",
	domain.PresenceOnline:   "online",
	domain.PresenceAway:     "away",
	domain.PresenceBusy:     "busy",
	domain.PresenceJoinable: "joinable",
	domain.PresenceInLobby:  "in_lobby",
	domain.PresenceInMatch:  "in_match",
}

var permissionNames = map[domain.LobbyPermission]string{
	domain.LobbyPublicAdvertised: "public",
	domain.LobbyJoinViaPresence:  "presence",
	domain.LobbyInviteOnly:       "invite_only",
}

func encodeName[T comparable](names map[T]string, value T) string {
	if name, ok := names[value]; ok {
		return name
	}
	var zero T
	return names[zero]
}

func decodeName[T comparable](kind string, names map[T]string, raw string) (T, error) {
	for value, name := range names {
		if name == raw {
			return value, nil
		}
	}
	var zero T
	if raw == "" {
		return zero, nil
	}
	return zero, fmt.Errorf("unknown %s %q", kind, raw)
}

func toSchema(world sandbox.World) fileSchema {
	file := fileSchema{
		Version:           currentSchemaVersion,
		PersistentAccount: string(world.PersistentAccount),
	}

	for _, acc := range world.Accounts {
		file.Accounts = append(file.Accounts, accountSchema{
			ID:          string(acc.ID),
			DisplayName: acc.DisplayName,
			Presence:    encodeName(presenceNames, acc.Presence),
			SessionID:   string(acc.SessionID),
		})
	}
	for _, f := range world.Friendships {
		file.Friendships = append(file.Friendships, friendshipSchema{
			Local:  string(f.Local),
			Target: string(f.Target),
			Status: encodeName(friendStatusNames, f.Status),
		})
	}
	for _, token := range world.RefreshTokens {
		file.RefreshTokens = append(file.RefreshTokens, tokenSchema{Token: token.Token, AccountID: string(token.AccountID)})
	}
	for _, l := range world.Lobbies {
		members := make([]string, 0, len(l.Members))
		for _, member := range l.Members {
			members = append(members, string(member))
		}
		file.Lobbies = append(file.Lobbies, lobbySchema{
			ID:              string(l.ID),
			Owner:           string(l.Owner),
			Members:         members,
			MaxMembers:      l.MaxMembers,
			Bucket:          l.Bucket,
			Permission:      encodeName(permissionNames, l.Permission),
			PresenceEnabled: l.PresenceEnabled,
			AllowInvites:    l.AllowInvites,
			Attributes:      l.Attributes,
		})
	}
	for _, inv := range world.Invites {
		file.Invites = append(file.Invites, inviteSchema{
			ID:      string(inv.ID),
			LobbyID: string(inv.LobbyID),
			From:    string(inv.From),
			To:      string(inv.To),
		})
	}

	return file
}

func fromSchema(file fileSchema) (sandbox.World, error) {
	world := sandbox.World{PersistentAccount: domain.AccountID(file.PersistentAccount)}

	for _, acc := range file.Accounts {
		presence, err := decodeName("presence", presenceNames, acc.Presence)
		if err != nil {
			return sandbox.World{}, fmt.Errorf("account %s: %w", acc.ID, err)
		}
		world.Accounts = append(world.Accounts, sandbox.AccountSeed{
			ID:          domain.AccountID(acc.ID),
			DisplayName: acc.DisplayName,
			Presence:    presence,
			SessionID:   domain.SessionID(acc.SessionID),
		})
	}
	for _, f := range file.Friendships {
		status, err := decodeName("friend status", friendStatusNames, f.Status)
		if err != nil {
			return sandbox.World{}, fmt.Errorf("friendship %s -> %s: %w", f.Local, f.Target, err)
		}
		world.Friendships = append(world.Friendships, sandbox.Friendship{
			Local:  domain.AccountID(f.Local),
			Target: domain.AccountID(f.Target),
			Status: status,
		})
	}
	for _, token := range file.RefreshTokens {
		world.RefreshTokens = append(world.RefreshTokens, sandbox.RefreshToken{Token: token.Token, AccountID: domain.AccountID(token.AccountID)})
	}
	for _, l := range file.Lobbies {
		permission, err := decodeName("lobby permission", permissionNames, l.Permission)
		if err != nil {
			return sandbox.World{}, fmt.Errorf("lobby %s: %w", l.ID, err)
		}
		members := make([]domain.SessionID, 0, len(l.Members))
		for _, member := range l.Members {
			members = append(members, domain.SessionID(member))
		}
		world.Lobbies = append(world.Lobbies, sandbox.LobbySeed{
			ID:              domain.LobbyID(l.ID),
			Owner:           domain.SessionID(l.Owner),
			Members:         members,
			MaxMembers:      l.MaxMembers,
			Bucket:          l.Bucket,
			Permission:      permission,
			PresenceEnabled: l.PresenceEnabled,
			AllowInvites:    l.AllowInvites,
			Attributes:      l.Attributes,
		})
	}
	for _, inv := range file.Invites {
		world.Invites = append(world.Invites, sandbox.Invite{
			ID:      domain.InviteID(inv.ID),
			LobbyID: domain.LobbyID(inv.LobbyID),
			From:    domain.SessionID(inv.From),
			To:      domain.SessionID(inv.To),
		})
	}

	return world, nil
}
