package sandbox

import (
	"context"
	"maps"
	"slices"
	"sort"

	"github.com/bnema/online-session-kit/internal/domain"
)

// World is the durable part of a sandbox: everything except live logins,
// caches, queued completions and open handles.
type World struct {
	PersistentAccount domain.AccountID
	Accounts          []AccountSeed
	Friendships       []Friendship
	RefreshTokens     []RefreshToken
	Lobbies           []LobbySeed
	Invites           []Invite
}

type Friendship struct {
	Local  domain.AccountID
	Target domain.AccountID
	Status domain.FriendStatus
}

type RefreshToken struct {
	Token     string
	AccountID domain.AccountID
}

type Invite struct {
	ID      domain.InviteID
	LobbyID domain.LobbyID
	From    domain.SessionID
	To      domain.SessionID
}

// WorldStore loads and saves sandbox worlds between process runs.
type WorldStore interface {
	Load(ctx context.Context) (World, error)
	Save(ctx context.Context, world World) error
}

func NewFromWorld(cfg Config, world World) *Platform {
	p := New(cfg)
	p.Restore(world)
	return p
}

// Restore seeds the world into p. Friendships are applied one-sided, exactly as stored.
func (p *Platform) Restore(world World) {
	for _, acc := range world.Accounts {
		p.SeedAccount(acc)
	}
	for _, f := range world.Friendships {
		if acc, ok := p.accounts[f.Local]; ok && f.Status != domain.FriendStatusNotFriends {
			acc.friends[f.Target] = f.Status
		}
	}
	for _, token := range world.RefreshTokens {
		p.SeedRefreshToken(token.Token, token.AccountID)
	}
	for _, l := range world.Lobbies {
		p.SeedLobby(l)
	}
	for _, inv := range world.Invites {
		p.invites[inv.ID] = &invite{id: inv.ID, lobbyID: inv.LobbyID, from: inv.From, to: inv.To}
	}
	if world.PersistentAccount != "" {
		p.persistentAccount = world.PersistentAccount
	}
}

// Snapshot returns the world in a deterministic order.
func (p *Platform) Snapshot() World {
	world := World{PersistentAccount: p.persistentAccount}

	accountIDs := slices.Sorted(maps.Keys(p.accounts))
	for _, id := range accountIDs {
		acc := p.accounts[id]
		world.Accounts = append(world.Accounts, AccountSeed{
			ID:          acc.id,
			DisplayName: acc.displayName,
			Presence:    acc.presence,
			SessionID:   acc.sessionID,
		})
		for _, target := range slices.Sorted(maps.Keys(acc.friends)) {
			world.Friendships = append(world.Friendships, Friendship{Local: id, Target: target, Status: acc.friends[target]})
		}
	}

	for _, token := range slices.Sorted(maps.Keys(p.refreshTokens)) {
		world.RefreshTokens = append(world.RefreshTokens, RefreshToken{Token: token, AccountID: p.refreshTokens[token]})
	}

	for _, id := range slices.Sorted(maps.Keys(p.lobbies)) {
		l := p.lobbies[id]
		attrs := maps.Clone(l.attributes)
		bucket := attrs[domain.BucketAttributeKey]
		delete(attrs, domain.BucketAttributeKey)
		world.Lobbies = append(world.Lobbies, LobbySeed{
			ID:              l.id,
			Owner:           l.owner,
			Members:         append([]domain.SessionID(nil), l.members...),
			MaxMembers:      l.maxMembers,
			Bucket:          bucket,
			Permission:      l.permission,
			PresenceEnabled: l.presenceEnabled,
			AllowInvites:    l.allowInvites,
			Attributes:      attrs,
		})
	}

	invites := make([]Invite, 0, len(p.invites))
	for _, inv := range p.invites {
		invites = append(invites, Invite{ID: inv.id, LobbyID: inv.lobbyID, From: inv.from, To: inv.to})
	}
	sort.Slice(invites, func(i, j int) bool { return invites[i].ID < invites[j].ID })
	world.Invites = invites

	return world
}
