package sandbox

import (
	"maps"
	"slices"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/ports"
)

type AccountSeed struct {
	ID          domain.AccountID
	DisplayName string
	Presence    domain.PresenceStatus
	// SessionID pins the connect identity. Empty means one is issued on first connect login.
	SessionID domain.SessionID
	// Persistent marks the account as holding the device's persistent session.
	Persistent bool
}

func (p *Platform) SeedAccount(seed AccountSeed) {
	acc, ok := p.accounts[seed.ID]
	if !ok {
		acc = &account{id: seed.ID, friends: map[domain.AccountID]domain.FriendStatus{}}
		p.accounts[seed.ID] = acc
	}
	acc.displayName = seed.DisplayName
	acc.presence = seed.Presence
	if seed.SessionID != "" {
		acc.sessionID = seed.SessionID
		p.sessions[seed.SessionID] = seed.ID
	}
	if seed.Persistent {
		p.persistentAccount = seed.ID
	}
}

// SeedFriendship records a relationship without raising notifications. The
// reciprocal side is filled for Friends and pending invites.
func (p *Platform) SeedFriendship(local, target domain.AccountID, status domain.FriendStatus) {
	if acc, ok := p.accounts[local]; ok && status != domain.FriendStatusNotFriends {
		acc.friends[target] = status
	}

	other, ok := p.accounts[target]
	if !ok {
		return
	}
	switch status {
	case domain.FriendStatusFriends:
		other.friends[local] = domain.FriendStatusFriends
	case domain.FriendStatusInviteSent:
		other.friends[local] = domain.FriendStatusInviteReceived
	case domain.FriendStatusInviteReceived:
		other.friends[local] = domain.FriendStatusInviteSent
	}
}

func (p *Platform) SeedRefreshToken(token string, accountID domain.AccountID) {
	p.refreshTokens[token] = accountID
	p.issued[accountID] = domain.AuthToken{AccountID: accountID, RefreshToken: token}
}

type LobbySeed struct {
	ID              domain.LobbyID
	Owner           domain.SessionID
	Members         []domain.SessionID
	Name            string
	Map             string
	Mode            string
	MaxMembers      int
	Bucket          string
	Permission      domain.LobbyPermission
	PresenceEnabled bool
	AllowInvites    bool
	Attributes      map[string]string
}

// SeedLobby creates a lobby directly. Members defaults to the owner alone,
// MaxMembers to 4 and Bucket to the default bucket.
func (p *Platform) SeedLobby(seed LobbySeed) {
	members := append([]domain.SessionID(nil), seed.Members...)
	if len(members) == 0 && seed.Owner != "" {
		members = []domain.SessionID{seed.Owner}
	}
	maxMembers := seed.MaxMembers
	if maxMembers <= 0 {
		maxMembers = domain.DefaultLobbyMaxMembers
	}
	bucket := seed.Bucket
	if bucket == "" {
		bucket = domain.DefaultBucket
	}

	attrs := map[string]string{domain.BucketAttributeKey: bucket}
	for key, value := range seed.Attributes {
		attrs[key] = value
	}
	for key, value := range map[string]string{
		domain.LobbyAttributeName: seed.Name,
		domain.LobbyAttributeMap:  seed.Map,
		domain.LobbyAttributeMode: seed.Mode,
	} {
		if value != "" {
			attrs[key] = value
		}
	}

	p.lobbies[seed.ID] = &lobby{
		id:              seed.ID,
		owner:           seed.Owner,
		members:         members,
		maxMembers:      maxMembers,
		permission:      seed.Permission,
		presenceEnabled: seed.PresenceEnabled,
		allowInvites:    seed.AllowInvites,
		attributes:      attrs,
	}
}

// SetFriendStatus changes one side of a relationship and pushes the delta.
func (p *Platform) SetFriendStatus(local, target domain.AccountID, status domain.FriendStatus) {
	p.setFriendStatus(local, target, status)
}

// SetPresence changes an account's presence and notifies every signed-in
// account that has a relationship with it.
func (p *Platform) SetPresence(accountID domain.AccountID, presence domain.PresenceStatus) {
	acc, ok := p.accounts[accountID]
	if !ok {
		return
	}
	acc.presence = presence

	for localID := range p.authLoggedIn {
		local, ok := p.accounts[localID]
		if !ok {
			continue
		}
		if _, related := local.friends[accountID]; !related {
			continue
		}
		push(p, &p.presenceChanges, ports.PresenceChanged{LocalAccountID: localID, PresenceUserID: accountID})
	}
}

// InviteToLobby raises an invite from a member of lobbyID to target.
func (p *Platform) InviteToLobby(from domain.SessionID, lobbyID domain.LobbyID, target domain.SessionID) domain.InviteID {
	return p.raiseInvite(from, lobbyID, target)
}

// KickMember removes member from the lobby and pushes the member update.
func (p *Platform) KickMember(lobbyID domain.LobbyID, member domain.SessionID) {
	l, ok := p.lobbies[lobbyID]
	if !ok {
		return
	}
	kept := l.members[:0]
	for _, id := range l.members {
		if id != member {
			kept = append(kept, id)
		}
	}
	l.members = kept
	push(p, &p.memberUpdates, ports.LobbyMemberUpdate{LobbyID: lobbyID, MemberID: member, Change: domain.MemberKicked})
}

// TouchLobby pushes an update notification for lobbyID without changing it.
func (p *Platform) TouchLobby(lobbyID domain.LobbyID) {
	push(p, &p.lobbyUpdates, ports.LobbyUpdateReceived{LobbyID: lobbyID})
}

func (p *Platform) LobbyMembers(lobbyID domain.LobbyID) []domain.SessionID {
	l, ok := p.lobbies[lobbyID]
	if !ok {
		return nil
	}
	return append([]domain.SessionID(nil), l.members...)
}

func (p *Platform) LobbyAttribute(lobbyID domain.LobbyID, key string) (string, bool) {
	l, ok := p.lobbies[lobbyID]
	if !ok {
		return "", false
	}
	value, ok := l.attributes[key]
	return value, ok
}

func (p *Platform) LobbyMaxMembers(lobbyID domain.LobbyID) int {
	if l, ok := p.lobbies[lobbyID]; ok {
		return l.maxMembers
	}
	return 0
}

func (p *Platform) HasLobby(lobbyID domain.LobbyID) bool {
	_, ok := p.lobbies[lobbyID]
	return ok
}

func (p *Platform) ConnectedSession(accountID domain.AccountID) (domain.SessionID, bool) {
	acc, ok := p.accounts[accountID]
	if !ok || acc.sessionID == "" {
		return "", false
	}
	return acc.sessionID, p.connected[acc.sessionID]
}

func (p *Platform) AuthLoggedIn(accountID domain.AccountID) bool {
	return p.authLoggedIn[accountID]
}

func (p *Platform) PersistentAccount() domain.AccountID {
	return p.persistentAccount
}

func (p *Platform) RefreshTokenValid(token string) bool {
	_, ok := p.refreshTokens[token]
	return ok
}

// MemberLobby returns the first lobby, by id, that lists member.
func (p *Platform) MemberLobby(member domain.SessionID) (domain.LobbyID, bool) {
	for _, id := range slices.Sorted(maps.Keys(p.lobbies)) {
		if p.lobbies[id].hasMember(member) {
			return id, true
		}
	}
	return "", false
}

// PendingInvites lists the lobby invites addressed to member, ordered by id.
func (p *Platform) PendingInvites(member domain.SessionID) []Invite {
	var invites []Invite
	for _, id := range slices.Sorted(maps.Keys(p.invites)) {
		inv := p.invites[id]
		if inv.to == member {
			invites = append(invites, Invite{ID: inv.id, LobbyID: inv.lobbyID, From: inv.from, To: inv.to})
		}
	}
	return invites
}

func (p *Platform) HasAccount(accountID domain.AccountID) bool {
	_, ok := p.accounts[accountID]
	return ok
}
