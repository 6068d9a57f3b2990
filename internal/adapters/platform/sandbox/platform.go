// Package sandbox is an in-process online-services backend. It keeps the
// callback, handle and notification semantics of a real platform SDK so the
// orchestration layer can be exercised deterministically. A Platform is not
// safe for concurrent use; drive it from the goroutine that calls Tick.
package sandbox

import (
	"sort"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Op string

const (
	OpAuthLogin            Op = "auth.login"
	OpAuthLogout           Op = "auth.logout"
	OpDeletePersistentAuth Op = "auth.delete_persistent_auth"
	OpCopyUserAuthToken    Op = "auth.copy_user_auth_token"
	OpConnectLogin         Op = "connect.login"
	OpConnectLogout        Op = "connect.logout"
	OpQueryMappings        Op = "connect.query_mappings"
	OpQueryUserInfo        Op = "userinfo.query"
	OpQueryFriends         Op = "friends.query"
	OpSendFriendInvite     Op = "friends.send_invite"
	OpAcceptFriendInvite   Op = "friends.accept_invite"
	OpRejectFriendInvite   Op = "friends.reject_invite"
	OpQueryPresence        Op = "presence.query"
	OpCreateLobby          Op = "lobby.create"
	OpDestroyLobby         Op = "lobby.destroy"
	OpJoinLobby            Op = "lobby.join"
	OpLeaveLobby           Op = "lobby.leave"
	OpUpdateLobby          Op = "lobby.update"
	OpFindLobbies          Op = "lobby.find"
	OpSendLobbyInvite      Op = "lobby.send_invite"
	OpRejectLobbyInvite    Op = "lobby.reject_invite"
	OpCopyLobbyDetails     Op = "lobby.copy_details"
)

type HandleKind string

const (
	HandleLobbyDetails      HandleKind = "lobby_details"
	HandleLobbySearch       HandleKind = "lobby_search"
	HandleLobbyModification HandleKind = "lobby_modification"
)

const (
	maxSearchResults = 200
	maxLobbyMembers  = 64
)

type Config struct {
	SandboxID    string
	DeploymentID string
	// PortalAccount is the account an interactive portal login signs in as.
	// Empty simulates the user closing the portal.
	PortalAccount domain.AccountID
	Logger        zerolog.Logger
}

type account struct {
	id          domain.AccountID
	displayName string
	presence    domain.PresenceStatus
	sessionID   domain.SessionID
	friends     map[domain.AccountID]domain.FriendStatus
}

type Platform struct {
	cfg    Config
	logger zerolog.Logger

	queue []func()

	accounts          map[domain.AccountID]*account
	sessions          map[domain.SessionID]domain.AccountID
	persistentAccount domain.AccountID
	refreshTokens     map[string]domain.AccountID
	accessTokens      map[string]domain.AccountID
	issued            map[domain.AccountID]domain.AuthToken
	authLoggedIn      map[domain.AccountID]bool
	connected         map[domain.SessionID]bool
	withholdAccess    bool

	userInfoCache map[domain.AccountID]bool
	presenceCache map[domain.AccountID]bool
	mappingCache  map[domain.AccountID]bool
	friendsCache  map[domain.AccountID][]domain.AccountID

	lobbies map[domain.LobbyID]*lobby
	invites map[domain.InviteID]*invite

	faults map[Op][]domain.Result

	nextNotificationID ports.NotificationID
	friendsUpdates     notifier[ports.FriendsUpdate]
	presenceChanges    notifier[ports.PresenceChanged]
	lobbyInvites       notifier[ports.LobbyInviteReceived]
	lobbyUpdates       notifier[ports.LobbyUpdateReceived]
	memberUpdates      notifier[ports.LobbyMemberUpdate]

	openHandles    int
	releaseCounts  map[HandleKind]int
	doubleReleases int
	released       bool

	newID func() string
}

var _ ports.Platform = (*Platform)(nil)

func New(cfg Config) *Platform {
	return &Platform{
		cfg:             cfg,
		logger:          cfg.Logger.With().Str("component", "sandbox").Logger(),
		accounts:        map[domain.AccountID]*account{},
		sessions:        map[domain.SessionID]domain.AccountID{},
		refreshTokens:   map[string]domain.AccountID{},
		accessTokens:    map[string]domain.AccountID{},
		issued:          map[domain.AccountID]domain.AuthToken{},
		authLoggedIn:    map[domain.AccountID]bool{},
		connected:       map[domain.SessionID]bool{},
		userInfoCache:   map[domain.AccountID]bool{},
		presenceCache:   map[domain.AccountID]bool{},
		mappingCache:    map[domain.AccountID]bool{},
		friendsCache:    map[domain.AccountID][]domain.AccountID{},
		lobbies:         map[domain.LobbyID]*lobby{},
		invites:         map[domain.InviteID]*invite{},
		faults:          map[Op][]domain.Result{},
		friendsUpdates:  newNotifier[ports.FriendsUpdate](),
		presenceChanges: newNotifier[ports.PresenceChanged](),
		lobbyInvites:    newNotifier[ports.LobbyInviteReceived](),
		lobbyUpdates:    newNotifier[ports.LobbyUpdateReceived](),
		memberUpdates:   newNotifier[ports.LobbyMemberUpdate](),
		releaseCounts:   map[HandleKind]int{},
		newID:           uuid.NewString,
	}
}

// Tick delivers every completion and notification queued before the call.
// Work queued by those callbacks waits for the next Tick.
func (p *Platform) Tick() {
	if p.released || len(p.queue) == 0 {
		return
	}

	batch := p.queue
	p.queue = nil
	for _, fn := range batch {
		fn()
	}
}

func (p *Platform) Release() {
	p.released = true
	p.queue = nil
}

func (p *Platform) Released() bool { return p.released }

func (p *Platform) SandboxID() string { return p.cfg.SandboxID }

func (p *Platform) DeploymentID() string { return p.cfg.DeploymentID }

func (p *Platform) Auth() ports.AuthClient { return authClient{p: p} }

func (p *Platform) Connect() ports.ConnectClient { return connectClient{p: p} }

func (p *Platform) UserInfo() ports.UserInfoClient { return userInfoClient{p: p} }

func (p *Platform) Friends() ports.FriendsClient { return friendsClient{p: p} }

func (p *Platform) Presence() ports.PresenceClient { return presenceClient{p: p} }

func (p *Platform) Lobby() ports.LobbyClient { return lobbyClient{p: p} }

// Pending returns how many completions and notifications await the next Tick.
func (p *Platform) Pending() int { return len(p.queue) }

func (p *Platform) Idle() bool { return len(p.queue) == 0 }

// FailNext makes the next processed call of op complete with result.
func (p *Platform) FailNext(op Op, result domain.Result) {
	p.faults[op] = append(p.faults[op], result)
}

// OpenHandles counts details, search and modification handles not yet released.
func (p *Platform) OpenHandles() int { return p.openHandles }

func (p *Platform) ReleaseCount(kind HandleKind) int { return p.releaseCounts[kind] }

func (p *Platform) DoubleReleases() int { return p.doubleReleases }

// NotificationCount is the number of registered notification handlers.
func (p *Platform) NotificationCount() int {
	return p.friendsUpdates.len() + p.presenceChanges.len() + p.lobbyInvites.len() +
		p.lobbyUpdates.len() + p.memberUpdates.len()
}

// WithholdAccessToken makes successful account logins issue no access token.
func (p *Platform) WithholdAccessToken(withhold bool) { p.withholdAccess = withhold }

func (p *Platform) enqueue(fn func()) {
	if p.released {
		return
	}
	p.queue = append(p.queue, fn)
}

func (p *Platform) fault(op Op) (domain.Result, bool) {
	pending := p.faults[op]
	if len(pending) == 0 {
		return domain.ResultSuccess, false
	}

	p.faults[op] = pending[1:]
	p.logger.Debug().Str("op", string(op)).Stringer("result", pending[0]).Msg("injected fault")
	return pending[0], true
}

func (p *Platform) complete(op Op, cb func(domain.Result), process func() domain.Result) {
	p.enqueue(func() {
		result, injected := p.fault(op)
		if !injected {
			result = process()
		}
		p.logger.Debug().Str("op", string(op)).Stringer("result", result).Msg("completed")
		if cb != nil {
			cb(result)
		}
	})
}

func (p *Platform) openHandle() {
	p.openHandles++
}

func (p *Platform) releaseHandle(kind HandleKind, released *bool) {
	if *released {
		p.doubleReleases++
		p.logger.Warn().Str("handle", string(kind)).Msg("handle released twice")
		return
	}

	*released = true
	p.openHandles--
	p.releaseCounts[kind]++
}

func (p *Platform) accountForSession(id domain.SessionID) (*account, bool) {
	accountID, ok := p.sessions[id]
	if !ok {
		return nil, false
	}
	acc, ok := p.accounts[accountID]
	return acc, ok
}

func (p *Platform) ensureSessionID(acc *account) domain.SessionID {
	if acc.sessionID == "" {
		acc.sessionID = domain.SessionID("puid-" + p.newID())
	}
	p.sessions[acc.sessionID] = acc.id
	return acc.sessionID
}

type notifier[T any] struct {
	handlers map[ports.NotificationID]func(T)
}

func newNotifier[T any]() notifier[T] {
	return notifier[T]{handlers: map[ports.NotificationID]func(T){}}
}

func (n *notifier[T]) len() int { return len(n.handlers) }

func (n *notifier[T]) remove(id ports.NotificationID) {
	delete(n.handlers, id)
}

func (n *notifier[T]) snapshot() []func(T) {
	ids := make([]ports.NotificationID, 0, len(n.handlers))
	for id := range n.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.handlers[id])
	}
	return fns
}

func addNotify[T any](p *Platform, n *notifier[T], fn func(T)) ports.NotificationID {
	if fn == nil {
		return ports.InvalidNotificationID
	}
	p.nextNotificationID++
	n.handlers[p.nextNotificationID] = fn
	return p.nextNotificationID
}

// push delivers payload to the handlers registered when the notification is
// pumped, not when it is raised.
func push[T any](p *Platform, n *notifier[T], payload T) {
	p.enqueue(func() {
		for _, fn := range n.snapshot() {
			fn(payload)
		}
	})
}
