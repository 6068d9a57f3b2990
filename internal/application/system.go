package application

import (
	"context"
	"time"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/rs/zerolog"
)

type Config struct {
	Lobby           LobbyConfig
	MappingInterval time.Duration
	Scopes          domain.AuthScope
}

func DefaultConfig() Config {
	return Config{
		Lobby:           DefaultLobbyConfig(),
		MappingInterval: DefaultMappingInterval,
		Scopes:          domain.DefaultAuthScopes,
	}
}

type Options struct {
	Config          Config
	Platform        ports.Platform
	PlatformFactory func() (ports.Platform, error)
	SecretStore     ports.SecretStore
	Clock           ports.Clock
	Logger          zerolog.Logger
	Bus             *event.Bus
}

// System owns the session manager and, while authenticated, the friends and
// lobby orchestrators. All methods must run on the goroutine that calls Tick.
type System struct {
	cfg    Config
	clock  ports.Clock
	logger zerolog.Logger
	bus    *event.Bus

	session *SessionManager
	friends *FriendsOrchestrator
	lobby   *LobbyOrchestrator
}

// Identity is a point-in-time view of who is signed in.
type Identity struct {
	AccountID             domain.AccountID
	SessionID             domain.SessionID
	DisplayName           string
	DeploymentOrSandboxID string
	State                 domain.LoginState
}

func NewSystem(opts Options) *System {
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus(opts.Logger)
	}
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	cfg := opts.Config
	if cfg.MappingInterval <= 0 {
		cfg.MappingInterval = DefaultMappingInterval
	}

	s := &System{
		cfg:    cfg,
		clock:  clock,
		logger: opts.Logger.With().Str("component", "system").Logger(),
		bus:    bus,
	}

	var tokens *TokenStore
	if opts.SecretStore != nil {
		tokens = NewTokenStore(opts.SecretStore)
	}
	s.session = NewSessionManager(SessionOptions{
		Platform:        opts.Platform,
		PlatformFactory: opts.PlatformFactory,
		Tokens:          tokens,
		Publisher:       PublisherFunc(s.onSessionEvent),
		Logger:          opts.Logger,
		Scopes:          cfg.Scopes,
	})
	return s
}

func (s *System) Bus() *event.Bus { return s.bus }

func (s *System) Session() *SessionManager { return s.session }

func (s *System) Initialize(ctx context.Context) error {
	return s.session.Initialize(ctx)
}

// onSessionEvent runs manager lifecycle work before subscribers see the event.
func (s *System) onSessionEvent(ev event.Event) {
	if changed, ok := ev.(event.LoginStateChanged); ok {
		s.onLoginStateChanged(changed)
	}
	s.bus.Publish(ev)
}

func (s *System) onLoginStateChanged(ev event.LoginStateChanged) {
	if ev.State == domain.LoginStateAuthenticated {
		platform := s.session.Platform()
		sessionID := s.session.SessionID()
		if platform == nil || sessionID.IsZero() {
			return
		}
		s.destroyManagers(false)
		s.createManagers(platform, s.session.AccountID(), sessionID)
		return
	}
	s.destroyManagers(true)
}

func (s *System) createManagers(platform ports.Platform, accountID domain.AccountID, sessionID domain.SessionID) {
	friends := NewFriendsOrchestrator(s.bus, s.clock, s.cfg.MappingInterval, s.logger)
	if err := friends.Initialize(platform, accountID, sessionID); err != nil {
		s.logger.Error().Err(err).Msg("initialize friends")
		return
	}

	lobby := NewLobbyOrchestrator(s.bus, s.cfg.Lobby, s.logger)
	if err := lobby.Initialize(platform, sessionID); err != nil {
		friends.Shutdown()
		s.logger.Error().Err(err).Msg("initialize lobby")
		return
	}

	s.friends = friends
	s.lobby = lobby
	s.logger.Info().Str("account_id", string(accountID)).Str("session_id", string(sessionID)).Msg("managers created")
}

// destroyManagers shuts down both orchestrators. With clearViews set, empty
// roster and search snapshots are published so views drop stale data.
func (s *System) destroyManagers(clearViews bool) {
	active := s.friends != nil || s.lobby != nil
	if s.friends != nil {
		s.friends.Shutdown()
		s.friends = nil
	}
	if s.lobby != nil {
		s.lobby.Shutdown()
		s.lobby = nil
	}
	if !active {
		return
	}

	s.logger.Info().Msg("managers destroyed")
	if clearViews {
		s.bus.Publish(event.NewFriendsUpdated(nil))
		s.bus.Publish(event.NewLobbySearchResultsUpdated(nil, domain.ResultSuccess))
	}
}

func (s *System) ManagersActive() bool {
	return s.friends != nil && s.lobby != nil && s.session.IsAuthenticated()
}

// Tick pumps the platform once, then gives each live orchestrator its turn.
func (s *System) Tick() {
	s.session.Tick()
	if s.friends != nil {
		s.friends.Tick()
	}
	if s.lobby != nil {
		s.lobby.Tick()
	}
}

func (s *System) Shutdown() {
	s.destroyManagers(false)
	s.session.Shutdown()
}

func (s *System) Identity() Identity {
	return Identity{
		AccountID:             s.session.AccountID(),
		SessionID:             s.session.SessionID(),
		DisplayName:           s.session.DisplayName(),
		DeploymentOrSandboxID: s.session.DeploymentOrSandboxID(),
		State:                 s.session.State(),
	}
}

func (s *System) Login(ctx context.Context, done *Completion) error {
	return s.session.Login(ctx, done)
}

func (s *System) LoginInteractive(ctx context.Context, done *Completion) error {
	return s.session.LoginInteractive(ctx, done)
}

func (s *System) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

func (s *System) HardLogout(ctx context.Context, done *Completion) error {
	return s.session.HardLogout(ctx, done)
}

func (s *System) notAuthenticated(done *Completion) error {
	done.finish(domain.ErrNotAuthenticated)
	return domain.ErrNotAuthenticated
}

func (s *System) QueryFriends(done *Completion) error {
	if s.friends == nil {
		return s.notAuthenticated(done)
	}
	return s.friends.QueryFriends(done)
}

func (s *System) SendFriendInvite(target domain.AccountID, done *Completion) error {
	if s.friends == nil {
		return s.notAuthenticated(done)
	}
	return s.friends.SendInvite(target, done)
}

func (s *System) AcceptFriendInvite(target domain.AccountID, done *Completion) error {
	if s.friends == nil {
		return s.notAuthenticated(done)
	}
	return s.friends.AcceptInvite(target, done)
}

func (s *System) RejectFriendInvite(target domain.AccountID, done *Completion) error {
	if s.friends == nil {
		return s.notAuthenticated(done)
	}
	return s.friends.RejectInvite(target, done)
}

func (s *System) Friends() []domain.FriendView {
	if s.friends == nil {
		return nil
	}
	return s.friends.Friends()
}

func (s *System) CreateLobby(done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.CreateLobby(done)
}

func (s *System) SearchLobbies(filters []domain.SearchFilter, maxResults int, done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.SearchLobbies(filters, maxResults, done)
}

func (s *System) JoinLobby(id domain.LobbyID, done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.JoinLobby(id, done)
}

func (s *System) LeaveLobby(done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.LeaveLobby(done)
}

func (s *System) DestroyLobby(done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.DestroyLobby(done)
}

func (s *System) ModifyCurrentLobby(changes domain.LobbyChanges, done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.ModifyCurrentLobby(changes, done)
}

func (s *System) SendLobbyInvite(target domain.SessionID, done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.SendLobbyInvite(target, done)
}

func (s *System) AcceptLobbyInvite(inviteID domain.InviteID, done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.AcceptLobbyInvite(inviteID, done)
}

func (s *System) RejectLobbyInvite(inviteID domain.InviteID, done *Completion) error {
	if s.lobby == nil {
		return s.notAuthenticated(done)
	}
	return s.lobby.RejectLobbyInvite(inviteID, done)
}

func (s *System) SearchResults() []domain.LobbySummary {
	if s.lobby == nil {
		return nil
	}
	return s.lobby.SearchResults()
}

func (s *System) CurrentLobby() (domain.LobbySummary, bool) {
	if s.lobby == nil {
		return domain.LobbySummary{}, false
	}
	return s.lobby.CurrentLobby()
}
