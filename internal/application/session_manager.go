package application

import (
	"context"
	"fmt"

	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/rs/zerolog"
)

const (
	msgLoginFailed          = "Login failed"
	msgNoAccessToken        = "Auth OK but no access token for Connect"
	msgConnectLoginOK       = "Connect login successful"
	msgConnectLoginFailed   = "Connect login failed"
	msgLoggedOut            = "Logged out"
	msgHardLogoutCompleted  = "Hard logout completed"
	msgPlatformCreateFailed = "Failed to create platform"
)

type SessionOptions struct {
	// Platform is adopted as-is and never released by the manager.
	Platform ports.Platform
	// PlatformFactory creates a platform the manager owns and releases on Shutdown.
	PlatformFactory func() (ports.Platform, error)
	Tokens          *TokenStore
	Publisher       Publisher
	Logger          zerolog.Logger
	Scopes          domain.AuthScope
}

// SessionManager owns the platform connection and drives the login state
// machine. It must be used from the goroutine that calls Tick.
type SessionManager struct {
	adopted ports.Platform
	factory func() (ports.Platform, error)
	tokens  *TokenStore
	pub     Publisher
	logger  zerolog.Logger
	scopes  domain.AuthScope

	platform     ports.Platform
	ownsPlatform bool

	state        domain.LoginState
	accountID    domain.AccountID
	sessionID    domain.SessionID
	refreshToken string
	displayName  string
	portalActive bool
	hardLogout   bool

	// epoch invalidates login callbacks issued before a logout or shutdown.
	epoch  uint64
	closed bool
}

func NewSessionManager(opts SessionOptions) *SessionManager {
	pub := opts.Publisher
	if pub == nil {
		pub = nopPublisher{}
	}
	scopes := opts.Scopes
	if scopes == 0 {
		scopes = domain.DefaultAuthScopes
	}

	return &SessionManager{
		adopted: opts.Platform,
		factory: opts.PlatformFactory,
		tokens:  opts.Tokens,
		pub:     pub,
		logger:  opts.Logger.With().Str("component", "session").Logger(),
		scopes:  scopes,
		state:   domain.LoginStateLoggedOut,
	}
}

// Initialize loads the stored refresh token and acquires the platform.
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.closed = false

	if m.tokens != nil {
		token, ok, err := m.tokens.Load(ctx)
		switch {
		case err != nil:
			m.logger.Warn().Err(err).Msg("ignoring unreadable refresh token")
		case ok:
			m.refreshToken = token
		}
	}

	if m.platform != nil {
		return nil
	}

	if m.adopted != nil {
		m.platform = m.adopted
		m.ownsPlatform = false
	} else if m.factory != nil {
		platform, err := m.factory()
		if err != nil {
			m.logger.Error().Err(err).Msg("create platform")
		} else if platform != nil {
			m.platform = platform
			m.ownsPlatform = true
		}
	}

	if m.platform == nil {
		m.publishLoginState(false, msgPlatformCreateFailed, domain.ErrPlatformUnavailable)
		return fmt.Errorf("initialize session: %w", domain.ErrPlatformUnavailable)
	}

	m.logger.Info().
		Bool("owns_platform", m.ownsPlatform).
		Bool("has_refresh_token", m.refreshToken != "").
		Msg("session initialized")
	return nil
}

// Login signs in with the stored refresh token, or with the device's
// persistent session when there is none, then chains into connect login.
func (m *SessionManager) Login(ctx context.Context, done *Completion) error {
	if err := m.canStartLogin(); err != nil {
		done.finish(err)
		return err
	}

	req := ports.AuthLoginRequest{Credential: domain.CredentialPersistentAuth, Scopes: m.scopes}
	if m.refreshToken != "" {
		req.Credential = domain.CredentialRefreshToken
		req.Token = m.refreshToken
	}

	m.startAuthLogin(ctx, req, done)
	return nil
}

// LoginInteractive runs the same chain through the account portal.
// PortalActive reports true until the portal's callback fires.
func (m *SessionManager) LoginInteractive(ctx context.Context, done *Completion) error {
	if m.portalActive {
		done.finish(domain.ErrPortalActive)
		return domain.ErrPortalActive
	}
	if err := m.canStartLogin(); err != nil {
		done.finish(err)
		return err
	}

	m.portalActive = true
	m.startAuthLogin(ctx, ports.AuthLoginRequest{Credential: domain.CredentialAccountPortal, Scopes: m.scopes}, done)
	return nil
}

func (m *SessionManager) canStartLogin() error {
	if m.platform == nil {
		return domain.ErrPlatformUnavailable
	}
	if m.hardLogout {
		return domain.ErrLogoutInProgress
	}

	switch m.state {
	case domain.LoginStateLoggedOut, domain.LoginStateAuthComplete:
		return nil
	case domain.LoginStateAuthenticated:
		return domain.ErrAlreadyAuthenticated
	default:
		return domain.ErrLoginInProgress
	}
}

func (m *SessionManager) startAuthLogin(ctx context.Context, req ports.AuthLoginRequest, done *Completion) {
	m.state = domain.LoginStateAuthPending
	epoch := m.epoch
	ctx = context.WithoutCancel(ctx)

	m.logger.Info().Stringer("credential", req.Credential).Msg("starting account login")
	m.platform.Auth().Login(req, func(res ports.AuthLoginResult) {
		m.onAuthLogin(ctx, epoch, req.Credential, res, done)
	})
}

func (m *SessionManager) onAuthLogin(ctx context.Context, epoch uint64, credential domain.CredentialType, res ports.AuthLoginResult, done *Completion) {
	m.portalActive = false
	if m.stale(epoch) {
		done.finish(domain.ErrNotAuthenticated)
		return
	}

	if !res.Result.OK() {
		m.state = domain.LoginStateLoggedOut
		err := domain.NewOperationError("account login", res.Result)
		m.logger.Warn().Stringer("result", res.Result).Msg("account login failed")
		if credential == domain.CredentialRefreshToken && res.Result == domain.ResultInvalidCredentials {
			m.discardRefreshToken(ctx)
		}
		m.publishLoginState(false, msgLoginFailed+": "+res.Result.String(), err)
		done.finish(err)
		return
	}

	m.accountID = res.AccountID
	m.state = domain.LoginStateAuthComplete
	m.logger.Info().Str("account_id", string(res.AccountID)).Msg("account login complete")

	token, result := m.platform.Auth().CopyUserAuthToken(res.AccountID)
	if !result.OK() {
		m.logger.Warn().Stringer("result", result).Msg("copy user auth token")
	}
	if token.RefreshToken != "" {
		m.refreshToken = token.RefreshToken
		if m.tokens != nil {
			if err := m.tokens.Save(ctx, token.RefreshToken); err != nil {
				m.logger.Warn().Err(err).Msg("persist refresh token")
			}
		}
	}

	m.queryDisplayName(epoch)

	if token.AccessToken == "" {
		m.publishLoginState(false, msgNoAccessToken, domain.ErrNoAccessToken)
		done.finish(domain.ErrNoAccessToken)
		return
	}

	m.state = domain.LoginStateConnectPending
	m.platform.Connect().Login(token.AccessToken, func(res ports.ConnectLoginResult) {
		m.onConnectLogin(epoch, res, done)
	})
}

func (m *SessionManager) onConnectLogin(epoch uint64, res ports.ConnectLoginResult, done *Completion) {
	if m.stale(epoch) {
		done.finish(domain.ErrNotAuthenticated)
		return
	}

	if !res.Result.OK() || res.SessionID.IsZero() {
		m.state = domain.LoginStateAuthComplete
		err := domain.NewOperationError("connect login", res.Result)
		m.logger.Warn().Stringer("result", res.Result).Msg("connect login failed")
		m.publishLoginState(false, msgConnectLoginFailed+": "+res.Result.String(), err)
		done.finish(err)
		return
	}

	m.sessionID = res.SessionID
	m.state = domain.LoginStateAuthenticated
	m.logger.Info().Str("session_id", string(res.SessionID)).Msg("connect login complete")
	m.publishLoginState(true, msgConnectLoginOK, nil)
	done.finish(nil)
}

// queryDisplayName caches the local account's display name. Failures only log.
func (m *SessionManager) queryDisplayName(epoch uint64) {
	accountID := m.accountID
	userInfo := m.platform.UserInfo()
	userInfo.QueryUserInfo(accountID, accountID, func(result domain.Result) {
		if m.stale(epoch) {
			return
		}
		if !result.OK() {
			m.logger.Debug().Stringer("result", result).Msg("query display name")
			return
		}

		info, result := userInfo.CopyUserInfo(accountID, accountID)
		if !result.OK() || info.DisplayName == "" {
			m.logger.Debug().Stringer("result", result).Msg("copy display name")
			return
		}

		m.displayName = info.DisplayName
		m.pub.Publish(event.NewDisplayNameCached(info.DisplayName))
	})
}

// Logout drops the local session and the stored refresh token. Server-side
// persistent auth is left intact; use HardLogout to revoke it.
func (m *SessionManager) Logout(ctx context.Context) error {
	if m.platform == nil {
		return domain.ErrPlatformUnavailable
	}

	if m.tokens != nil {
		if err := m.tokens.Delete(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("delete refresh token")
		}
	}
	m.refreshToken = ""

	if !m.accountID.IsZero() {
		m.platform.Auth().Logout(m.accountID, nil)
	}

	m.epoch++
	m.clearIdentity()
	m.logger.Info().Msg("logged out")
	m.publishLoginState(false, msgLoggedOut, nil)
	return nil
}

// HardLogout runs connect logout, account logout and persistent-auth
// revocation in sequence. Stages without an id to act on are skipped; the
// revoke stage always runs and the login-state event fires once at the end.
func (m *SessionManager) HardLogout(ctx context.Context, done *Completion) error {
	if m.platform == nil {
		done.finish(domain.ErrPlatformUnavailable)
		return domain.ErrPlatformUnavailable
	}
	if m.hardLogout {
		done.finish(domain.ErrLogoutInProgress)
		return domain.ErrLogoutInProgress
	}

	m.hardLogout = true
	m.epoch++
	m.logger.Info().Msg("starting hard logout")
	m.hardLogoutConnect(context.WithoutCancel(ctx), done)
	return nil
}

func (m *SessionManager) hardLogoutConnect(ctx context.Context, done *Completion) {
	if m.sessionID.IsZero() {
		m.hardLogoutAuth(ctx, done)
		return
	}

	m.platform.Connect().Logout(m.sessionID, func(result domain.Result) {
		if m.closed {
			done.finish(domain.ErrPlatformUnavailable)
			return
		}
		m.logStage("connect logout", result)
		m.sessionID = ""
		m.hardLogoutAuth(ctx, done)
	})
}

func (m *SessionManager) hardLogoutAuth(ctx context.Context, done *Completion) {
	if m.accountID.IsZero() {
		m.hardLogoutRevoke(ctx, done)
		return
	}

	m.platform.Auth().Logout(m.accountID, func(result domain.Result) {
		if m.closed {
			done.finish(domain.ErrPlatformUnavailable)
			return
		}
		m.logStage("account logout", result)
		m.accountID = ""
		m.hardLogoutRevoke(ctx, done)
	})
}

func (m *SessionManager) hardLogoutRevoke(ctx context.Context, done *Completion) {
	m.platform.Auth().DeletePersistentAuth(m.refreshToken, func(result domain.Result) {
		if m.closed {
			done.finish(domain.ErrPlatformUnavailable)
			return
		}
		m.logStage("revoke persistent auth", result)
		m.finishHardLogout(ctx, done)
	})
}

func (m *SessionManager) finishHardLogout(ctx context.Context, done *Completion) {
	if m.tokens != nil {
		if err := m.tokens.Delete(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("delete refresh token")
		}
	}

	m.refreshToken = ""
	m.hardLogout = false
	m.epoch++
	m.clearIdentity()
	m.logger.Info().Msg("hard logout completed")
	m.publishLoginState(false, msgHardLogoutCompleted, nil)
	done.finish(nil)
}

// discardRefreshToken forgets a credential the platform rejected so the next
// Login falls back to the persistent session.
func (m *SessionManager) discardRefreshToken(ctx context.Context) {
	m.refreshToken = ""
	if m.tokens == nil {
		return
	}
	if err := m.tokens.Delete(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("delete rejected refresh token")
	}
}

func (m *SessionManager) logStage(stage string, result domain.Result) {
	if result.OK() {
		m.logger.Debug().Str("stage", stage).Msg("hard logout stage complete")
		return
	}
	m.logger.Warn().Str("stage", stage).Stringer("result", result).Msg("hard logout stage failed; continuing")
}

// Tick pumps the platform's completion queue. Nothing completes without it.
func (m *SessionManager) Tick() {
	if m.platform != nil {
		m.platform.Tick()
	}
}

// Shutdown clears identity and releases the platform if the manager created it.
func (m *SessionManager) Shutdown() {
	if m.closed {
		return
	}

	m.closed = true
	m.epoch++
	m.clearIdentity()
	m.refreshToken = ""
	m.portalActive = false
	m.hardLogout = false

	if m.platform != nil && m.ownsPlatform {
		m.platform.Release()
	}
	m.platform = nil
	m.ownsPlatform = false
	m.logger.Info().Msg("session shut down")
}

func (m *SessionManager) clearIdentity() {
	m.accountID = ""
	m.sessionID = ""
	m.displayName = ""
	m.state = domain.LoginStateLoggedOut
}

func (m *SessionManager) stale(epoch uint64) bool {
	return m.closed || epoch != m.epoch
}

func (m *SessionManager) publishLoginState(loggedIn bool, message string, err error) {
	m.pub.Publish(event.NewLoginStateChanged(loggedIn, m.state, message, err))
}

func (m *SessionManager) State() domain.LoginState { return m.state }

func (m *SessionManager) IsAuthenticated() bool {
	return m.state == domain.LoginStateAuthenticated && !m.sessionID.IsZero()
}

func (m *SessionManager) PortalActive() bool { return m.portalActive }

func (m *SessionManager) HasRefreshToken() bool { return m.refreshToken != "" }

func (m *SessionManager) AccountID() domain.AccountID { return m.accountID }

// SessionID is empty unless the state is Authenticated.
func (m *SessionManager) SessionID() domain.SessionID {
	if m.state != domain.LoginStateAuthenticated {
		return ""
	}
	return m.sessionID
}

func (m *SessionManager) DisplayName() string { return m.displayName }

func (m *SessionManager) Platform() ports.Platform { return m.platform }

// DeploymentOrSandboxID namespaces per-environment saves.
func (m *SessionManager) DeploymentOrSandboxID() string {
	if m.platform == nil {
		return ""
	}
	if id := m.platform.DeploymentID(); id != "" {
		return id
	}
	return m.platform.SandboxID()
}
