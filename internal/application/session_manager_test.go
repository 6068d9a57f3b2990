package application

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/online-session-kit/internal/adapters/platform/sandbox"
	"github.com/bnema/online-session-kit/internal/adapters/secrets/file"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/bnema/online-session-kit/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	platform *sandbox.Platform
	store    *file.Store
	events   *recorder
	session  *SessionManager
}

func newSessionFixture(t *testing.T, cfg sandbox.Config) *sessionFixture {
	t.Helper()

	cfg.Logger = zerolog.Nop()
	platform := sandbox.New(cfg)
	store := file.NewStore(t.TempDir())
	events := &recorder{}
	session := NewSessionManager(SessionOptions{
		Platform:  platform,
		Tokens:    NewTokenStore(store),
		Publisher: events,
		Logger:    zerolog.Nop(),
	})
	return &sessionFixture{platform: platform, store: store, events: events, session: session}
}

func (f *sessionFixture) storedToken(t *testing.T) (string, bool) {
	t.Helper()

	token, ok, err := NewTokenStore(f.store).Load(context.Background())
	require.NoError(t, err)
	return token, ok
}

func (f *sessionFixture) login(t *testing.T) *Completion {
	t.Helper()

	require.NoError(t, f.session.Initialize(context.Background()))
	done := &Completion{}
	_ = f.session.Login(context.Background(), done)
	pumpUntil(t, f.session.Tick, done)
	return done
}

func TestSessionLoginWithPersistentSession(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{SandboxID: "sbx", DeploymentID: "dep"})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", DisplayName: "Ada", Persistent: true})

	done := f.login(t)
	require.NoError(t, done.Err())

	assert.Equal(t, domain.LoginStateAuthenticated, f.session.State())
	assert.True(t, f.session.IsAuthenticated())
	assert.Equal(t, domain.AccountID("acc-ada"), f.session.AccountID())
	assert.False(t, f.session.SessionID().IsZero())
	assert.Equal(t, "dep", f.session.DeploymentOrSandboxID())

	token, ok := f.storedToken(t)
	require.True(t, ok)
	assert.True(t, f.platform.RefreshTokenValid(token))

	changed := lastOf[event.LoginStateChanged](t, f.events)
	assert.True(t, changed.LoggedIn)
	assert.Equal(t, msgConnectLoginOK, changed.Message)

	drain(t, f.platform)
	assert.Equal(t, "Ada", f.session.DisplayName())
	assert.Equal(t, 1, f.events.count(event.TypeDisplayNameCached))
}

func TestSessionLoginWithoutPersistentSessionStaysLoggedOut(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{SandboxID: "sbx"})

	done := f.login(t)

	var opErr *domain.OperationError
	require.ErrorAs(t, done.Err(), &opErr)
	assert.Equal(t, domain.ResultPersistentAuthNotFound, opErr.Result)
	assert.Equal(t, domain.LoginStateLoggedOut, f.session.State())
	assert.False(t, f.session.PortalActive())

	changed := lastOf[event.LoginStateChanged](t, f.events)
	assert.False(t, changed.LoggedIn)
	assert.Equal(t, "Login failed: PersistentAuthNotFound", changed.Message)
	assert.Equal(t, "sbx", f.session.DeploymentOrSandboxID())
}

func TestSessionLoginRotatesStoredRefreshToken(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada"})
	f.platform.SeedRefreshToken("rt-old", "acc-ada")
	require.NoError(t, f.store.Put(context.Background(), RefreshTokenKey, "rt-old\n"))

	done := f.login(t)
	require.NoError(t, done.Err())

	token, ok := f.storedToken(t)
	require.True(t, ok)
	assert.NotEqual(t, "rt-old", token)
	assert.False(t, f.platform.RefreshTokenValid("rt-old"))
	assert.True(t, f.session.HasRefreshToken())
}

func TestSessionRejectedRefreshTokenIsDiscarded(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	require.NoError(t, f.store.Put(context.Background(), RefreshTokenKey, "rt-revoked"))

	done := f.login(t)

	var opErr *domain.OperationError
	require.ErrorAs(t, done.Err(), &opErr)
	assert.Equal(t, domain.ResultInvalidCredentials, opErr.Result)
	assert.False(t, f.session.HasRefreshToken())
	_, ok := f.storedToken(t)
	assert.False(t, ok)
}

func TestSessionAuthWithoutAccessTokenStopsAtAuthComplete(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	f.platform.WithholdAccessToken(true)

	done := f.login(t)

	require.ErrorIs(t, done.Err(), domain.ErrNoAccessToken)
	assert.Equal(t, domain.LoginStateAuthComplete, f.session.State())
	assert.False(t, f.session.IsAuthenticated())
	assert.True(t, f.session.SessionID().IsZero())

	changed := lastOf[event.LoginStateChanged](t, f.events)
	assert.False(t, changed.LoggedIn)
	assert.Equal(t, msgNoAccessToken, changed.Message)

	// AuthComplete may retry the chain.
	f.platform.WithholdAccessToken(false)
	retry := &Completion{}
	require.NoError(t, f.session.Login(context.Background(), retry))
	pumpUntil(t, f.session.Tick, retry)
	require.NoError(t, retry.Err())
	assert.True(t, f.session.IsAuthenticated())
}

func TestSessionConnectFailureKeepsAuthComplete(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	f.platform.FailNext(sandbox.OpConnectLogin, domain.ResultNoConnection)

	done := f.login(t)

	require.ErrorIs(t, done.Err(), domain.ErrOperationFailed)
	assert.Equal(t, domain.LoginStateAuthComplete, f.session.State())
	assert.Equal(t, "Connect login failed: NoConnection", lastOf[event.LoginStateChanged](t, f.events).Message)
}

func TestSessionRejectsOverlappingLogins(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	require.NoError(t, f.session.Initialize(context.Background()))

	first := &Completion{}
	require.NoError(t, f.session.Login(context.Background(), first))
	assert.Equal(t, domain.LoginStateAuthPending, f.session.State())

	second := &Completion{}
	require.ErrorIs(t, f.session.Login(context.Background(), second), domain.ErrLoginInProgress)
	assert.True(t, second.Done())

	pumpUntil(t, f.session.Tick, first)
	require.NoError(t, first.Err())
	assert.ErrorIs(t, f.session.Login(context.Background(), nil), domain.ErrAlreadyAuthenticated)
}

func TestSessionInteractiveLoginThroughPortal(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{PortalAccount: "acc-ada"})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada"})
	require.NoError(t, f.session.Initialize(context.Background()))

	done := &Completion{}
	require.NoError(t, f.session.LoginInteractive(context.Background(), done))
	assert.True(t, f.session.PortalActive())
	assert.ErrorIs(t, f.session.LoginInteractive(context.Background(), nil), domain.ErrPortalActive)

	pumpUntil(t, f.session.Tick, done)
	require.NoError(t, done.Err())
	assert.False(t, f.session.PortalActive())
	assert.True(t, f.session.IsAuthenticated())
}

func TestSessionClosedPortalReportsCanceled(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	require.NoError(t, f.session.Initialize(context.Background()))

	done := &Completion{}
	require.NoError(t, f.session.LoginInteractive(context.Background(), done))
	pumpUntil(t, f.session.Tick, done)

	var opErr *domain.OperationError
	require.ErrorAs(t, done.Err(), &opErr)
	assert.Equal(t, domain.ResultCanceled, opErr.Result)
	assert.False(t, f.session.PortalActive())
	assert.Equal(t, domain.LoginStateLoggedOut, f.session.State())
}

func TestSessionLogoutKeepsPersistentAuth(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	require.NoError(t, f.login(t).Err())

	require.NoError(t, f.session.Logout(context.Background()))
	drain(t, f.platform)

	assert.Equal(t, domain.LoginStateLoggedOut, f.session.State())
	assert.True(t, f.session.AccountID().IsZero())
	_, ok := f.storedToken(t)
	assert.False(t, ok)
	assert.Equal(t, domain.AccountID("acc-ada"), f.platform.PersistentAccount())
	assert.Equal(t, msgLoggedOut, lastOf[event.LoginStateChanged](t, f.events).Message)

	// The persistent session still signs the device back in.
	require.NoError(t, f.login(t).Err())
	assert.True(t, f.session.IsAuthenticated())
}

func TestSessionHardLogoutRevokesEverything(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	require.NoError(t, f.login(t).Err())
	sessionID := f.session.SessionID()
	token, ok := f.storedToken(t)
	require.True(t, ok)
	f.events.reset()

	done := &Completion{}
	require.NoError(t, f.session.HardLogout(context.Background(), done))
	assert.ErrorIs(t, f.session.HardLogout(context.Background(), nil), domain.ErrLogoutInProgress)
	assert.ErrorIs(t, f.session.Login(context.Background(), nil), domain.ErrLogoutInProgress)
	pumpUntil(t, f.session.Tick, done)
	require.NoError(t, done.Err())

	assert.Equal(t, 1, f.events.count(event.TypeLoginStateChanged))
	changed := lastOf[event.LoginStateChanged](t, f.events)
	assert.False(t, changed.LoggedIn)
	assert.Equal(t, msgHardLogoutCompleted, changed.Message)

	_, ok = f.storedToken(t)
	assert.False(t, ok)
	assert.False(t, f.platform.RefreshTokenValid(token))
	assert.True(t, f.platform.PersistentAccount().IsZero())
	assert.False(t, f.platform.AuthLoggedIn("acc-ada"))
	assert.False(t, f.platform.Connect().LoggedIn(sessionID))

	// Nothing left to resume from.
	again := f.login(t)
	assert.ErrorIs(t, again.Err(), domain.ErrOperationFailed)
}

func TestSessionHardLogoutFromPartialStates(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		setup func(t *testing.T, f *sessionFixture)
		state domain.LoginState
	}{
		{
			name: "logged out with a stored token",
			setup: func(t *testing.T, f *sessionFixture) {
				f.platform.SeedRefreshToken("rt-stored", "acc-ada")
				require.NoError(t, NewTokenStore(f.store).Save(context.Background(), "rt-stored"))
				require.NoError(t, f.session.Initialize(context.Background()))
			},
			state: domain.LoginStateLoggedOut,
		},
		{
			name: "auth complete without access token",
			setup: func(t *testing.T, f *sessionFixture) {
				f.platform.WithholdAccessToken(true)
				assert.ErrorIs(t, f.login(t).Err(), domain.ErrNoAccessToken)
			},
			state: domain.LoginStateAuthComplete,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newSessionFixture(t, sandbox.Config{})
			f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
			tc.setup(t, f)
			require.Equal(t, tc.state, f.session.State())
			_, ok := f.storedToken(t)
			require.True(t, ok)
			f.events.reset()

			done := &Completion{}
			require.NoError(t, f.session.HardLogout(context.Background(), done))
			pumpUntil(t, f.session.Tick, done)
			require.NoError(t, done.Err())

			assert.Equal(t, 1, f.events.count(event.TypeLoginStateChanged))
			assert.False(t, lastOf[event.LoginStateChanged](t, f.events).LoggedIn)
			_, ok = f.storedToken(t)
			assert.False(t, ok)
			assert.Equal(t, domain.LoginStateLoggedOut, f.session.State())
			assert.True(t, f.session.AccountID().IsZero())
		})
	}
}

func TestSessionHardLogoutContinuesPastFailedStages(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	require.NoError(t, f.login(t).Err())
	f.platform.FailNext(sandbox.OpConnectLogout, domain.ResultNoConnection)
	f.platform.FailNext(sandbox.OpAuthLogout, domain.ResultNoConnection)

	done := &Completion{}
	require.NoError(t, f.session.HardLogout(context.Background(), done))
	pumpUntil(t, f.session.Tick, done)

	require.NoError(t, done.Err())
	assert.True(t, f.platform.PersistentAccount().IsZero())
	assert.Equal(t, domain.LoginStateLoggedOut, f.session.State())
}

func TestSessionShutdownIgnoresLateCompletions(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(t, sandbox.Config{})
	f.platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	require.NoError(t, f.session.Initialize(context.Background()))

	done := &Completion{}
	require.NoError(t, f.session.Login(context.Background(), done))
	f.session.Shutdown()
	f.events.reset()

	// The adopted platform is not released, so its queue still drains.
	pumpUntil(t, f.platform.Tick, done)
	require.ErrorIs(t, done.Err(), domain.ErrNotAuthenticated)
	assert.Empty(t, f.events.events)
	assert.False(t, f.platform.Released())
	assert.Equal(t, domain.LoginStateLoggedOut, f.session.State())
}

func TestSessionFactoryPlatformIsReleasedOnShutdown(t *testing.T) {
	t.Parallel()

	platform := newSandbox(t)
	session := NewSessionManager(SessionOptions{
		PlatformFactory: func() (ports.Platform, error) { return platform, nil },
		Logger:          zerolog.Nop(),
	})
	require.NoError(t, session.Initialize(context.Background()))
	assert.Same(t, platform, session.Platform())

	session.Shutdown()
	assert.True(t, platform.Released())
	assert.Nil(t, session.Platform())
}

func TestSessionFactoryFailurePublishesLoggedOut(t *testing.T) {
	t.Parallel()

	events := &recorder{}
	session := NewSessionManager(SessionOptions{
		PlatformFactory: func() (ports.Platform, error) { return nil, errors.New("sdk missing") },
		Publisher:       events,
		Logger:          zerolog.Nop(),
	})

	err := session.Initialize(context.Background())
	require.ErrorIs(t, err, domain.ErrPlatformUnavailable)
	assert.Equal(t, msgPlatformCreateFailed, lastOf[event.LoginStateChanged](t, events).Message)
	assert.ErrorIs(t, session.Login(context.Background(), nil), domain.ErrPlatformUnavailable)
}

func TestSessionUnreadableTokenStoreFallsBackToPersistentLogin(t *testing.T) {
	t.Parallel()

	secrets := mocks.NewMockSecretStore(t)
	secrets.EXPECT().Get(mock.Anything, RefreshTokenKey).Return("", errors.New("permission denied")).Once()
	secrets.EXPECT().Put(mock.Anything, RefreshTokenKey, mock.AnythingOfType("string")).Return(nil).Once()

	platform := newSandbox(t)
	platform.SeedAccount(sandbox.AccountSeed{ID: "acc-ada", Persistent: true})
	session := NewSessionManager(SessionOptions{
		Platform: platform,
		Tokens:   NewTokenStore(secrets),
		Logger:   zerolog.Nop(),
	})

	require.NoError(t, session.Initialize(context.Background()))
	assert.False(t, session.HasRefreshToken())

	done := &Completion{}
	require.NoError(t, session.Login(context.Background(), done))
	pumpUntil(t, session.Tick, done)
	require.NoError(t, done.Err())
}
