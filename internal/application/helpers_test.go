package application

import (
	"context"
	"testing"

	"github.com/bnema/online-session-kit/internal/adapters/platform/sandbox"
	"github.com/bnema/online-session-kit/internal/adapters/secrets/file"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const maxTestTicks = 64

type recorder struct {
	events []event.Event
}

func (r *recorder) Publish(ev event.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType())
	}
	return out
}

func (r *recorder) count(eventType string) int {
	n := 0
	for _, ev := range r.events {
		if ev.EventType() == eventType {
			n++
		}
	}
	return n
}

func (r *recorder) reset() { r.events = nil }

// lastOf returns the most recent event of type T.
func lastOf[T event.Event](t *testing.T, r *recorder) T {
	t.Helper()

	for i := len(r.events) - 1; i >= 0; i-- {
		if ev, ok := r.events[i].(T); ok {
			return ev
		}
	}
	var zero T
	require.Failf(t, "event not published", "%T", zero)
	return zero
}

func newSandbox(t *testing.T) *sandbox.Platform {
	t.Helper()
	return sandbox.New(sandbox.Config{SandboxID: "sbx-test", DeploymentID: "dep-test", Logger: zerolog.Nop()})
}

// pumpUntil ticks until done completes.
func pumpUntil(t *testing.T, tick func(), done *Completion) {
	t.Helper()

	for i := 0; i < maxTestTicks && !done.Done(); i++ {
		tick()
	}
	require.True(t, done.Done(), "completion did not finish")
}

// drain ticks until the sandbox has nothing queued.
func drain(t *testing.T, p *sandbox.Platform) {
	t.Helper()

	for i := 0; i < maxTestTicks && !p.Idle(); i++ {
		p.Tick()
	}
	require.True(t, p.Idle(), "sandbox did not go idle")
}

// seedUser registers an account with a refresh token and a secret store that
// already holds it.
func seedUser(t *testing.T, p *sandbox.Platform, seed sandbox.AccountSeed) *file.Store {
	t.Helper()

	p.SeedAccount(seed)
	token := "rt-seed-" + string(seed.ID)
	p.SeedRefreshToken(token, seed.ID)

	store := file.NewStore(t.TempDir())
	require.NoError(t, store.Put(context.Background(), RefreshTokenKey, token))
	return store
}

// signIn logs a seeded user in on p and returns its authenticated session.
func signIn(t *testing.T, p *sandbox.Platform, seed sandbox.AccountSeed) *SessionManager {
	t.Helper()

	store := seedUser(t, p, seed)
	session := NewSessionManager(SessionOptions{
		Platform: p,
		Tokens:   NewTokenStore(store),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, session.Initialize(context.Background()))

	done := &Completion{}
	require.NoError(t, session.Login(context.Background(), done))
	pumpUntil(t, p.Tick, done)
	require.NoError(t, done.Err())
	require.True(t, session.IsAuthenticated())
	return session
}

// countingPlatform counts roster and mapping queries on top of a real
// platform.
type countingPlatform struct {
	ports.Platform
	rosterQueries  int
	mappingQueries int
}

func (c *countingPlatform) Connect() ports.ConnectClient {
	return countingConnect{ConnectClient: c.Platform.Connect(), parent: c}
}

type countingConnect struct {
	ports.ConnectClient
	parent *countingPlatform
}

func (c countingConnect) QueryExternalAccountMappings(local domain.SessionID, accounts []domain.AccountID, cb func(domain.Result)) {
	c.parent.mappingQueries++
	c.ConnectClient.QueryExternalAccountMappings(local, accounts, cb)
}

func (c *countingPlatform) Friends() ports.FriendsClient {
	return countingFriends{FriendsClient: c.Platform.Friends(), parent: c}
}

type countingFriends struct {
	ports.FriendsClient
	parent *countingPlatform
}

func (c countingFriends) QueryFriends(local domain.AccountID, cb func(domain.Result)) {
	c.parent.rosterQueries++
	c.FriendsClient.QueryFriends(local, cb)
}
