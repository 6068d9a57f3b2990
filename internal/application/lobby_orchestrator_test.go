package application

import (
	"testing"

	"github.com/bnema/online-session-kit/internal/adapters/platform/sandbox"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lobbyUser struct {
	session *SessionManager
	events  *recorder
	lobby   *LobbyOrchestrator
}

func (u *lobbyUser) id() domain.SessionID { return u.session.SessionID() }

func newLobbyUser(t *testing.T, p *sandbox.Platform, accountID domain.AccountID, cfg LobbyConfig) *lobbyUser {
	t.Helper()

	u := &lobbyUser{
		session: signIn(t, p, sandbox.AccountSeed{ID: accountID, DisplayName: string(accountID)}),
		events:  &recorder{},
	}
	u.lobby = NewLobbyOrchestrator(u.events, cfg, zerolog.Nop())
	require.NoError(t, u.lobby.Initialize(p, u.id()))
	return u
}

func run(t *testing.T, p *sandbox.Platform, call func(done *Completion) error) error {
	t.Helper()

	done := &Completion{}
	if err := call(done); err != nil {
		require.True(t, done.Done())
		return err
	}
	pumpUntil(t, p.Tick, done)
	drain(t, p)
	return done.Err()
}

func TestLobbyCreateEmitsCreatedThenJoined(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u1 := newLobbyUser(t, p, "acc-u1", LobbyConfig{})

	require.NoError(t, run(t, p, u1.lobby.CreateLobby))

	assert.Equal(t, []string{event.TypeLobbyCreated, event.TypeLobbyJoined}, u1.events.types()[:2])
	created := lastOf[event.LobbyCreated](t, u1.events)
	assert.True(t, created.OK)

	current, ok := u1.lobby.CurrentLobby()
	require.True(t, ok)
	assert.Equal(t, created.LobbyID, current.LobbyID)
	assert.Equal(t, u1.id(), current.OwnerID)
	assert.Equal(t, 1, current.MemberCount)
	assert.Equal(t, domain.DefaultLobbyMaxMembers, current.MaxMembers)
	assert.True(t, current.AllowInvites)
	assert.False(t, current.PresenceEnabled)

	bucket, ok := p.LobbyAttribute(current.LobbyID, domain.BucketAttributeKey)
	require.True(t, ok)
	assert.Equal(t, domain.DefaultBucket, bucket)
	assert.Equal(t, 1, p.OpenHandles(), "the current lobby holds one details handle")

	assert.ErrorIs(t, run(t, p, u1.lobby.CreateLobby), domain.ErrAlreadyInLobby)
}

func TestLobbyCreateFailures(t *testing.T) {
	t.Parallel()

	t.Run("not connected", func(t *testing.T) {
		t.Parallel()

		events := &recorder{}
		lobby := NewLobbyOrchestrator(events, LobbyConfig{}, zerolog.Nop())

		err := lobby.CreateLobby(nil)
		require.ErrorIs(t, err, domain.ErrNotConnected)
		created := lastOf[event.LobbyCreated](t, events)
		assert.False(t, created.OK)
		assert.ErrorIs(t, created.Err, domain.ErrNotConnected)
	})

	t.Run("platform rejects", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u1 := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
		p.FailNext(sandbox.OpCreateLobby, domain.ResultLimitExceeded)

		err := run(t, p, u1.lobby.CreateLobby)
		require.ErrorIs(t, err, domain.ErrOperationFailed)
		created := lastOf[event.LobbyCreated](t, u1.events)
		assert.False(t, created.OK)
		assert.Zero(t, u1.events.count(event.TypeLobbyJoined))
		_, ok := u1.lobby.CurrentLobby()
		assert.False(t, ok)
	})
}

func TestLobbySearchIsScopedToBucket(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	red := newLobbyUser(t, p, "acc-red", LobbyConfig{Bucket: "red"})
	blue := newLobbyUser(t, p, "acc-blue", LobbyConfig{Bucket: "blue"})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-red", Owner: "puid-host", Bucket: "red", Name: "Red room"})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-blue", Owner: "puid-host", Bucket: "blue", Name: "Blue room"})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-secret", Owner: "puid-host", Bucket: "red", Permission: domain.LobbyInviteOnly})

	search := func(u *lobbyUser) []domain.LobbySummary {
		require.NoError(t, run(t, p, func(done *Completion) error {
			return u.lobby.SearchLobbies(nil, 0, done)
		}))
		return u.lobby.SearchResults()
	}

	redResults := search(red)
	blueResults := search(blue)
	require.Len(t, redResults, 1)
	require.Len(t, blueResults, 1)
	assert.Equal(t, domain.LobbyID("L-red"), redResults[0].LobbyID)
	assert.Equal(t, "Red room", redResults[0].Name)
	assert.Equal(t, domain.LobbyID("L-blue"), blueResults[0].LobbyID)

	assert.Zero(t, p.OpenHandles())
	assert.Equal(t, 2, p.ReleaseCount(sandbox.HandleLobbySearch))
	assert.Equal(t, 2, p.ReleaseCount(sandbox.HandleLobbyDetails))
	assert.Zero(t, p.DoubleReleases())

	updated := lastOf[event.LobbySearchResultsUpdated](t, blue.events)
	assert.Equal(t, domain.ResultSuccess, updated.Result)
	assert.Equal(t, blueResults, updated.Results)
}

func TestLobbySearchAppliesFilters(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-1", Owner: "puid-h", Map: "Dust", Mode: "ctf"})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-2", Owner: "puid-h", Map: "Dunes", Mode: "dm"})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-3", Owner: "puid-h", Map: "Harbor", Mode: "ctf"})

	testCases := []struct {
		name    string
		filters []domain.SearchFilter
		want    []domain.LobbyID
	}{
		{name: "no filters", want: []domain.LobbyID{"L-1", "L-2", "L-3"}},
		{name: "equal", filters: []domain.SearchFilter{{Key: "mode", Value: "ctf", Op: domain.CompareEqual}}, want: []domain.LobbyID{"L-1", "L-3"}},
		{name: "not equal", filters: []domain.SearchFilter{{Key: "mode", Value: "ctf", Op: domain.CompareNotEqual}}, want: []domain.LobbyID{"L-2"}},
		{name: "contains", filters: []domain.SearchFilter{{Key: "map", Value: "du", Op: domain.CompareContains}}, want: []domain.LobbyID{"L-1", "L-2"}},
		{name: "combined", filters: []domain.SearchFilter{
			{Key: "map", Value: "du", Op: domain.CompareContains},
			{Key: "mode", Value: "ctf", Op: domain.CompareEqual},
		}, want: []domain.LobbyID{"L-1"}},
	}

	for _, tc := range testCases {
		require.NoError(t, run(t, p, func(done *Completion) error {
			return u.lobby.SearchLobbies(tc.filters, 10, done)
		}), tc.name)

		var got []domain.LobbyID
		for _, summary := range u.lobby.SearchResults() {
			got = append(got, summary.LobbyID)
		}
		assert.Equal(t, tc.want, got, tc.name)
	}
	assert.Zero(t, p.OpenHandles())
}

func TestLobbySearchFailureClearsSnapshotAndReleasesHandle(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-1", Owner: "puid-h"})
	require.NoError(t, run(t, p, func(done *Completion) error { return u.lobby.SearchLobbies(nil, 0, done) }))
	require.Len(t, u.lobby.SearchResults(), 1)

	p.FailNext(sandbox.OpFindLobbies, domain.ResultNoConnection)
	err := run(t, p, func(done *Completion) error { return u.lobby.SearchLobbies(nil, 0, done) })

	require.ErrorIs(t, err, domain.ErrOperationFailed)
	assert.Empty(t, u.lobby.SearchResults())
	updated := lastOf[event.LobbySearchResultsUpdated](t, u.events)
	assert.Equal(t, domain.ResultNoConnection, updated.Result)
	assert.Empty(t, updated.Results)
	assert.Zero(t, p.OpenHandles())
	assert.Equal(t, 2, p.ReleaseCount(sandbox.HandleLobbySearch))
}

func TestLobbyJoinAndLeaveAcrossTwoUsers(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u1 := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	u2 := newLobbyUser(t, p, "acc-u2", LobbyConfig{})

	require.NoError(t, run(t, p, u1.lobby.CreateLobby))
	lobbyID := u1.lobby.CurrentLobbyID()

	require.NoError(t, run(t, p, func(done *Completion) error { return u2.lobby.JoinLobby(lobbyID, done) }))

	joined := lastOf[event.LobbyJoined](t, u2.events)
	assert.Equal(t, lobbyID, joined.Summary.LobbyID)
	assert.Equal(t, 2, joined.Summary.MemberCount)
	assert.Equal(t, u1.id(), joined.Summary.OwnerID)

	member := lastOf[event.LobbyMemberUpdated](t, u1.events)
	assert.Equal(t, u2.id(), member.MemberID)
	assert.Equal(t, domain.MemberJoined, member.Change)
	current, _ := u1.lobby.CurrentLobby()
	assert.Equal(t, 2, current.MemberCount)

	assert.ErrorIs(t, run(t, p, func(done *Completion) error { return u2.lobby.JoinLobby(lobbyID, done) }), domain.ErrAlreadyInLobby)

	require.NoError(t, run(t, p, u2.lobby.LeaveLobby))
	assert.Equal(t, lobbyID, lastOf[event.LobbyLeft](t, u2.events).LobbyID)
	_, inLobby := u2.lobby.CurrentLobby()
	assert.False(t, inLobby)
	current, _ = u1.lobby.CurrentLobby()
	assert.Equal(t, 1, current.MemberCount)
	assert.Equal(t, []domain.SessionID{u1.id()}, p.LobbyMembers(lobbyID))

	assert.ErrorIs(t, run(t, p, u2.lobby.LeaveLobby), domain.ErrNotInLobby)
	assert.Equal(t, 1, p.OpenHandles())
}

func TestLobbyJoinFailures(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-full", Owner: "puid-h", MaxMembers: 1})

	err := run(t, p, func(done *Completion) error { return u.lobby.JoinLobby("L-full", done) })
	var opErr *domain.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domain.ResultLimitExceeded, opErr.Result)

	failed := lastOf[event.LobbyOperationFailed](t, u.events)
	assert.Equal(t, "join", failed.Op)
	assert.Equal(t, domain.LobbyID("L-full"), failed.LobbyID)

	assert.ErrorIs(t, run(t, p, func(done *Completion) error { return u.lobby.JoinLobby("", done) }), domain.ErrEmptyLobbyID)
	assert.ErrorIs(t, run(t, p, func(done *Completion) error { return u.lobby.JoinLobby("L-missing", done) }), domain.ErrOperationFailed)
	assert.Zero(t, p.OpenHandles())
}

func TestLobbyCreateOrJoinIsOneAtATime(t *testing.T) {
	t.Parallel()

	t.Run("second create in the same frame", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})

		first, second := &Completion{}, &Completion{}
		require.NoError(t, u.lobby.CreateLobby(first))
		require.ErrorIs(t, u.lobby.CreateLobby(second), domain.ErrLobbyOpInProgress)
		assert.True(t, second.Done())
		assert.False(t, lastOf[event.LobbyCreated](t, u.events).OK)

		pumpUntil(t, p.Tick, first)
		drain(t, p)
		require.NoError(t, first.Err())
		assert.Equal(t, 1, u.events.count(event.TypeLobbyJoined))

		require.NoError(t, run(t, p, u.lobby.LeaveLobby))
		_, member := p.MemberLobby(u.id())
		assert.False(t, member, "no lobby is left behind on the platform")
	})

	t.Run("second join in the same frame", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
		p.SeedLobby(sandbox.LobbySeed{ID: "L-1", Owner: "puid-h1"})
		p.SeedLobby(sandbox.LobbySeed{ID: "L-3", Owner: "puid-h3"})

		first, second := &Completion{}, &Completion{}
		require.NoError(t, u.lobby.JoinLobby("L-1", first))
		require.ErrorIs(t, u.lobby.JoinLobby("L-3", second), domain.ErrLobbyOpInProgress)
		require.ErrorIs(t, u.lobby.CreateLobby(&Completion{}), domain.ErrLobbyOpInProgress)

		pumpUntil(t, p.Tick, first)
		drain(t, p)
		require.NoError(t, first.Err())
		assert.Equal(t, domain.LobbyID("L-1"), u.lobby.CurrentLobbyID())
		assert.Len(t, p.LobbyMembers("L-1"), 2)
		assert.Equal(t, []domain.SessionID{"puid-h3"}, p.LobbyMembers("L-3"))
	})

	t.Run("failed join frees the slot", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
		p.SeedLobby(sandbox.LobbySeed{ID: "L-1", Owner: "puid-h1"})
		p.FailNext(sandbox.OpJoinLobby, domain.ResultNoConnection)

		assert.ErrorIs(t, run(t, p, func(done *Completion) error { return u.lobby.JoinLobby("L-1", done) }), domain.ErrOperationFailed)
		require.NoError(t, run(t, p, func(done *Completion) error { return u.lobby.JoinLobby("L-1", done) }))
		assert.Equal(t, domain.LobbyID("L-1"), u.lobby.CurrentLobbyID())
	})
}

func TestLobbyJoinWithoutDetailsLeavesOwnershipUnknown(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	p.SeedLobby(sandbox.LobbySeed{ID: "L-1", Owner: "puid-h1"})
	p.FailNext(sandbox.OpCopyLobbyDetails, domain.ResultUnexpectedError)

	done := &Completion{}
	require.NoError(t, u.lobby.JoinLobby("L-1", done))
	pumpUntil(t, p.Tick, done)
	require.NoError(t, done.Err())

	joined := lastOf[event.LobbyJoined](t, u.events)
	assert.Equal(t, domain.LobbyID("L-1"), joined.Summary.LobbyID)
	assert.True(t, joined.Summary.OwnerID.IsZero())
	assert.Zero(t, joined.Summary.MemberCount)

	assert.ErrorIs(t, u.lobby.ModifyCurrentLobby(domain.LobbyChanges{Name: "x"}, &Completion{}), domain.ErrNotLobbyOwner)

	drain(t, p)
	current, ok := u.lobby.CurrentLobby()
	require.True(t, ok)
	assert.Equal(t, domain.SessionID("puid-h1"), current.OwnerID)
	assert.Equal(t, 2, current.MemberCount)
}

func TestLobbyModifyReleasesModificationOnce(t *testing.T) {
	t.Parallel()

	t.Run("commit succeeds", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
		require.NoError(t, run(t, p, u.lobby.CreateLobby))
		lobbyID := u.lobby.CurrentLobbyID()

		changes := domain.LobbyChanges{Name: "Night shift", Mode: "ctf", MaxMembers: 8}
		require.NoError(t, run(t, p, func(done *Completion) error { return u.lobby.ModifyCurrentLobby(changes, done) }))

		name, _ := p.LobbyAttribute(lobbyID, domain.LobbyAttributeName)
		assert.Equal(t, "Night shift", name)
		_, hasMap := p.LobbyAttribute(lobbyID, domain.LobbyAttributeMap)
		assert.False(t, hasMap, "empty fields are not written")
		assert.Equal(t, 8, p.LobbyMaxMembers(lobbyID))

		updated := lastOf[event.LobbyUpdated](t, u.events)
		assert.Equal(t, "Night shift", updated.Summary.Name)
		assert.Equal(t, 8, updated.Summary.MaxMembers)

		assert.Equal(t, 1, p.ReleaseCount(sandbox.HandleLobbyModification))
		assert.Zero(t, p.DoubleReleases())
		assert.Equal(t, 1, p.OpenHandles())
	})

	t.Run("commit fails", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
		require.NoError(t, run(t, p, u.lobby.CreateLobby))
		p.FailNext(sandbox.OpUpdateLobby, domain.ResultUnexpectedError)

		err := run(t, p, func(done *Completion) error {
			return u.lobby.ModifyCurrentLobby(domain.LobbyChanges{Map: "Harbor"}, done)
		})
		require.ErrorIs(t, err, domain.ErrOperationFailed)
		assert.Equal(t, "modify", lastOf[event.LobbyOperationFailed](t, u.events).Op)
		assert.Equal(t, 1, p.ReleaseCount(sandbox.HandleLobbyModification))
		assert.Zero(t, p.DoubleReleases())
	})

	t.Run("staging fails", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
		require.NoError(t, run(t, p, u.lobby.CreateLobby))

		err := run(t, p, func(done *Completion) error {
			return u.lobby.ModifyCurrentLobby(domain.LobbyChanges{MaxMembers: 1000}, done)
		})
		require.ErrorIs(t, err, domain.ErrOperationFailed)
		assert.Equal(t, 1, p.ReleaseCount(sandbox.HandleLobbyModification))
		assert.Zero(t, p.DoubleReleases())
	})

	t.Run("not owner", func(t *testing.T) {
		t.Parallel()

		p := newSandbox(t)
		u1 := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
		u2 := newLobbyUser(t, p, "acc-u2", LobbyConfig{})
		require.NoError(t, run(t, p, u1.lobby.CreateLobby))
		lobbyID := u1.lobby.CurrentLobbyID()
		require.NoError(t, run(t, p, func(done *Completion) error { return u2.lobby.JoinLobby(lobbyID, done) }))

		err := run(t, p, func(done *Completion) error {
			return u2.lobby.ModifyCurrentLobby(domain.LobbyChanges{Name: "mine"}, done)
		})
		require.ErrorIs(t, err, domain.ErrNotLobbyOwner)
		assert.Zero(t, p.ReleaseCount(sandbox.HandleLobbyModification))
	})
}

func TestLobbyDestroyClosesForEveryMember(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u1 := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	u2 := newLobbyUser(t, p, "acc-u2", LobbyConfig{})
	require.NoError(t, run(t, p, u1.lobby.CreateLobby))
	lobbyID := u1.lobby.CurrentLobbyID()
	require.NoError(t, run(t, p, func(done *Completion) error { return u2.lobby.JoinLobby(lobbyID, done) }))

	err := run(t, p, u2.lobby.DestroyLobby)
	var opErr *domain.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domain.ResultNotOwner, opErr.Result)
	assert.Equal(t, "destroy", lastOf[event.LobbyOperationFailed](t, u2.events).Op)

	require.NoError(t, run(t, p, u1.lobby.DestroyLobby))
	assert.False(t, p.HasLobby(lobbyID))
	assert.Equal(t, lobbyID, lastOf[event.LobbyLeft](t, u1.events).LobbyID)

	closed := lastOf[event.LobbyMemberUpdated](t, u2.events)
	assert.Equal(t, domain.MemberClosed, closed.Change)
	assert.Equal(t, lobbyID, lastOf[event.LobbyLeft](t, u2.events).LobbyID)
	_, inLobby := u2.lobby.CurrentLobby()
	assert.False(t, inLobby)
	assert.Zero(t, p.OpenHandles())
}

func TestLobbyKickedMemberLeaves(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u1 := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	u2 := newLobbyUser(t, p, "acc-u2", LobbyConfig{})
	require.NoError(t, run(t, p, u1.lobby.CreateLobby))
	lobbyID := u1.lobby.CurrentLobbyID()
	require.NoError(t, run(t, p, func(done *Completion) error { return u2.lobby.JoinLobby(lobbyID, done) }))

	p.KickMember(lobbyID, u2.id())
	drain(t, p)

	assert.Equal(t, lobbyID, lastOf[event.LobbyLeft](t, u2.events).LobbyID)
	assert.Zero(t, u1.events.count(event.TypeLobbyLeft))
	current, ok := u1.lobby.CurrentLobby()
	require.True(t, ok)
	assert.Equal(t, 1, current.MemberCount)
	assert.Equal(t, 1, p.OpenHandles())
}

func TestLobbyInvites(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u1 := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	u2 := newLobbyUser(t, p, "acc-u2", LobbyConfig{})
	u3 := newLobbyUser(t, p, "acc-u3", LobbyConfig{})

	assert.ErrorIs(t, run(t, p, func(done *Completion) error { return u1.lobby.SendLobbyInvite(u2.id(), done) }), domain.ErrNotInLobby)

	require.NoError(t, run(t, p, u1.lobby.CreateLobby))
	lobbyID := u1.lobby.CurrentLobbyID()
	require.NoError(t, run(t, p, func(done *Completion) error { return u1.lobby.SendLobbyInvite(u2.id(), done) }))
	require.NoError(t, run(t, p, func(done *Completion) error { return u1.lobby.SendLobbyInvite(u3.id(), done) }))

	invite := lastOf[event.LobbyInviteReceived](t, u2.events)
	assert.Equal(t, u1.id(), invite.SenderID)
	assert.Equal(t, 1, u3.events.count(event.TypeLobbyInviteReceived))
	_, inLobby := u2.lobby.CurrentLobby()
	assert.False(t, inLobby, "invites never auto-join")

	require.NoError(t, run(t, p, func(done *Completion) error { return u2.lobby.AcceptLobbyInvite(invite.InviteID, done) }))
	joined := lastOf[event.LobbyJoined](t, u2.events)
	assert.Equal(t, lobbyID, joined.Summary.LobbyID)
	assert.Equal(t, 2, joined.Summary.MemberCount)

	rejected := lastOf[event.LobbyInviteReceived](t, u3.events)
	require.NoError(t, run(t, p, func(done *Completion) error { return u3.lobby.RejectLobbyInvite(rejected.InviteID, done) }))
	err := run(t, p, func(done *Completion) error { return u3.lobby.AcceptLobbyInvite(rejected.InviteID, done) })
	assert.ErrorIs(t, err, domain.ErrOperationFailed)

	// u1's and u2's current lobby details.
	assert.Equal(t, 2, p.OpenHandles())
	assert.Zero(t, p.DoubleReleases())
}

func TestLobbyUpdateNotificationRefreshesCurrent(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	require.NoError(t, run(t, p, u.lobby.CreateLobby))
	lobbyID := u.lobby.CurrentLobbyID()
	p.SeedLobby(sandbox.LobbySeed{ID: "L-other", Owner: "puid-h"})
	u.events.reset()

	p.TouchLobby(lobbyID)
	p.TouchLobby("L-other")
	drain(t, p)

	require.Equal(t, 2, u.events.count(event.TypeLobbyUpdated))
	first, ok := u.events.events[0].(event.LobbyUpdated)
	require.True(t, ok)
	assert.Equal(t, lobbyID, first.Summary.LobbyID)
	other := lastOf[event.LobbyUpdated](t, u.events)
	assert.Equal(t, domain.LobbyID("L-other"), other.LobbyID)
	assert.True(t, other.Summary.LobbyID.IsZero())
	assert.Equal(t, 1, p.OpenHandles())
	assert.Equal(t, 1, p.ReleaseCount(sandbox.HandleLobbyDetails))
}

func TestLobbyShutdownReleasesDetailsAndUnregisters(t *testing.T) {
	t.Parallel()

	p := newSandbox(t)
	u := newLobbyUser(t, p, "acc-u1", LobbyConfig{})
	require.NoError(t, run(t, p, u.lobby.CreateLobby))
	require.Equal(t, 3, u.lobby.subscriptionCount())

	u.lobby.Shutdown()
	u.lobby.Shutdown()

	assert.Zero(t, p.OpenHandles())
	assert.Zero(t, p.DoubleReleases())
	assert.Zero(t, u.lobby.subscriptionCount())
	assert.Zero(t, p.NotificationCount())
	assert.True(t, u.lobby.CurrentLobbyID().IsZero())
	assert.ErrorIs(t, u.lobby.CreateLobby(nil), domain.ErrNotConnected)
}
