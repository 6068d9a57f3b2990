package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectFriendsOrdering(t *testing.T) {
	t.Parallel()

	entries := []FriendEntry{
		{AccountID: "acc-9", Status: FriendStatusUnknown},
		{AccountID: "acc-5", DisplayName: "zed", Status: FriendStatusBlocked},
		{AccountID: "acc-4", DisplayName: "Yan", Status: FriendStatusInviteSent},
		{AccountID: "acc-3", DisplayName: "Xia", Status: FriendStatusInviteReceived},
		{AccountID: "acc-2", DisplayName: "bea", Status: FriendStatusFriends},
		{AccountID: "acc-1", DisplayName: "Bea", Status: FriendStatusFriends},
		{AccountID: "acc-0", DisplayName: "Bea", Status: FriendStatusFriends},
		{AccountID: "acc-6", DisplayName: "Nia", Status: FriendStatusNotFriends},
	}

	views := ProjectFriends(entries)

	got := make([]AccountID, 0, len(views))
	for _, view := range views {
		got = append(got, view.AccountID)
	}
	assert.Equal(t, []AccountID{"acc-0", "acc-1", "acc-2", "acc-3", "acc-4", "acc-5", "acc-6", "acc-9"}, got)

	// Input order must not matter.
	reversed := make([]FriendEntry, len(entries))
	for i, entry := range entries {
		reversed[len(entries)-1-i] = entry
	}
	assert.Equal(t, views, ProjectFriends(reversed))
}

func TestFriendEntryView(t *testing.T) {
	t.Parallel()

	named := FriendEntry{AccountID: "acc-1", DisplayName: "Ada", Status: FriendStatusFriends, Presence: PresenceBusy, HasPresence: true}.View()
	assert.Equal(t, "Ada", named.Label)
	assert.Equal(t, "Friends", named.StatusText)
	assert.Equal(t, "Do Not Disturb", named.PresenceText)
	assert.True(t, named.HasPresence)

	unnamed := FriendEntry{AccountID: "acc-2", Status: FriendStatusNotFriends}.View()
	assert.Equal(t, "acc-2", unnamed.Label)
	assert.Equal(t, "Not Friends", unnamed.StatusText)
	assert.Equal(t, "Offline", unnamed.PresenceText)
}

func TestStatusTexts(t *testing.T) {
	t.Parallel()

	statuses := map[FriendStatus]string{
		FriendStatusUnknown:        "Unknown",
		FriendStatusNotFriends:     "Not Friends",
		FriendStatusInviteSent:     "Invite Sent",
		FriendStatusInviteReceived: "Invite Received",
		FriendStatusFriends:        "Friends",
		FriendStatusBlocked:        "Blocked",
	}
	for status, want := range statuses {
		assert.Equal(t, want, status.String())
	}

	presence := map[PresenceStatus]string{
		PresenceOffline:  "Offline",
		PresenceOnline:   "Online",
		PresenceAway:     "Away",
		PresenceBusy:     "Do Not Disturb",
		PresenceJoinable: "Joinable",
		PresenceInLobby:  "In Lobby",
		PresenceInMatch:  "In Match",
	}
	for status, want := range presence {
		assert.Equal(t, want, status.String())
	}
}

func TestComparisonOpMatch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		op      ComparisonOp
		stored  string
		present bool
		want    string
		match   bool
	}{
		{name: "equal hit", op: CompareEqual, stored: "ctf", present: true, want: "ctf", match: true},
		{name: "equal is case sensitive", op: CompareEqual, stored: "CTF", present: true, want: "ctf"},
		{name: "equal missing", op: CompareEqual, want: ""},
		{name: "not equal hit", op: CompareNotEqual, stored: "dm", present: true, want: "ctf", match: true},
		{name: "not equal missing", op: CompareNotEqual, want: "ctf", match: true},
		{name: "not equal miss", op: CompareNotEqual, stored: "ctf", present: true, want: "ctf"},
		{name: "contains folds case", op: CompareContains, stored: "Dust Bowl", present: true, want: "bowl", match: true},
		{name: "contains missing", op: CompareContains, want: "a"},
		{name: "unknown op", op: ComparisonOp(99), stored: "x", present: true, want: "x"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.match, tc.op.Match(tc.stored, tc.present, tc.want))
		})
	}
}

func TestLobbyChangesAttributesSkipEmptyFields(t *testing.T) {
	t.Parallel()

	attrs := LobbyChanges{Name: "Night", Mode: "ctf", MaxMembers: 8}.Attributes()
	assert.Equal(t, []LobbyAttribute{
		{Key: LobbyAttributeName, Value: "Night"},
		{Key: LobbyAttributeMode, Value: "ctf"},
	}, attrs)
	assert.Empty(t, LobbyChanges{}.Attributes())
}

func TestMemberChangeRemovesLocalMember(t *testing.T) {
	t.Parallel()

	assert.True(t, MemberKicked.RemovesLocalMember())
	assert.True(t, MemberClosed.RemovesLocalMember())
	assert.False(t, MemberLeft.RemovesLocalMember())
	assert.False(t, MemberPromoted.RemovesLocalMember())
	assert.Equal(t, "kicked", MemberKicked.String())
}

func TestOperationError(t *testing.T) {
	t.Parallel()

	err := error(NewOperationError("join lobby", ResultLimitExceeded))
	assert.EqualError(t, err, "join lobby failed: LimitExceeded")
	assert.ErrorIs(t, err, ErrOperationFailed)

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, ResultLimitExceeded, opErr.Result)
	assert.False(t, opErr.Result.OK())
	assert.True(t, ResultSuccess.OK())
	assert.Equal(t, "UnknownResult", Result(-1).String())
}

func TestLoginStateAndScopes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ConnectPending", LoginStateConnectPending.String())
	assert.Equal(t, "account_portal", CredentialAccountPortal.String())
	assert.True(t, DefaultAuthScopes.Has(ScopeFriendsList|ScopePresence))
	assert.False(t, ScopeBasicProfile.Has(ScopePresence))
}
