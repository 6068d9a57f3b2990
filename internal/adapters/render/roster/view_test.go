package roster

import (
	"strings"
	"testing"

	"github.com/bnema/online-session-kit/internal/application"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSignedInSession(t *testing.T) {
	output, err := Render(View{
		Sections: SectionSession,
		Identity: application.Identity{
			AccountID:             "acc-ada",
			SessionID:             "puid-ada",
			DisplayName:           "Ada",
			DeploymentOrSandboxID: "dep-test",
			State:                 domain.LoginStateAuthenticated,
		},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "state: Authenticated")
	assert.Contains(t, output, "Ada (acc-ada)")
	assert.Contains(t, output, "session: puid-ada")
	assert.Contains(t, output, "deployment: dep-test")
	assert.NotContains(t, output, "Friends")
}

func TestRenderSignedOutSession(t *testing.T) {
	output, err := Render(View{Sections: SectionSession})

	require.NoError(t, err)
	assert.Contains(t, output, "state: LoggedOut")
	assert.Contains(t, output, "Not signed in.")
}

func TestRenderFriends(t *testing.T) {
	friends := domain.ProjectFriends([]domain.FriendEntry{
		{AccountID: "acc-cy", Status: domain.FriendStatusInviteReceived},
		{AccountID: "acc-bob", DisplayName: "Bob", Status: domain.FriendStatusFriends, Presence: domain.PresenceAway, HasPresence: true},
	})

	output, err := Render(View{Sections: SectionFriends, Friends: friends})

	require.NoError(t, err)
	assert.Contains(t, output, "friends: 2")
	assert.Contains(t, output, "Bob Friends (Away) acc-bob")
	assert.Contains(t, output, "acc-cy Invite Received")
	assert.Less(t, strings.Index(output, "Bob"), strings.Index(output, "acc-cy"))
}

func TestRenderEmptySections(t *testing.T) {
	output, err := Render(View{Sections: SectionFriends | SectionLobby | SectionSearch})

	require.NoError(t, err)
	assert.Contains(t, output, "No friends yet.")
	assert.Contains(t, output, "Not in a lobby.")
	assert.Contains(t, output, "No lobbies found.")
	assert.NotContains(t, output, "Session")

	friends := strings.Index(output, "Friends")
	lobby := strings.Index(output, "Current lobby")
	search := strings.Index(output, "Lobbies")
	assert.Less(t, friends, lobby)
	assert.Less(t, lobby, search)
}

func TestRenderLobbies(t *testing.T) {
	current := domain.LobbySummary{
		LobbyID:      "L-1",
		OwnerID:      "puid-ada",
		Name:         "Night Ops",
		Mode:         "ctf",
		Map:          "dust",
		MemberCount:  2,
		MaxMembers:   4,
		AllowInvites: true,
	}
	full := domain.LobbySummary{LobbyID: "L-2", MemberCount: 4, MaxMembers: 4}

	output, err := Render(View{
		Sections: SectionLobby | SectionSearch,
		Lobby:    current,
		InLobby:  true,
		Results:  []domain.LobbySummary{current, full},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Night Ops [L-1] 2/4 mode: ctf  map: dust")
	assert.Contains(t, output, "owner: puid-ada")
	assert.Contains(t, output, "invites: on  presence: off")
	assert.Contains(t, output, "results: 2")
	assert.Contains(t, output, "(unnamed) [L-2] 4/4")
}

func TestSectionHas(t *testing.T) {
	t.Parallel()

	all := SectionSession | SectionFriends | SectionLobby | SectionSearch
	assert.True(t, all.Has(SectionLobby|SectionSearch))
	assert.False(t, SectionFriends.Has(SectionLobby))
}
