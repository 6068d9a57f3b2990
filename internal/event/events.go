package event

import (
	"time"

	"github.com/bnema/online-session-kit/internal/domain"
)

// Event is anything published on the Bus. Types are named "category.action".
type Event interface {
	EventType() string
	Timestamp() time.Time
}

const (
	TypeLoginStateChanged         = "session.login_state_changed"
	TypeDisplayNameCached         = "session.display_name_cached"
	TypeFriendsUpdated            = "friends.updated"
	TypeLobbySearchResultsUpdated = "lobby.search_results_updated"
	TypeLobbyCreated              = "lobby.created"
	TypeLobbyJoined               = "lobby.joined"
	TypeLobbyLeft                 = "lobby.left"
	TypeLobbyInviteReceived       = "lobby.invite_received"
	TypeLobbyUpdated              = "lobby.updated"
	TypeLobbyMemberUpdated        = "lobby.member_updated"
	TypeLobbyOperationFailed      = "lobby.operation_failed"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

func (e baseEvent) EventType() string { return e.eventType }

func (e baseEvent) Timestamp() time.Time { return e.timestamp }

type LoginStateChanged struct {
	baseEvent
	LoggedIn bool
	State    domain.LoginState
	Message  string
	Err      error
}

func NewLoginStateChanged(loggedIn bool, state domain.LoginState, message string, err error) LoginStateChanged {
	return LoginStateChanged{
		baseEvent: newBaseEvent(TypeLoginStateChanged),
		LoggedIn:  loggedIn,
		State:     state,
		Message:   message,
		Err:       err,
	}
}

type DisplayNameCached struct {
	baseEvent
	DisplayName string
}

func NewDisplayNameCached(name string) DisplayNameCached {
	return DisplayNameCached{baseEvent: newBaseEvent(TypeDisplayNameCached), DisplayName: name}
}

type FriendsUpdated struct {
	baseEvent
	Friends []domain.FriendView
}

func NewFriendsUpdated(friends []domain.FriendView) FriendsUpdated {
	return FriendsUpdated{baseEvent: newBaseEvent(TypeFriendsUpdated), Friends: friends}
}

// LobbySearchResultsUpdated carries a full snapshot. An empty Results with a
// non-success Result means the search failed.
type LobbySearchResultsUpdated struct {
	baseEvent
	Results []domain.LobbySummary
	Result  domain.Result
}

func NewLobbySearchResultsUpdated(results []domain.LobbySummary, result domain.Result) LobbySearchResultsUpdated {
	return LobbySearchResultsUpdated{
		baseEvent: newBaseEvent(TypeLobbySearchResultsUpdated),
		Results:   results,
		Result:    result,
	}
}

type LobbyCreated struct {
	baseEvent
	OK      bool
	LobbyID domain.LobbyID
	Err     error
}

func NewLobbyCreated(ok bool, lobbyID domain.LobbyID, err error) LobbyCreated {
	return LobbyCreated{baseEvent: newBaseEvent(TypeLobbyCreated), OK: ok, LobbyID: lobbyID, Err: err}
}

type LobbyJoined struct {
	baseEvent
	Summary domain.LobbySummary
}

func NewLobbyJoined(summary domain.LobbySummary) LobbyJoined {
	return LobbyJoined{baseEvent: newBaseEvent(TypeLobbyJoined), Summary: summary}
}

type LobbyLeft struct {
	baseEvent
	LobbyID domain.LobbyID
}

func NewLobbyLeft(lobbyID domain.LobbyID) LobbyLeft {
	return LobbyLeft{baseEvent: newBaseEvent(TypeLobbyLeft), LobbyID: lobbyID}
}

type LobbyInviteReceived struct {
	baseEvent
	InviteID domain.InviteID
	SenderID domain.SessionID
}

func NewLobbyInviteReceived(inviteID domain.InviteID, sender domain.SessionID) LobbyInviteReceived {
	return LobbyInviteReceived{baseEvent: newBaseEvent(TypeLobbyInviteReceived), InviteID: inviteID, SenderID: sender}
}

// LobbyUpdated reports attribute or capacity changes. Summary is zero when
// the lobby is not the current one and no details could be copied.
type LobbyUpdated struct {
	baseEvent
	LobbyID domain.LobbyID
	Summary domain.LobbySummary
}

func NewLobbyUpdated(lobbyID domain.LobbyID, summary domain.LobbySummary) LobbyUpdated {
	return LobbyUpdated{baseEvent: newBaseEvent(TypeLobbyUpdated), LobbyID: lobbyID, Summary: summary}
}

type LobbyMemberUpdated struct {
	baseEvent
	LobbyID  domain.LobbyID
	MemberID domain.SessionID
	Change   domain.MemberChange
}

func NewLobbyMemberUpdated(lobbyID domain.LobbyID, member domain.SessionID, change domain.MemberChange) LobbyMemberUpdated {
	return LobbyMemberUpdated{
		baseEvent: newBaseEvent(TypeLobbyMemberUpdated),
		LobbyID:   lobbyID,
		MemberID:  member,
		Change:    change,
	}
}

type LobbyOperationFailed struct {
	baseEvent
	Op      string
	LobbyID domain.LobbyID
	Err     error
}

func NewLobbyOperationFailed(op string, lobbyID domain.LobbyID, err error) LobbyOperationFailed {
	return LobbyOperationFailed{
		baseEvent: newBaseEvent(TypeLobbyOperationFailed),
		Op:        op,
		LobbyID:   lobbyID,
		Err:       err,
	}
}
