package domain

import (
	"cmp"
	"slices"
)

type FriendStatus int

const (
	FriendStatusUnknown FriendStatus = iota
	FriendStatusNotFriends
	FriendStatusInviteSent
	FriendStatusInviteReceived
	FriendStatusFriends
	FriendStatusBlocked
)

func (s FriendStatus) String() string {
	switch s {
	case FriendStatusNotFriends:
		return "Not Friends"
	case FriendStatusInviteSent:
		return "Invite Sent"
	case FriendStatusInviteReceived:
		return "Invite Received"
	case FriendStatusFriends:
		return "Friends"
	case FriendStatusBlocked:
		return "Blocked"
	default:
		return "Unknown"
	}
}

// rank orders statuses in the roster projection: friends first, pending
// invites next, then everything else.
func (s FriendStatus) rank() int {
	switch s {
	case FriendStatusFriends:
		return 0
	case FriendStatusInviteReceived:
		return 1
	case FriendStatusInviteSent:
		return 2
	case FriendStatusBlocked:
		return 3
	case FriendStatusNotFriends:
		return 4
	default:
		return 5
	}
}

type PresenceStatus int

const (
	PresenceOffline PresenceStatus = iota
	PresenceOnline
	PresenceAway
	PresenceBusy
	PresenceJoinable
	PresenceInLobby
	PresenceInMatch
)

func (p PresenceStatus) String() string {
	switch p {
	case PresenceOnline:
		return "Online"
	case PresenceAway:
		return "Away"
	case PresenceBusy:
		return "Do Not Disturb"
	case PresenceJoinable:
		return "Joinable"
	case PresenceInLobby:
		return "In Lobby"
	case PresenceInMatch:
		return "In Match"
	default:
		return "Offline"
	}
}

// FriendEntry is one roster row keyed by AccountID. Optional fields are
// filled by enrichment lookups after the base roster query.
type FriendEntry struct {
	AccountID       AccountID
	CrossPlatformID SessionID
	DisplayName     string
	Status          FriendStatus
	Presence        PresenceStatus

	HasName          bool
	HasPresence      bool
	MappingRequested bool
}

// FriendView is the UI-ready projection of a FriendEntry.
type FriendView struct {
	AccountID       AccountID
	CrossPlatformID SessionID
	DisplayName     string
	Label           string
	Status          FriendStatus
	StatusText      string
	Presence        PresenceStatus
	PresenceText    string
	HasPresence     bool
}

func (e FriendEntry) View() FriendView {
	label := e.DisplayName
	if label == "" {
		label = string(e.AccountID)
	}

	return FriendView{
		AccountID:       e.AccountID,
		CrossPlatformID: e.CrossPlatformID,
		DisplayName:     e.DisplayName,
		Label:           label,
		Status:          e.Status,
		StatusText:      e.Status.String(),
		Presence:        e.Presence,
		PresenceText:    e.Presence.String(),
		HasPresence:     e.HasPresence,
	}
}

// ProjectFriends returns the sorted view of a roster. Ordering is by status
// rank, then display name, then raw id, so equal input always yields equal output.
func ProjectFriends(entries []FriendEntry) []FriendView {
	views := make([]FriendView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, entry.View())
	}

	slices.SortFunc(views, compareFriendViews)
	return views
}

func compareFriendViews(a, b FriendView) int {
	if c := cmp.Compare(a.Status.rank(), b.Status.rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DisplayName, b.DisplayName); c != 0 {
		return c
	}
	return cmp.Compare(a.AccountID, b.AccountID)
}
