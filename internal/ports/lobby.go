package ports

import "github.com/bnema/online-session-kit/internal/domain"

// LobbyInfo is the copied-out state of a lobby details handle.
type LobbyInfo struct {
	LobbyID         domain.LobbyID
	OwnerID         domain.SessionID
	MemberCount     int
	MaxMembers      int
	Permission      domain.LobbyPermission
	PresenceEnabled bool
	AllowInvites    bool
	BucketID        string
}

// LobbyDetails is an owned snapshot handle. Callers must Release it exactly once.
type LobbyDetails interface {
	Info() (LobbyInfo, domain.Result)
	Attribute(key string) (string, bool)
	Release()
}

// LobbySearch is an owned query handle. Callers must Release it exactly once.
type LobbySearch interface {
	SetMaxResults(n int) domain.Result
	SetParameter(filter domain.SearchFilter) domain.Result
	Find(local domain.SessionID, cb func(domain.Result))
	ResultCount() int
	CopyResultAt(index int) (LobbyDetails, domain.Result)
	Release()
}

// LobbyModification is an owned transaction handle committed by UpdateLobby.
// The platform copies its contents when UpdateLobby is issued, so it may be
// released before the commit completes.
type LobbyModification interface {
	AddAttribute(attr domain.LobbyAttribute) domain.Result
	SetMaxMembers(n int) domain.Result
	Release()
}

type CreateLobbyRequest struct {
	LocalUserID     domain.SessionID
	MaxMembers      int
	Permission      domain.LobbyPermission
	PresenceEnabled bool
	AllowInvites    bool
	BucketID        string
}

type LobbyResult struct {
	Result  domain.Result
	LobbyID domain.LobbyID
}

type LobbyInviteReceived struct {
	InviteID domain.InviteID
	LocalID  domain.SessionID
	SenderID domain.SessionID
}

type LobbyUpdateReceived struct {
	LobbyID domain.LobbyID
}

type LobbyMemberUpdate struct {
	LobbyID  domain.LobbyID
	MemberID domain.SessionID
	Change   domain.MemberChange
}

type LobbyClient interface {
	CreateLobby(req CreateLobbyRequest, cb func(LobbyResult))
	DestroyLobby(local domain.SessionID, lobbyID domain.LobbyID, cb func(LobbyResult))
	JoinLobbyByID(local domain.SessionID, lobbyID domain.LobbyID, presenceEnabled bool, cb func(LobbyResult))
	JoinLobby(local domain.SessionID, details LobbyDetails, presenceEnabled bool, cb func(LobbyResult))
	LeaveLobby(local domain.SessionID, lobbyID domain.LobbyID, cb func(LobbyResult))

	SendInvite(local domain.SessionID, lobbyID domain.LobbyID, target domain.SessionID, cb func(domain.Result))
	RejectInvite(local domain.SessionID, inviteID domain.InviteID, cb func(domain.Result))

	CopyLobbyDetails(local domain.SessionID, lobbyID domain.LobbyID) (LobbyDetails, domain.Result)
	CopyLobbyDetailsByInviteID(inviteID domain.InviteID) (LobbyDetails, domain.Result)
	CreateLobbySearch(maxResults int) (LobbySearch, domain.Result)
	UpdateLobbyModification(local domain.SessionID, lobbyID domain.LobbyID) (LobbyModification, domain.Result)
	UpdateLobby(mod LobbyModification, cb func(LobbyResult))

	AddNotifyLobbyInviteReceived(fn func(LobbyInviteReceived)) NotificationID
	RemoveNotifyLobbyInviteReceived(id NotificationID)
	AddNotifyLobbyUpdateReceived(fn func(LobbyUpdateReceived)) NotificationID
	RemoveNotifyLobbyUpdateReceived(id NotificationID)
	AddNotifyLobbyMemberUpdateReceived(fn func(LobbyMemberUpdate)) NotificationID
	RemoveNotifyLobbyMemberUpdateReceived(id NotificationID)
}
