package ports

import "github.com/bnema/online-session-kit/internal/domain"

// NotificationID identifies a registered platform notification. The zero
// value is never issued and removing it is a no-op.
type NotificationID uint64

const InvalidNotificationID NotificationID = 0

// Platform is the connection handle to the online-services backend. Every
// asynchronous call completes from inside Tick on the caller's goroutine.
type Platform interface {
	Tick()
	Release()

	SandboxID() string
	DeploymentID() string

	Auth() AuthClient
	Connect() ConnectClient
	UserInfo() UserInfoClient
	Friends() FriendsClient
	Presence() PresenceClient
	Lobby() LobbyClient
}

type AuthLoginRequest struct {
	Credential domain.CredentialType
	Token      string
	Scopes     domain.AuthScope
}

type AuthLoginResult struct {
	Result    domain.Result
	AccountID domain.AccountID
}

type AuthClient interface {
	Login(req AuthLoginRequest, cb func(AuthLoginResult))
	Logout(accountID domain.AccountID, cb func(domain.Result))
	CopyUserAuthToken(accountID domain.AccountID) (domain.AuthToken, domain.Result)
	DeletePersistentAuth(refreshToken string, cb func(domain.Result))
}

type ConnectLoginResult struct {
	Result    domain.Result
	SessionID domain.SessionID
}

type ConnectClient interface {
	Login(accessToken string, cb func(ConnectLoginResult))
	Logout(sessionID domain.SessionID, cb func(domain.Result))
	LoggedIn(sessionID domain.SessionID) bool
	QueryExternalAccountMappings(local domain.SessionID, accounts []domain.AccountID, cb func(domain.Result))
	ExternalAccountMapping(local domain.SessionID, account domain.AccountID) (domain.SessionID, bool)
}

type UserInfo struct {
	AccountID   domain.AccountID
	DisplayName string
}

type UserInfoClient interface {
	QueryUserInfo(local, target domain.AccountID, cb func(domain.Result))
	CopyUserInfo(local, target domain.AccountID) (UserInfo, domain.Result)
}

// FriendsUpdate is pushed when the relationship with one account changes.
type FriendsUpdate struct {
	LocalAccountID  domain.AccountID
	TargetAccountID domain.AccountID
	PreviousStatus  domain.FriendStatus
	CurrentStatus   domain.FriendStatus
}

type FriendsClient interface {
	QueryFriends(local domain.AccountID, cb func(domain.Result))
	FriendsCount(local domain.AccountID) int
	FriendAtIndex(local domain.AccountID, index int) (domain.AccountID, bool)
	Status(local, target domain.AccountID) domain.FriendStatus

	SendInvite(local, target domain.AccountID, cb func(domain.Result))
	AcceptInvite(local, target domain.AccountID, cb func(domain.Result))
	RejectInvite(local, target domain.AccountID, cb func(domain.Result))

	AddNotifyFriendsUpdate(fn func(FriendsUpdate)) NotificationID
	RemoveNotifyFriendsUpdate(id NotificationID)
}

type PresenceChanged struct {
	LocalAccountID domain.AccountID
	PresenceUserID domain.AccountID
}

type PresenceClient interface {
	QueryPresence(local, target domain.AccountID, cb func(domain.Result))
	CopyPresence(local, target domain.AccountID) (domain.PresenceStatus, domain.Result)

	AddNotifyOnPresenceChanged(fn func(PresenceChanged)) NotificationID
	RemoveNotifyOnPresenceChanged(id NotificationID)
}
