package domain

// CredentialType selects how an account login proves identity.
type CredentialType int

const (
	CredentialRefreshToken CredentialType = iota
	CredentialPersistentAuth
	CredentialAccountPortal
)

func (c CredentialType) String() string {
	switch c {
	case CredentialRefreshToken:
		return "refresh_token"
	case CredentialPersistentAuth:
		return "persistent_auth"
	case CredentialAccountPortal:
		return "account_portal"
	default:
		return "unknown"
	}
}

// AuthScope is a bit set of permissions requested at account login.
type AuthScope uint32

const (
	ScopeBasicProfile AuthScope = 1 << iota
	ScopeFriendsList
	ScopePresence
)

const DefaultAuthScopes = ScopeBasicProfile | ScopeFriendsList | ScopePresence

func (s AuthScope) Has(scope AuthScope) bool {
	return s&scope == scope
}

// LoginState is the session state machine. A SessionID is only valid in
// LoginStateAuthenticated; an AccountID may exist from LoginStateAuthComplete on.
type LoginState int

const (
	LoginStateLoggedOut LoginState = iota
	LoginStateAuthPending
	LoginStateAuthComplete
	LoginStateConnectPending
	LoginStateAuthenticated
)

func (s LoginState) String() string {
	switch s {
	case LoginStateLoggedOut:
		return "LoggedOut"
	case LoginStateAuthPending:
		return "AuthPending"
	case LoginStateAuthComplete:
		return "AuthComplete"
	case LoginStateConnectPending:
		return "ConnectPending"
	case LoginStateAuthenticated:
		return "Authenticated"
	default:
		return "Unknown"
	}
}

// AuthToken is the token material copied out of a successful account login.
type AuthToken struct {
	AccountID    AccountID
	AccessToken  string
	RefreshToken string
}
