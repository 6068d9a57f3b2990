package domain

// AccountID identifies a human user's platform account. It is stable across sessions.
type AccountID string

// SessionID identifies an authenticated connect-session. Lobby and cross-id
// operations are keyed by it, never by AccountID.
type SessionID string

func (id AccountID) String() string { return string(id) }

func (id AccountID) IsZero() bool { return id == "" }

func (id SessionID) String() string { return string(id) }

func (id SessionID) IsZero() bool { return id == "" }
