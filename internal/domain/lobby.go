package domain

const (
	// BucketAttributeKey partitions lobbies so applications sharing a
	// namespace never see each other's sessions.
	BucketAttributeKey = "bucket_id"
	DefaultBucket      = "default"

	LobbyAttributeName = "name"
	LobbyAttributeMap  = "map"
	LobbyAttributeMode = "mode"

	DefaultLobbyMaxMembers  = 4
	DefaultSearchMaxResults = 50
)

type LobbyID string

func (id LobbyID) IsZero() bool { return id == "" }

type InviteID string

type LobbySummary struct {
	LobbyID         LobbyID
	OwnerID         SessionID
	Name            string
	Map             string
	Mode            string
	MemberCount     int
	MaxMembers      int
	PresenceEnabled bool
	AllowInvites    bool
}

type ComparisonOp int

const (
	CompareEqual ComparisonOp = iota
	CompareNotEqual
	CompareContains
)

func (op ComparisonOp) String() string {
	switch op {
	case CompareEqual:
		return "="
	case CompareNotEqual:
		return "!="
	case CompareContains:
		return "~"
	default:
		return "?"
	}
}

// Match reports whether a stored attribute value satisfies the operator.
// A missing attribute only satisfies CompareNotEqual.
func (op ComparisonOp) Match(stored string, present bool, want string) bool {
	switch op {
	case CompareEqual:
		return present && stored == want
	case CompareNotEqual:
		return !present || stored != want
	case CompareContains:
		return present && containsFold(stored, want)
	default:
		return false
	}
}

type SearchFilter struct {
	Key   string
	Value string
	Op    ComparisonOp
}

type LobbyAttribute struct {
	Key   string
	Value string
}

// LobbyChanges carries a modification request. Empty strings and a
// non-positive MaxMembers leave the corresponding field untouched.
type LobbyChanges struct {
	Name       string
	Map        string
	Mode       string
	MaxMembers int
}

func (c LobbyChanges) Attributes() []LobbyAttribute {
	attrs := make([]LobbyAttribute, 0, 3)
	for _, attr := range []LobbyAttribute{
		{Key: LobbyAttributeName, Value: c.Name},
		{Key: LobbyAttributeMap, Value: c.Map},
		{Key: LobbyAttributeMode, Value: c.Mode},
	} {
		if attr.Value != "" {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

type LobbyPermission int

const (
	LobbyPublicAdvertised LobbyPermission = iota
	LobbyJoinViaPresence
	LobbyInviteOnly
)

type MemberChange int

const (
	MemberJoined MemberChange = iota
	MemberLeft
	MemberDisconnected
	MemberKicked
	MemberPromoted
	MemberClosed
)

func (c MemberChange) String() string {
	switch c {
	case MemberJoined:
		return "joined"
	case MemberLeft:
		return "left"
	case MemberDisconnected:
		return "disconnected"
	case MemberKicked:
		return "kicked"
	case MemberPromoted:
		return "promoted"
	case MemberClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RemovesLocalMember reports whether the change ends membership for the member it targets.
func (c MemberChange) RemovesLocalMember() bool {
	return c == MemberKicked || c == MemberClosed
}
