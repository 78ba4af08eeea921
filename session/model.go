package session

import "strings"

// Role is the closed set of account roles issued by the remote API.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleKrama    Role = "KRAMA"
	RoleOperator Role = "OPERATOR"
)

// ParseRole normalizes s to a known role. Comparison is case-insensitive.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleKrama:
		return RoleKrama, true
	case RoleOperator:
		return RoleOperator, true
	default:
		return "", false
	}
}

// Is reports whether r names the same role as other, ignoring case.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// User is the authenticated account as returned by the remote API.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// State is the coarse lifecycle position of a Store.
type State uint8

const (
	StateAnonymous State = iota
	StateLoading
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Snapshot is an immutable copy of the session at one point in time.
type Snapshot struct {
	User    *User
	Loading bool
	Error   string
}

// State derives the lifecycle position from the snapshot fields.
func (s Snapshot) State() State {
	switch {
	case s.Loading:
		return StateLoading
	case s.User != nil:
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// LoginResult is what a successful login call returns. User may be nil when
// the API only returns a token.
type LoginResult struct {
	Token string
	User  *User
}
