package domain

import "time"

// Role is a privilege tier. The set is closed; see ParseRole.
type Role string

const (
	RoleUser      Role = "user"
	RoleCustomer  Role = "customer"
	RoleDeveloper Role = "developer"
	RoleManager   Role = "manager"
	RoleOwner     Role = "owner"
	RoleRoot      Role = "root"
)

// SystemActor is the performer recorded for changes nobody signed in made.
const SystemActor = "System"

// roleRanks encodes the partial order over roles. Developer and manager
// share a rank and are therefore incomparable.
var roleRanks = map[Role]int{
	RoleUser:      0,
	RoleCustomer:  1,
	RoleDeveloper: 2,
	RoleManager:   2,
	RoleOwner:     3,
	RoleRoot:      4,
}

// ParseRole converts s into a Role, reporting false for unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRanks[r]
	return r, ok
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Outranks reports whether r sits strictly above other. Unknown roles never
// outrank anything and are outranked by every known role.
func (r Role) Outranks(other Role) bool {
	rr, ok := roleRanks[r]
	if !ok {
		return false
	}
	or, ok := roleRanks[other]
	if !ok {
		return true
	}
	return rr > or
}

// In reports whether r is any of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// Identity models one registered principal.
type Identity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Banned       bool      `json:"banned"`
	DiscordID    string    `json:"discord_id,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsRoot reports whether the identity is the immutable root account.
func (i *Identity) IsRoot() bool {
	return i != nil && i.Role == RoleRoot
}

// Clone returns a copy that can be handed out without sharing state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Credentials carries a login attempt.
type Credentials struct {
	Username string
	Password string
}

// RegisterInput carries everything needed to create an account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	DiscordID string
}

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 6
