package model

import "time"

// Role controls what a user may do beyond reporting and voting.
//
// Plain users edit and delete only their own open issues. Moderators and
// admins additionally verify, close, and delete anything. The server is the
// real enforcement point — the client checks roles only to decide what to
// offer, and CanModerate is that single check.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User is the authenticated account, as returned by /auth/me and cached in
// the session store between CLI invocations.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// CanModerate reports whether the user may verify/close/delete issues they
// don't own.
func (u *User) CanModerate() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
