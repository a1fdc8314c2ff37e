package domain

import "fmt"

// UserRole is the capability level a user holds inside a calendar.
// Roles are strictly ordered: owner > admin > editor > visitor.
type UserRole string

const (
	RoleVisitor UserRole = "visitor" // can see events
	RoleEditor  UserRole = "editor"  // can edit events
	RoleAdmin   UserRole = "admin"   // can edit calendar and manage members
	RoleOwner   UserRole = "owner"   // can also promote admins
)

var roleRank = map[UserRole]int{
	RoleVisitor: 1,
	RoleEditor:  2,
	RoleAdmin:   3,
	RoleOwner:   4,
}

// UserInCalendar binds a user to a calendar with a role
type UserInCalendar struct {
	ID       string   `json:"id"`
	Calendar Calendar `json:"calendar"`
	User     User     `json:"user"`
	Role     UserRole `json:"role"`
}

// ParseUserRole parses a role name
func ParseUserRole(s string) (UserRole, error) {
	r := UserRole(s)
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

func (r UserRole) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Includes reports whether r grants every capability of other
func (r UserRole) Includes(other UserRole) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[other] && roleRank[other] > 0
}

func (r UserRole) CanView() bool           { return r.Includes(RoleVisitor) }
func (r UserRole) CanEditEvents() bool     { return r.Includes(RoleEditor) }
func (r UserRole) CanManageCalendar() bool { return r.Includes(RoleAdmin) }
func (r UserRole) CanPromoteAdmins() bool  { return r.Includes(RoleOwner) }

// CanGrant reports whether r may give other to a member. Managing members
// takes admin; handing out admin or above takes owner.
func (r UserRole) CanGrant(other UserRole) bool {
	if other.Includes(RoleAdmin) {
		return r.CanPromoteAdmins()
	}
	return r.CanManageCalendar()
}

// Calendars extracts the calendars from a membership list, keeping order
func Calendars(memberships []UserInCalendar) []Calendar {
	out := make([]Calendar, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, m.Calendar)
	}
	return out
}
