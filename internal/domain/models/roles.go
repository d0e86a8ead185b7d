// internal/domain/models/roles.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Membership roles, highest privilege first.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

var roleRank = map[string]int{
	RoleMember:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// ValidRole reports whether role is one of the membership roles.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// HigherRole returns whichever of a and b carries more privilege.
// Unknown or empty roles rank below member; if neither is known the
// result is RoleMember.
func HigherRole(a, b string) string {
	ra, rb := roleRank[a], roleRank[b]
	switch {
	case ra == 0 && rb == 0:
		return RoleMember
	case ra >= rb:
		return a
	default:
		return b
	}
}

// SameID compares two ids by their hex string form.
func SameID(a, b primitive.ObjectID) bool {
	return a.Hex() == b.Hex()
}
