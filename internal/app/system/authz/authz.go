// internal/app/system/authz/authz.go
package authz

import (
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberRole returns userID's role in org and whether the organization lists
// them as a member. Only the organization side is consulted.
func MemberRole(org models.Organization, userID primitive.ObjectID) (string, bool) {
	if userID.IsZero() {
		return "", false
	}
	m, ok := org.MemberFor(userID)
	if !ok {
		return "", false
	}
	return m.Role, true
}

// CanViewOrg reports whether userID may read org and its member list.
func CanViewOrg(org models.Organization, userID primitive.ObjectID) bool {
	_, ok := MemberRole(org, userID)
	return ok
}

// CanViewActivity reports whether userID may read org's audit trail.
// Admins and moderators can.
func CanViewActivity(org models.Organization, userID primitive.ObjectID) bool {
	role, ok := MemberRole(org, userID)
	return ok && HasAnyRole(role, models.RoleAdmin, models.RoleModerator)
}
