// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account.
//
// NOTE:
//   - Organizations mirrors Organization.Members. Neither side is authoritative
//     and the two can drift; see the membership package for the repair rules.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`

	Organizations       []Membership        `bson:"organizations" json:"organizations"`
	CurrentOrganization *primitive.ObjectID `bson:"current_organization,omitempty" json:"current_organization,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Membership is the user-side view of one organization membership.
type Membership struct {
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Role           string             `bson:"role" json:"role"` // admin | moderator | member
	JoinedAt       time.Time          `bson:"joined_at" json:"joined_at"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
}

// MembershipFor returns the user's entry for orgID, if any.
func (u *User) MembershipFor(orgID primitive.ObjectID) (Membership, bool) {
	for _, m := range u.Organizations {
		if SameID(m.OrganizationID, orgID) {
			return m, true
		}
	}
	return Membership{}, false
}
