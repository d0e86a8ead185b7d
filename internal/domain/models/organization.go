// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization includes case/diacritic-insensitive fields for search/sort.
// MemberCount is a cache of len(Members) and must be kept in step with it.
type Organization struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Location    string             `bson:"location" json:"location"`
	Website     string             `bson:"website" json:"website"`
	JoinCode    string             `bson:"join_code" json:"join_code"` // always uppercased

	Members     []MemberEntry `bson:"members" json:"members"`
	MemberCount int           `bson:"member_count" json:"member_count"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// MemberEntry is the organization-side view of one membership.
type MemberEntry struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role     string             `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// MemberFor returns the organization's entry for userID, if any.
func (o *Organization) MemberFor(userID primitive.ObjectID) (MemberEntry, bool) {
	for _, m := range o.Members {
		if SameID(m.UserID, userID) {
			return m, true
		}
	}
	return MemberEntry{}, false
}
