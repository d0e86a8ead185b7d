// internal/app/features/users/types.go
package users

import (
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// registerInput is the POST /users body.
type registerInput struct {
	FullName string `json:"full_name" validate:"required,max=200" label:"Full name"`
	Email    string `json:"email" validate:"required,email,max=254" label:"Email"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
}

// switchInput is the PUT /users/me/current-organization body.
type switchInput struct {
	OrganizationID string `json:"organization_id" validate:"required,objectid" label:"Organization id"`
}

type membershipView struct {
	OrganizationID primitive.ObjectID `json:"organization_id"`
	Name           string             `json:"name,omitempty"`
	Role           string             `json:"role"`
	JoinedAt       time.Time          `json:"joined_at"`
	IsActive       bool               `json:"is_active"`
	Current        bool               `json:"current"`
}

type userView struct {
	ID                  primitive.ObjectID  `json:"id"`
	FullName            string              `json:"full_name"`
	Email               string              `json:"email"`
	CurrentOrganization *primitive.ObjectID `json:"current_organization,omitempty"`
	Organizations       []membershipView    `json:"organizations"`
	CreatedAt           time.Time           `json:"created_at"`
}

// viewOf builds the API view of u. names maps organization id to name;
// memberships of organizations missing from it are listed without a name.
func viewOf(u models.User, names map[primitive.ObjectID]string) userView {
	v := userView{
		ID:                  u.ID,
		FullName:            u.FullName,
		Email:               u.Email,
		CurrentOrganization: u.CurrentOrganization,
		Organizations:       make([]membershipView, 0, len(u.Organizations)),
		CreatedAt:           u.CreatedAt,
	}
	for _, m := range u.Organizations {
		v.Organizations = append(v.Organizations, membershipView{
			OrganizationID: m.OrganizationID,
			Name:           names[m.OrganizationID],
			Role:           m.Role,
			JoinedAt:       m.JoinedAt,
			IsActive:       m.IsActive,
			Current:        u.CurrentOrganization != nil && *u.CurrentOrganization == m.OrganizationID,
		})
	}
	return v
}
