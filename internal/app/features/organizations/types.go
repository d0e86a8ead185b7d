// internal/app/features/organizations/types.go
package organizations

import (
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/domain/models"
)

// createOrgInput defines validation rules for creating an organization.
type createOrgInput struct {
	Name        string `json:"name" validate:"required,max=200" label:"Organization name"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
	Category    string `json:"category" validate:"max=100" label:"Category"`
	Location    string `json:"location" validate:"max=200" label:"Location"`
	Website     string `json:"website" validate:"max=500" label:"Website"`
}

// joinInput is the POST /organizations/join body. The code is normalized
// by the coordinator, so only presence and length are checked here.
type joinInput struct {
	JoinCode string `json:"join_code" validate:"required,max=64" label:"Join code"`
}

type joinResponse struct {
	Result       membership.Outcome  `json:"result"`
	Repaired     bool                `json:"repaired"`
	Organization models.Organization `json:"organization"`
}

type activityResponse struct {
	Events []audit.Event `json:"events"`
}
