package membership

import (
	"fmt"

	"github.com/dalemusser/orghub/internal/domain/models"
)

// State is the relationship between one user and one organization as seen
// from both documents.
type State int

const (
	ConsistentNonMember State = iota
	ConsistentMember
	// InconsistentOrgOnly: listed in org.members, missing from user.organizations.
	InconsistentOrgOnly
	// InconsistentUserOnly: listed in user.organizations, missing from org.members.
	InconsistentUserOnly
)

func (s State) String() string {
	switch s {
	case ConsistentMember:
		return "consistent_member"
	case ConsistentNonMember:
		return "consistent_non_member"
	case InconsistentOrgOnly:
		return "inconsistent_org_only"
	case InconsistentUserOnly:
		return "inconsistent_user_only"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Consistent reports whether both sides agree.
func (s State) Consistent() bool {
	return s == ConsistentMember || s == ConsistentNonMember
}

// Check computes the membership state of user in org. It has no side effects.
// Both documents must carry an id.
func Check(user models.User, org models.Organization) (State, error) {
	if user.ID.IsZero() {
		return 0, fmt.Errorf("check: user has no id: %w", ErrInvalidArgument)
	}
	if org.ID.IsZero() {
		return 0, fmt.Errorf("check: organization has no id: %w", ErrInvalidArgument)
	}

	_, inOrgMembers := org.MemberFor(user.ID)
	_, inUserOrgs := user.MembershipFor(org.ID)

	switch {
	case inOrgMembers && inUserOrgs:
		return ConsistentMember, nil
	case inOrgMembers:
		return InconsistentOrgOnly, nil
	case inUserOrgs:
		return InconsistentUserOnly, nil
	default:
		return ConsistentNonMember, nil
	}
}
