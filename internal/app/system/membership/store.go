package membership

import (
	"context"

	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the document store the membership engine runs against.
//
// Every method touches exactly one document and is atomic for that document.
// There is no cross-document transaction. Lookups return ErrUserNotFound or
// ErrOrgNotFound when the document is absent.
type Store interface {
	FindUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindOrgByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
	// FindOrgByJoinCode expects an already normalized code.
	FindOrgByJoinCode(ctx context.Context, code string) (models.Organization, error)

	// InsertOrganization returns ErrJoinCodeTaken if the join code collides.
	InsertOrganization(ctx context.Context, org models.Organization) error

	// AddMember appends entry to the organization's members and increments
	// member_count, unless the user is already listed. It reports whether the
	// entry was appended.
	AddMember(ctx context.Context, orgID primitive.ObjectID, entry models.MemberEntry) (bool, error)
	// AddMembership appends m to the user's organizations unless an entry for
	// the same organization exists. When makeCurrent is set the same update
	// points current_organization at m.OrganizationID.
	AddMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership, makeCurrent bool) (bool, error)
	SetCurrentOrganization(ctx context.Context, userID, orgID primitive.ObjectID) error
	// ActivateMembership marks the user's existing entry for orgID active and
	// points current_organization at it, in one update. It returns
	// ErrNotMember if the user holds no entry for orgID.
	ActivateMembership(ctx context.Context, userID, orgID primitive.ObjectID) error

	// ReplaceMembers overwrites members and sets member_count to len(members).
	// It fails with ErrConflict if the stored array no longer has expectLen entries.
	ReplaceMembers(ctx context.Context, orgID primitive.ObjectID, expectLen int, members []models.MemberEntry) error
	// SyncMemberCount sets member_count to the current length of members.
	SyncMemberCount(ctx context.Context, orgID primitive.ObjectID) error
	// ReplaceMemberships overwrites organizations, guarded like ReplaceMembers.
	// current_organization is cleared if it no longer references a kept entry.
	ReplaceMemberships(ctx context.Context, userID primitive.ObjectID, expectLen int, ms []models.Membership) error

	// ForEachUser and ForEachOrg visit every document in _id order. Returning
	// an error from fn stops the scan and is returned.
	ForEachUser(ctx context.Context, fn func(models.User) error) error
	ForEachOrg(ctx context.Context, fn func(models.Organization) error) error
}
