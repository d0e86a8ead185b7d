// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"fmt"

	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store implements membership.Store over the users and organizations
// collections. Driver failures are classified into the membership error
// kinds so callers can tell transient faults from bad input.
type Store struct {
	users *userstore.Store
	orgs  *organizationstore.Store
}

var _ membership.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		users: userstore.New(db),
		orgs:  organizationstore.New(db),
	}
}

func (s *Store) InsertUser(ctx context.Context, u models.User) error {
	return classify(s.users.Insert(ctx, u))
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	return u, classify(err)
}

func (s *Store) FindOrgByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	return org, classify(err)
}

func (s *Store) FindOrgByJoinCode(ctx context.Context, code string) (models.Organization, error) {
	org, err := s.orgs.GetByJoinCode(ctx, code)
	return org, classify(err)
}

func (s *Store) InsertOrganization(ctx context.Context, org models.Organization) error {
	return classify(s.orgs.Insert(ctx, org))
}

func (s *Store) AddMember(ctx context.Context, orgID primitive.ObjectID, entry models.MemberEntry) (bool, error) {
	added, err := s.orgs.AddMember(ctx, orgID, entry)
	return added, classify(err)
}

func (s *Store) AddMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership, makeCurrent bool) (bool, error) {
	added, err := s.users.AddMembership(ctx, userID, m, makeCurrent)
	return added, classify(err)
}

func (s *Store) SetCurrentOrganization(ctx context.Context, userID, orgID primitive.ObjectID) error {
	return classify(s.users.SetCurrentOrganization(ctx, userID, orgID))
}

func (s *Store) ActivateMembership(ctx context.Context, userID, orgID primitive.ObjectID) error {
	return classify(s.users.ActivateMembership(ctx, userID, orgID))
}

func (s *Store) ReplaceMembers(ctx context.Context, orgID primitive.ObjectID, expectLen int, members []models.MemberEntry) error {
	return classify(s.orgs.ReplaceMembers(ctx, orgID, expectLen, members))
}

func (s *Store) SyncMemberCount(ctx context.Context, orgID primitive.ObjectID) error {
	return classify(s.orgs.SyncMemberCount(ctx, orgID))
}

func (s *Store) ReplaceMemberships(ctx context.Context, userID primitive.ObjectID, expectLen int, ms []models.Membership) error {
	return classify(s.users.ReplaceMemberships(ctx, userID, expectLen, ms))
}

func (s *Store) ForEachUser(ctx context.Context, fn func(models.User) error) error {
	return classify(s.users.ForEach(ctx, fn))
}

func (s *Store) ForEachOrg(ctx context.Context, fn func(models.Organization) error) error {
	return classify(s.orgs.ForEach(ctx, fn))
}

// ListOrgsByIDs returns organization summaries (no member lists) for ids.
func (s *Store) ListOrgsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error) {
	orgs, err := s.orgs.ListByIDs(ctx, ids)
	return orgs, classify(err)
}

// domainErrs are passed through unchanged by classify.
var domainErrs = []error{
	membership.ErrUserNotFound,
	membership.ErrOrgNotFound,
	membership.ErrNotMember,
	membership.ErrConflict,
	membership.ErrJoinCodeTaken,
	membership.ErrDuplicateEmail,
	membership.ErrStoreTimeout,
	membership.ErrStoreUnavailable,
}

// classify maps driver errors onto membership.ErrStoreTimeout and
// membership.ErrStoreUnavailable. Anything else is returned as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrs {
		if errors.Is(err, known) {
			return err
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %v", membership.ErrStoreTimeout, err)
	case errors.Is(err, mongo.ErrClientDisconnected), mongo.IsNetworkError(err):
		return fmt.Errorf("%w: %v", membership.ErrStoreUnavailable, err)
	}
	return err
}
