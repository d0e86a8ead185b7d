package membership

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is an in-memory Store with the same per-document atomicity as
// the Mongo store. It backs the unit tests and the "memory" store mode.
type MemStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
	orgs  map[primitive.ObjectID]models.Organization
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		users: make(map[primitive.ObjectID]models.User),
		orgs:  make(map[primitive.ObjectID]models.Organization),
	}
}

// PutUser stores u as-is, replacing any user with the same id.
func (s *MemStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

// PutOrganization stores org as-is, replacing any organization with the same id.
// No invariants are enforced, so tests can seed corrupted documents.
func (s *MemStore) PutOrganization(org models.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = cloneOrg(org)
}

// InsertUser stores a new user. It is the registration path for memory mode.
func (s *MemStore) InsertUser(ctx context.Context, u models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *MemStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemStore) FindOrgByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	if err := ctx.Err(); err != nil {
		return models.Organization{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return models.Organization{}, ErrOrgNotFound
	}
	return cloneOrg(org), nil
}

func (s *MemStore) FindOrgByJoinCode(ctx context.Context, code string) (models.Organization, error) {
	if err := ctx.Err(); err != nil {
		return models.Organization{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, org := range s.orgs {
		if org.JoinCode == code {
			return cloneOrg(org), nil
		}
	}
	return models.Organization{}, ErrOrgNotFound
}

func (s *MemStore) InsertOrganization(ctx context.Context, org models.Organization) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgs {
		if existing.JoinCode == org.JoinCode {
			return ErrJoinCodeTaken
		}
	}
	s.orgs[org.ID] = cloneOrg(org)
	return nil
}

func (s *MemStore) AddMember(ctx context.Context, orgID primitive.ObjectID, entry models.MemberEntry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return false, ErrOrgNotFound
	}
	if _, exists := org.MemberFor(entry.UserID); exists {
		return false, nil
	}
	org.Members = append(org.Members, entry)
	org.MemberCount++
	org.UpdatedAt = time.Now().UTC()
	s.orgs[orgID] = org
	return true, nil
}

func (s *MemStore) AddMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership, makeCurrent bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	if _, exists := u.MembershipFor(m.OrganizationID); exists {
		return false, nil
	}
	u.Organizations = append(u.Organizations, m)
	if makeCurrent {
		id := m.OrganizationID
		u.CurrentOrganization = &id
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return true, nil
}

func (s *MemStore) SetCurrentOrganization(ctx context.Context, userID, orgID primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.CurrentOrganization = &orgID
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

func (s *MemStore) ActivateMembership(ctx context.Context, userID, orgID primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	i := -1
	for j, m := range u.Organizations {
		if models.SameID(m.OrganizationID, orgID) {
			i = j
			break
		}
	}
	if i < 0 {
		return ErrNotMember
	}
	u.Organizations = append([]models.Membership{}, u.Organizations...)
	u.Organizations[i].IsActive = true
	u.CurrentOrganization = &orgID
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

func (s *MemStore) ReplaceMembers(ctx context.Context, orgID primitive.ObjectID, expectLen int, members []models.MemberEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return ErrOrgNotFound
	}
	if len(org.Members) != expectLen {
		return ErrConflict
	}
	org.Members = append([]models.MemberEntry{}, members...)
	org.MemberCount = len(members)
	org.UpdatedAt = time.Now().UTC()
	s.orgs[orgID] = org
	return nil
}

func (s *MemStore) SyncMemberCount(ctx context.Context, orgID primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return ErrOrgNotFound
	}
	org.MemberCount = len(org.Members)
	s.orgs[orgID] = org
	return nil
}

func (s *MemStore) ReplaceMemberships(ctx context.Context, userID primitive.ObjectID, expectLen int, ms []models.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if len(u.Organizations) != expectLen {
		return ErrConflict
	}
	u.Organizations = append([]models.Membership{}, ms...)
	if u.CurrentOrganization != nil {
		if _, ok := u.MembershipFor(*u.CurrentOrganization); !ok {
			u.CurrentOrganization = nil
		}
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

// ForEachUser visits a snapshot of the users. fn runs without the store
// lock held, so it may call back into the store.
func (s *MemStore) ForEachUser(ctx context.Context, fn func(models.User) error) error {
	s.mu.Lock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID.Hex() < users[j].ID.Hex() })

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

// ForEachOrg visits a snapshot of the organizations, like ForEachUser.
func (s *MemStore) ForEachOrg(ctx context.Context, fn func(models.Organization) error) error {
	s.mu.Lock()
	orgs := make([]models.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		orgs = append(orgs, cloneOrg(o))
	}
	s.mu.Unlock()
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID.Hex() < orgs[j].ID.Hex() })

	for _, o := range orgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

// ListOrgsByIDs returns the named organizations without their member
// lists, ordered by folded name. Unknown ids are skipped.
func (s *MemStore) ListOrgsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	var orgs []models.Organization
	for _, id := range ids {
		if o, ok := s.orgs[id]; ok {
			o.Members = nil
			orgs = append(orgs, o)
		}
	}
	s.mu.Unlock()
	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].NameCI != orgs[j].NameCI {
			return orgs[i].NameCI < orgs[j].NameCI
		}
		return orgs[i].ID.Hex() < orgs[j].ID.Hex()
	})
	return orgs, nil
}

func cloneUser(u models.User) models.User {
	if u.Organizations != nil {
		u.Organizations = append([]models.Membership{}, u.Organizations...)
	}
	if u.CurrentOrganization != nil {
		id := *u.CurrentOrganization
		u.CurrentOrganization = &id
	}
	return u
}

func cloneOrg(o models.Organization) models.Organization {
	if o.Members != nil {
		o.Members = append([]models.MemberEntry{}, o.Members...)
	}
	return o
}
