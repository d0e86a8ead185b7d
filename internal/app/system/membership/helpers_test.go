package membership

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var testTime = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func testUser(orgs ...models.Membership) models.User {
	return models.User{
		ID:            primitive.NewObjectID(),
		FullName:      "Test User",
		Email:         primitive.NewObjectID().Hex() + "@test.com",
		Organizations: orgs,
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
}

func testOrg(code string, members ...models.MemberEntry) models.Organization {
	return models.Organization{
		ID:          primitive.NewObjectID(),
		Name:        "Org " + code,
		JoinCode:    code,
		Members:     members,
		MemberCount: len(members),
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	}
}

func member(userID primitive.ObjectID, role string) models.MemberEntry {
	return models.MemberEntry{UserID: userID, Role: role, JoinedAt: testTime}
}

func membership(orgID primitive.ObjectID, role string) models.Membership {
	return models.Membership{OrganizationID: orgID, Role: role, JoinedAt: testTime, IsActive: true}
}

func newTestCoordinator(store Store) *Coordinator {
	c := NewCoordinator(store, zap.NewNop(), time.Second)
	c.now = func() time.Time { return testTime }
	return c
}

func mustUser(t *testing.T, s *MemStore, id primitive.ObjectID) models.User {
	t.Helper()
	u, err := s.FindUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindUserByID(%s): %v", id.Hex(), err)
	}
	return u
}

func mustOrg(t *testing.T, s *MemStore, id primitive.ObjectID) models.Organization {
	t.Helper()
	o, err := s.FindOrgByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindOrgByID(%s): %v", id.Hex(), err)
	}
	return o
}

func countMember(org models.Organization, userID primitive.ObjectID) int {
	n := 0
	for _, m := range org.Members {
		if m.UserID == userID {
			n++
		}
	}
	return n
}

func countMembership(u models.User, orgID primitive.ObjectID) int {
	n := 0
	for _, m := range u.Organizations {
		if m.OrganizationID == orgID {
			n++
		}
	}
	return n
}
