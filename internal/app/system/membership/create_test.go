package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateOrganization_CreatorBecomesAdmin(t *testing.T) {
	store := NewMemStore()
	creator := testUser()
	store.PutUser(creator)
	c := newTestCoordinator(store)
	c.newCode = func() (string, error) { return "NEW234", nil }

	org, err := c.CreateOrganization(context.Background(), creator.ID, models.Organization{
		Name:     "  Chess Club ",
		Category: "games",
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if org.Name != "Chess Club" || org.NameCI != text.Fold("Chess Club") {
		t.Errorf("name = %q / %q", org.Name, org.NameCI)
	}
	if org.JoinCode != "NEW234" {
		t.Errorf("JoinCode = %q, want NEW234", org.JoinCode)
	}
	if org.CreatedBy != creator.ID {
		t.Errorf("CreatedBy = %s, want %s", org.CreatedBy.Hex(), creator.ID.Hex())
	}

	stored := mustOrg(t, store, org.ID)
	if stored.MemberCount != 1 || len(stored.Members) != 1 {
		t.Fatalf("members = %d count = %d, want 1/1", len(stored.Members), stored.MemberCount)
	}
	if e := stored.Members[0]; e.UserID != creator.ID || e.Role != models.RoleAdmin {
		t.Errorf("member entry = %+v, want creator as admin", e)
	}

	u := mustUser(t, store, creator.ID)
	state, _ := Check(u, stored)
	if state != ConsistentMember {
		t.Errorf("state = %v, want %v", state, ConsistentMember)
	}
	if m, _ := u.MembershipFor(org.ID); m.Role != models.RoleAdmin || !m.IsActive {
		t.Errorf("membership = %+v, want active admin", m)
	}
	if u.CurrentOrganization == nil || *u.CurrentOrganization != org.ID {
		t.Error("current organization not set to the new organization")
	}
}

func TestCreateOrganization_RetriesCodeCollision(t *testing.T) {
	store := NewMemStore()
	store.PutOrganization(testOrg("TAKEN2"))
	creator := testUser()
	store.PutUser(creator)

	codes := []string{"TAKEN2", "TAKEN2", "FRESH3"}
	calls := 0
	c := newTestCoordinator(store)
	c.newCode = func() (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	}

	org, err := c.CreateOrganization(context.Background(), creator.ID, models.Organization{Name: "Robotics"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if org.JoinCode != "FRESH3" {
		t.Errorf("JoinCode = %q, want FRESH3", org.JoinCode)
	}
	if calls != 3 {
		t.Errorf("code generator called %d times, want 3", calls)
	}
}

func TestCreateOrganization_GivesUpAfterMaxAttempts(t *testing.T) {
	store := NewMemStore()
	store.PutOrganization(testOrg("TAKEN2"))
	creator := testUser()
	store.PutUser(creator)

	calls := 0
	c := newTestCoordinator(store)
	c.newCode = func() (string, error) {
		calls++
		return "TAKEN2", nil
	}

	_, err := c.CreateOrganization(context.Background(), creator.ID, models.Organization{Name: "Robotics"})
	if !errors.Is(err, ErrJoinCodeExhausted) {
		t.Fatalf("err = %v, want ErrJoinCodeExhausted", err)
	}
	if calls != maxJoinCodeAttempts {
		t.Errorf("attempts = %d, want %d", calls, maxJoinCodeAttempts)
	}
	if u := mustUser(t, store, creator.ID); len(u.Organizations) != 0 {
		t.Errorf("creator has %d memberships, want 0", len(u.Organizations))
	}
}

func TestCreateOrganization_Validation(t *testing.T) {
	store := NewMemStore()
	creator := testUser()
	store.PutUser(creator)
	c := newTestCoordinator(store)
	ctx := context.Background()

	if _, err := c.CreateOrganization(ctx, creator.ID, models.Organization{Name: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank name: err = %v, want ErrInvalidInput", err)
	}
	if _, err := c.CreateOrganization(ctx, primitive.NewObjectID(), models.Organization{Name: "Ghost"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown creator: err = %v, want ErrUserNotFound", err)
	}
}

func TestCreateOrganization_ThenJoin(t *testing.T) {
	store := NewMemStore()
	creator := testUser()
	joiner := testUser()
	store.PutUser(creator)
	store.PutUser(joiner)
	c := newTestCoordinator(store)
	ctx := context.Background()

	org, err := c.CreateOrganization(ctx, creator.ID, models.Organization{Name: "Book Club"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	res, err := c.Join(ctx, joiner.ID, org.JoinCode)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Outcome != Joined {
		t.Errorf("Outcome = %q, want %q", res.Outcome, Joined)
	}
	if got := mustOrg(t, store, org.ID); got.MemberCount != 2 {
		t.Errorf("member_count = %d, want 2", got.MemberCount)
	}
	// The creator joining again is a no-op.
	res, err = c.Join(ctx, creator.ID, org.JoinCode)
	if err != nil {
		t.Fatalf("creator Join: %v", err)
	}
	if res.Outcome != AlreadyMember {
		t.Errorf("creator Outcome = %q, want %q", res.Outcome, AlreadyMember)
	}
}

func TestSwitchCurrent(t *testing.T) {
	store := NewMemStore()
	a := testOrg("AAAAAA")
	b := testOrg("BBBBBB")
	inactive := membership(b.ID, models.RoleMember)
	inactive.IsActive = false
	user := testUser(membership(a.ID, models.RoleMember))
	other := testUser(inactive)
	store.PutOrganization(a)
	store.PutOrganization(b)
	store.PutUser(user)
	store.PutUser(other)
	c := newTestCoordinator(store)
	ctx := context.Background()

	if err := c.SwitchCurrent(ctx, user.ID, a.ID); err != nil {
		t.Fatalf("SwitchCurrent: %v", err)
	}
	if u := mustUser(t, store, user.ID); u.CurrentOrganization == nil || *u.CurrentOrganization != a.ID {
		t.Error("current organization not switched")
	}

	if err := c.SwitchCurrent(ctx, user.ID, b.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("non-member: err = %v, want ErrNotMember", err)
	}
	if err := c.SwitchCurrent(ctx, other.ID, b.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("inactive member: err = %v, want ErrNotMember", err)
	}
	if err := c.SwitchCurrent(ctx, primitive.NewObjectID(), a.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: err = %v, want ErrUserNotFound", err)
	}
}
