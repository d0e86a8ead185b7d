package membership

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestJoin_NormalizesCode(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser()
	store.PutOrganization(org)
	store.PutUser(user)

	res, err := newTestCoordinator(store).Join(context.Background(), user.ID, "  abc123 ")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Outcome != Joined {
		t.Errorf("Outcome = %q, want %q", res.Outcome, Joined)
	}
	if res.Organization.ID != org.ID {
		t.Errorf("result organization = %s, want %s", res.Organization.ID.Hex(), org.ID.Hex())
	}
	if res.Organization.MemberCount != 1 {
		t.Errorf("result member_count = %d, want 1", res.Organization.MemberCount)
	}

	u := mustUser(t, store, user.ID)
	if u.CurrentOrganization == nil || *u.CurrentOrganization != org.ID {
		t.Errorf("current organization not set to joined org")
	}
	m, ok := u.MembershipFor(org.ID)
	if !ok || m.Role != models.RoleMember || !m.IsActive {
		t.Errorf("user membership = %+v, %v; want active member", m, ok)
	}
}

func TestJoin_Idempotent(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser()
	store.PutOrganization(org)
	store.PutUser(user)
	c := newTestCoordinator(store)
	ctx := context.Background()

	first, err := c.Join(ctx, user.ID, "ABC123")
	if err != nil {
		t.Fatalf("first Join: %v", err)
	}
	second, err := c.Join(ctx, user.ID, "abc123")
	if err != nil {
		t.Fatalf("second Join: %v", err)
	}
	if first.Outcome != Joined || second.Outcome != AlreadyMember {
		t.Errorf("outcomes = %q, %q; want %q, %q", first.Outcome, second.Outcome, Joined, AlreadyMember)
	}

	o := mustOrg(t, store, org.ID)
	u := mustUser(t, store, user.ID)
	if n := countMember(o, user.ID); n != 1 {
		t.Errorf("org lists user %d times, want 1", n)
	}
	if n := countMembership(u, org.ID); n != 1 {
		t.Errorf("user lists org %d times, want 1", n)
	}
	if o.MemberCount != 1 {
		t.Errorf("member_count = %d, want 1", o.MemberCount)
	}
}

func TestJoin_InputErrors(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser()
	store.PutOrganization(org)
	store.PutUser(user)
	c := newTestCoordinator(store)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID primitive.ObjectID
		code   string
		want   error
	}{
		{"empty code", user.ID, "", ErrInvalidInput},
		{"blank code", user.ID, "   ", ErrInvalidInput},
		{"unknown code", user.ID, "NOPE99", ErrOrgNotFound},
		{"unknown user", primitive.NewObjectID(), "ABC123", ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Join(ctx, tt.userID, tt.code)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if Retryable(err) {
				t.Errorf("%v should not be retryable", err)
			}
		})
	}
}

func TestJoin_RepairsOrgOnly(t *testing.T) {
	store := NewMemStore()
	user := testUser()
	org := testOrg("ABC123", member(user.ID, models.RoleModerator))
	store.PutOrganization(org)
	store.PutUser(user)

	res, err := newTestCoordinator(store).Join(context.Background(), user.ID, "ABC123")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Outcome != Restored || !res.Repaired {
		t.Errorf("result = %q repaired=%v, want %q repaired=true", res.Outcome, res.Repaired, Restored)
	}
	if res.Prior != InconsistentOrgOnly {
		t.Errorf("Prior = %v, want %v", res.Prior, InconsistentOrgOnly)
	}

	u := mustUser(t, store, user.ID)
	o := mustOrg(t, store, org.ID)
	state, err := Check(u, o)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if state != ConsistentMember {
		t.Errorf("state after repair = %v, want %v", state, ConsistentMember)
	}
	if m, _ := u.MembershipFor(org.ID); m.Role != models.RoleModerator {
		t.Errorf("restored role = %q, want %q (kept from org side)", m.Role, models.RoleModerator)
	}
	if u.CurrentOrganization == nil || *u.CurrentOrganization != org.ID {
		t.Error("current organization not set")
	}
	if o.MemberCount != 1 {
		t.Errorf("member_count = %d, want 1", o.MemberCount)
	}
}

func TestJoin_RepairsUserOnly(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser(membership(org.ID, models.RoleAdmin))
	store.PutOrganization(org)
	store.PutUser(user)

	res, err := newTestCoordinator(store).Join(context.Background(), user.ID, "ABC123")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Outcome != Restored || !res.Repaired {
		t.Errorf("result = %q repaired=%v, want %q repaired=true", res.Outcome, res.Repaired, Restored)
	}

	u := mustUser(t, store, user.ID)
	o := mustOrg(t, store, org.ID)
	state, _ := Check(u, o)
	if state != ConsistentMember {
		t.Errorf("state after repair = %v, want %v", state, ConsistentMember)
	}
	if e, _ := o.MemberFor(user.ID); e.Role != models.RoleAdmin {
		t.Errorf("restored role = %q, want %q (kept from user side)", e.Role, models.RoleAdmin)
	}
	if o.MemberCount != 1 || len(o.Members) != 1 {
		t.Errorf("member_count = %d len = %d, want 1/1", o.MemberCount, len(o.Members))
	}
	if n := countMembership(u, org.ID); n != 1 {
		t.Errorf("user lists org %d times, want 1", n)
	}
}

func TestJoin_ReactivatesInactiveUserOnly(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	m := membership(org.ID, models.RoleModerator)
	m.IsActive = false
	user := testUser(m)
	store.PutOrganization(org)
	store.PutUser(user)
	c := newTestCoordinator(store)
	ctx := context.Background()

	res, err := c.Join(ctx, user.ID, "ABC123")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Outcome != Restored || !res.Repaired {
		t.Errorf("result = %q repaired=%v, want %q repaired=true", res.Outcome, res.Repaired, Restored)
	}

	u := mustUser(t, store, user.ID)
	got, ok := u.MembershipFor(org.ID)
	if !ok || !got.IsActive {
		t.Fatalf("membership = %+v, %v; want an active entry", got, ok)
	}
	if u.CurrentOrganization == nil || *u.CurrentOrganization != org.ID {
		t.Errorf("current organization = %v, want %s", u.CurrentOrganization, org.ID.Hex())
	}
	o := mustOrg(t, store, org.ID)
	if e, ok := o.MemberFor(user.ID); !ok || e.Role != models.RoleModerator {
		t.Errorf("org entry = %+v, %v; want moderator", e, ok)
	}
	if err := c.SwitchCurrent(ctx, user.ID, org.ID); err != nil {
		t.Errorf("SwitchCurrent after reactivation: %v", err)
	}

	again, err := c.Join(ctx, user.ID, "ABC123")
	if err != nil {
		t.Fatalf("second Join: %v", err)
	}
	if again.Outcome != AlreadyMember {
		t.Errorf("second Outcome = %q, want %q", again.Outcome, AlreadyMember)
	}
}

func TestJoin_ReactivatesWhenOrgEntryAlreadyRestored(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	m := membership(org.ID, models.RoleMember)
	m.IsActive = false
	user := testUser(m)
	store.PutOrganization(org)
	store.PutUser(user)

	// Another caller restores the org entry between this join's read and
	// its append, so the append is a no-op but the user side still lapses.
	racing := &hookStore{MemStore: store}
	racing.beforeAddMember = func() {
		racing.beforeAddMember = nil
		_, _ = store.AddMember(context.Background(), org.ID, member(user.ID, models.RoleMember))
	}
	res, err := newTestCoordinator(racing).Join(context.Background(), user.ID, "ABC123")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Outcome != Restored || !res.Repaired {
		t.Errorf("result = %q repaired=%v, want %q repaired=true", res.Outcome, res.Repaired, Restored)
	}
	ru := mustUser(t, store, user.ID)
	if got, _ := ru.MembershipFor(org.ID); !got.IsActive {
		t.Error("membership left inactive")
	}
	if n := countMember(mustOrg(t, store, org.ID), user.ID); n != 1 {
		t.Errorf("org lists user %d times, want 1", n)
	}
}

func TestJoin_AlreadyMemberMakesNoWrites(t *testing.T) {
	store := NewMemStore()
	user := testUser()
	org := testOrg("ABC123", member(user.ID, models.RoleMember))
	user.Organizations = []models.Membership{membership(org.ID, models.RoleMember)}
	store.PutOrganization(org)
	store.PutUser(user)

	rec := &recordingStore{MemStore: store}
	res, err := newTestCoordinator(rec).Join(context.Background(), user.ID, "ABC123")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Outcome != AlreadyMember {
		t.Errorf("Outcome = %q, want %q", res.Outcome, AlreadyMember)
	}
	if rec.writes != 0 {
		t.Errorf("writes = %d, want 0", rec.writes)
	}
	if u := mustUser(t, store, user.ID); u.CurrentOrganization != nil {
		t.Error("already-member join should not touch current organization")
	}
}

func TestJoin_ConcurrentSamePair(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser()
	store.PutOrganization(org)
	store.PutUser(user)
	c := newTestCoordinator(store)

	const n = 25
	var wg sync.WaitGroup
	results := make([]JoinResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Join(context.Background(), user.ID, "ABC123")
		}(i)
	}
	wg.Wait()

	joined := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Join %d: %v", i, errs[i])
		}
		if results[i].Outcome == Joined {
			joined++
		}
	}
	if joined != 1 {
		t.Errorf("%d joins reported %q, want exactly 1", joined, Joined)
	}

	o := mustOrg(t, store, org.ID)
	u := mustUser(t, store, user.ID)
	if got := countMember(o, user.ID); got != 1 {
		t.Errorf("org lists user %d times after concurrent joins, want 1", got)
	}
	if got := countMembership(u, org.ID); got != 1 {
		t.Errorf("user lists org %d times after concurrent joins, want 1", got)
	}
	if o.MemberCount != 1 {
		t.Errorf("member_count = %d, want 1", o.MemberCount)
	}
}

func TestJoin_InterleavedFreshJoinsReportOneJoined(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser()
	store.PutOrganization(org)
	store.PutUser(user)

	var events []string
	obs := ObserverFunc(func(_ context.Context, ch Change) { events = append(events, ch.Event) })
	hooked := &hookStore{MemStore: store}
	c := NewCoordinator(hooked, zap.NewNop(), time.Second, obs)

	// The second join starts after the first has written the org side but
	// before it writes the user side.
	var second JoinResult
	var secondErr error
	hooked.afterAddMember = func() {
		hooked.afterAddMember = nil
		second, secondErr = c.Join(context.Background(), user.ID, "ABC123")
	}

	first, err := c.Join(context.Background(), user.ID, "ABC123")
	if err != nil {
		t.Fatalf("first Join: %v", err)
	}
	if secondErr != nil {
		t.Fatalf("second Join: %v", secondErr)
	}
	if first.Outcome != Joined {
		t.Errorf("first Outcome = %q, want %q", first.Outcome, Joined)
	}
	if second.Outcome != Restored || second.Prior != InconsistentOrgOnly {
		t.Errorf("second = %q from %v, want %q from %v", second.Outcome, second.Prior, Restored, InconsistentOrgOnly)
	}

	joined := 0
	for _, e := range events {
		if e == EventJoined {
			joined++
		}
	}
	if joined != 1 {
		t.Errorf("observed %d %s events (%v), want 1", joined, EventJoined, events)
	}

	u := mustUser(t, store, user.ID)
	o := mustOrg(t, store, org.ID)
	if countMember(o, user.ID) != 1 || countMembership(u, org.ID) != 1 || o.MemberCount != 1 {
		t.Errorf("org entries=%d user entries=%d count=%d, want 1/1/1",
			countMember(o, user.ID), countMembership(u, org.ID), o.MemberCount)
	}
}

func TestJoin_ConcurrentDifferentUsers(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	store.PutOrganization(org)
	c := newTestCoordinator(store)

	const n = 20
	users := make([]models.User, n)
	for i := range users {
		users[i] = testUser()
		store.PutUser(users[i])
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			if _, err := c.Join(context.Background(), id, "abc123"); err != nil {
				t.Errorf("Join(%s): %v", id.Hex(), err)
			}
		}(u.ID)
	}
	wg.Wait()

	o := mustOrg(t, store, org.ID)
	if len(o.Members) != n || o.MemberCount != n {
		t.Errorf("members = %d member_count = %d, want %d", len(o.Members), o.MemberCount, n)
	}
}

func TestJoin_StoreTimeout(t *testing.T) {
	store := NewMemStore()
	store.PutUser(testUser())
	slow := &blockingStore{MemStore: store}

	c := NewCoordinator(slow, zap.NewNop(), 10*time.Millisecond)
	_, err := c.Join(context.Background(), primitive.NewObjectID(), "ABC123")
	if !errors.Is(err, ErrStoreTimeout) {
		t.Fatalf("err = %v, want ErrStoreTimeout", err)
	}
	if !Retryable(err) {
		t.Error("timeout should be retryable")
	}
}

func TestJoin_ConvergesAfterPartialFailure(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser()
	store.PutOrganization(org)
	store.PutUser(user)

	flaky := &flakyStore{MemStore: store, failMemberships: 1}
	c := newTestCoordinator(flaky)
	ctx := context.Background()

	_, err := c.Join(ctx, user.ID, "ABC123")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("first Join err = %v, want ErrStoreUnavailable", err)
	}

	// The org side was written before the failure.
	state, _ := Check(mustUser(t, store, user.ID), mustOrg(t, store, org.ID))
	if state != InconsistentOrgOnly {
		t.Fatalf("state after partial failure = %v, want %v", state, InconsistentOrgOnly)
	}

	res, err := c.Join(ctx, user.ID, "ABC123")
	if err != nil {
		t.Fatalf("retry Join: %v", err)
	}
	if res.Outcome != Restored {
		t.Errorf("retry Outcome = %q, want %q", res.Outcome, Restored)
	}
	state, _ = Check(mustUser(t, store, user.ID), mustOrg(t, store, org.ID))
	if state != ConsistentMember {
		t.Errorf("state after retry = %v, want %v", state, ConsistentMember)
	}
}

func TestJoin_NotifiesObservers(t *testing.T) {
	store := NewMemStore()
	org := testOrg("ABC123")
	user := testUser()
	store.PutOrganization(org)
	store.PutUser(user)

	var got []Change
	obs := ObserverFunc(func(_ context.Context, c Change) { got = append(got, c) })
	c := NewCoordinator(store, zap.NewNop(), time.Second, obs)
	ctx := context.Background()

	if _, err := c.Join(ctx, user.ID, "ABC123"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := c.Join(ctx, user.ID, "ABC123"); err != nil {
		t.Fatalf("second Join: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("observed %d changes, want 1 (already-member joins are silent)", len(got))
	}
	if got[0].Event != EventJoined || got[0].UserID != user.ID || got[0].OrganizationID != org.ID {
		t.Errorf("change = %+v", got[0])
	}
	if got[0].Role != models.RoleMember {
		t.Errorf("change role = %q, want %q", got[0].Role, models.RoleMember)
	}
}

// recordingStore counts write calls.
type recordingStore struct {
	*MemStore
	writes int
}

func (s *recordingStore) AddMember(ctx context.Context, orgID primitive.ObjectID, e models.MemberEntry) (bool, error) {
	s.writes++
	return s.MemStore.AddMember(ctx, orgID, e)
}

func (s *recordingStore) AddMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership, cur bool) (bool, error) {
	s.writes++
	return s.MemStore.AddMembership(ctx, userID, m, cur)
}

func (s *recordingStore) SetCurrentOrganization(ctx context.Context, userID, orgID primitive.ObjectID) error {
	s.writes++
	return s.MemStore.SetCurrentOrganization(ctx, userID, orgID)
}

func (s *recordingStore) ActivateMembership(ctx context.Context, userID, orgID primitive.ObjectID) error {
	s.writes++
	return s.MemStore.ActivateMembership(ctx, userID, orgID)
}

// hookStore runs callbacks around org-side appends. Callbacks run
// synchronously on the calling goroutine.
type hookStore struct {
	*MemStore
	beforeAddMember func()
	afterAddMember  func()
}

func (s *hookStore) AddMember(ctx context.Context, orgID primitive.ObjectID, e models.MemberEntry) (bool, error) {
	if f := s.beforeAddMember; f != nil {
		f()
	}
	added, err := s.MemStore.AddMember(ctx, orgID, e)
	if f := s.afterAddMember; f != nil && err == nil {
		f()
	}
	return added, err
}

// blockingStore never answers a join code lookup before the deadline.
type blockingStore struct {
	*MemStore
}

func (s *blockingStore) FindOrgByJoinCode(ctx context.Context, _ string) (models.Organization, error) {
	<-ctx.Done()
	return models.Organization{}, ctx.Err()
}

// flakyStore fails the first failMemberships user-side appends.
type flakyStore struct {
	*MemStore
	mu              sync.Mutex
	failMemberships int
}

func (s *flakyStore) AddMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership, cur bool) (bool, error) {
	s.mu.Lock()
	fail := s.failMemberships > 0
	if fail {
		s.failMemberships--
	}
	s.mu.Unlock()
	if fail {
		return false, ErrStoreUnavailable
	}
	return s.MemStore.AddMembership(ctx, userID, m, cur)
}
