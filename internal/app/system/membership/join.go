package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/joincode"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultOpTimeout bounds a single store call when the caller does not
// configure one.
const DefaultOpTimeout = 5 * time.Second

// Outcome is the caller-facing result of a join.
type Outcome string

const (
	Joined        Outcome = "joined"
	Restored      Outcome = "restored"
	AlreadyMember Outcome = "already_member"
)

// JoinResult is what Join hands back to the HTTP layer.
type JoinResult struct {
	Outcome      Outcome
	Repaired     bool
	Prior        State
	Organization models.Organization
}

// Coordinator runs the interactive membership operations: join by code,
// organization creation and switching the current organization.
//
// It holds no locks. Safety under concurrent or repeated calls comes from
// re-checking state on every call and from the store's guarded appends.
type Coordinator struct {
	store     Store
	log       *zap.Logger
	opTimeout time.Duration
	observers []Observer
	now       func() time.Time
	newCode   func() (string, error)
}

// NewCoordinator builds a Coordinator. opTimeout bounds each store call;
// zero means DefaultOpTimeout.
func NewCoordinator(store Store, logger *zap.Logger, opTimeout time.Duration, observers ...Observer) *Coordinator {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		log:       logger,
		opTimeout: opTimeout,
		observers: observers,
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   joincode.Generate,
	}
}

func (c *Coordinator) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// Join adds userID to the organization identified by rawCode, or repairs a
// half-written membership, so that afterwards both documents agree.
func (c *Coordinator) Join(ctx context.Context, userID primitive.ObjectID, rawCode string) (JoinResult, error) {
	code := joincode.Normalize(rawCode)
	if code == "" {
		return JoinResult{}, fmt.Errorf("join code is required: %w", ErrInvalidInput)
	}
	if userID.IsZero() {
		return JoinResult{}, fmt.Errorf("join: missing user id: %w", ErrInvalidArgument)
	}

	opCtx, cancel := c.op(ctx)
	org, err := c.store.FindOrgByJoinCode(opCtx, code)
	cancel()
	if err != nil {
		return JoinResult{}, storeErr("find organization by join code", err)
	}

	opCtx, cancel = c.op(ctx)
	user, err := c.store.FindUserByID(opCtx, userID)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.log.Error("join: authenticated user missing from store",
				zap.String("user_id", userID.Hex()))
		}
		return JoinResult{}, storeErr("find user", err)
	}

	state, err := Check(user, org)
	if err != nil {
		return JoinResult{}, err
	}

	res := JoinResult{Prior: state, Organization: org}
	now := c.now()
	role := models.RoleMember

	switch state {
	case ConsistentMember:
		res.Outcome = AlreadyMember
		return res, nil

	case InconsistentOrgOnly:
		entry, _ := org.MemberFor(user.ID)
		m := models.Membership{
			OrganizationID: org.ID,
			Role:           roleOrMember(entry.Role),
			JoinedAt:       joinedAtOr(entry.JoinedAt, now),
			IsActive:       true,
		}
		role = m.Role
		added, err := c.addMembership(ctx, user.ID, m)
		if err != nil {
			return JoinResult{}, err
		}
		res.Outcome, res.Repaired = Restored, added
		if !added {
			res.Outcome = AlreadyMember
		}

	case InconsistentUserOnly:
		m, _ := user.MembershipFor(org.ID)
		entry := models.MemberEntry{
			UserID:   user.ID,
			Role:     roleOrMember(m.Role),
			JoinedAt: joinedAtOr(m.JoinedAt, now),
		}
		role = entry.Role
		added, err := c.addMember(ctx, org.ID, entry)
		if err != nil {
			return JoinResult{}, err
		}
		if added {
			res.Organization = withMember(res.Organization, entry)
		}
		// Joining by code reactivates a lapsed membership, so the org entry
		// and current_organization never point at an inactive one.
		if err := c.activate(ctx, user.ID, org.ID); err != nil {
			return JoinResult{}, err
		}
		res.Outcome, res.Repaired = Restored, added || !m.IsActive
		if !res.Repaired {
			res.Outcome = AlreadyMember
		}

	case ConsistentNonMember:
		entry := models.MemberEntry{UserID: user.ID, Role: models.RoleMember, JoinedAt: now}
		orgAdded, err := c.addMember(ctx, org.ID, entry)
		if err != nil {
			return JoinResult{}, err
		}
		if orgAdded {
			res.Organization = withMember(res.Organization, entry)
		}
		m := models.Membership{OrganizationID: org.ID, Role: models.RoleMember, JoinedAt: now, IsActive: true}
		if _, err := c.addMembership(ctx, user.ID, m); err != nil {
			// The org side is written; a retry sees InconsistentOrgOnly and finishes.
			return JoinResult{}, err
		}
		// Only the call that won the org-side append reports Joined. The user
		// side may have been written by a concurrent call that saw the org
		// entry first.
		res.Outcome = Joined
		if !orgAdded {
			res.Outcome = AlreadyMember
		}
	}

	c.log.Info("organization join",
		zap.String("user_id", user.ID.Hex()),
		zap.String("organization_id", org.ID.Hex()),
		zap.String("prior_state", state.String()),
		zap.String("outcome", string(res.Outcome)),
		zap.Bool("repaired", res.Repaired))

	if res.Outcome != AlreadyMember {
		c.notify(ctx, Change{
			Event:          EventFor(res.Outcome),
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           role,
			Prior:          state,
			Repaired:       res.Repaired,
			At:             now,
		})
	}
	return res, nil
}

func (c *Coordinator) addMember(ctx context.Context, orgID primitive.ObjectID, entry models.MemberEntry) (bool, error) {
	opCtx, cancel := c.op(ctx)
	defer cancel()
	added, err := c.store.AddMember(opCtx, orgID, entry)
	return added, storeErr("add organization member", err)
}

func (c *Coordinator) addMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership) (bool, error) {
	opCtx, cancel := c.op(ctx)
	defer cancel()
	added, err := c.store.AddMembership(opCtx, userID, m, true)
	return added, storeErr("add user membership", err)
}

func (c *Coordinator) activate(ctx context.Context, userID, orgID primitive.ObjectID) error {
	opCtx, cancel := c.op(ctx)
	defer cancel()
	return storeErr("activate membership", c.store.ActivateMembership(opCtx, userID, orgID))
}

func (c *Coordinator) setCurrent(ctx context.Context, userID, orgID primitive.ObjectID) error {
	opCtx, cancel := c.op(ctx)
	defer cancel()
	return storeErr("set current organization", c.store.SetCurrentOrganization(opCtx, userID, orgID))
}

func roleOrMember(role string) string {
	if models.ValidRole(role) {
		return role
	}
	return models.RoleMember
}

func joinedAtOr(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t
}

func withMember(org models.Organization, entry models.MemberEntry) models.Organization {
	members := make([]models.MemberEntry, 0, len(org.Members)+1)
	members = append(members, org.Members...)
	org.Members = append(members, entry)
	org.MemberCount++
	return org
}
