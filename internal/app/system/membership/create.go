package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxJoinCodeAttempts bounds retries when a generated join code collides.
const maxJoinCodeAttempts = 5

// CreateOrganization inserts draft as a new organization with a fresh unique
// join code. The creator becomes its only member, as admin, and the
// organization becomes the creator's current one.
//
// If the second write (the creator's membership) fails, the organization
// already lists the creator; joining with the returned code repairs it.
func (c *Coordinator) CreateOrganization(ctx context.Context, creatorID primitive.ObjectID, draft models.Organization) (models.Organization, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" {
		return models.Organization{}, fmt.Errorf("organization name is required: %w", ErrInvalidInput)
	}

	opCtx, cancel := c.op(ctx)
	creator, err := c.store.FindUserByID(opCtx, creatorID)
	cancel()
	if err != nil {
		return models.Organization{}, storeErr("find creator", err)
	}

	now := c.now()
	org := draft
	org.NameCI = text.Fold(org.Name)
	org.Members = []models.MemberEntry{{UserID: creator.ID, Role: models.RoleAdmin, JoinedAt: now}}
	org.MemberCount = 1
	org.CreatedBy = creator.ID
	org.CreatedAt = now
	org.UpdatedAt = now

	inserted := false
	for attempt := 1; attempt <= maxJoinCodeAttempts; attempt++ {
		code, err := c.newCode()
		if err != nil {
			return models.Organization{}, fmt.Errorf("generate join code: %w", err)
		}
		org.ID = primitive.NewObjectID()
		org.JoinCode = code

		opCtx, cancel := c.op(ctx)
		err = c.store.InsertOrganization(opCtx, org)
		cancel()
		if errors.Is(err, ErrJoinCodeTaken) {
			c.log.Warn("join code collision, retrying",
				zap.String("join_code", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return models.Organization{}, storeErr("insert organization", err)
		}
		inserted = true
		break
	}
	if !inserted {
		return models.Organization{}, ErrJoinCodeExhausted
	}

	m := models.Membership{OrganizationID: org.ID, Role: models.RoleAdmin, JoinedAt: now, IsActive: true}
	if _, err := c.addMembership(ctx, creator.ID, m); err != nil {
		c.log.Error("organization created but creator membership not written",
			zap.String("organization_id", org.ID.Hex()),
			zap.String("user_id", creator.ID.Hex()),
			zap.Error(err))
		return org, err
	}

	c.log.Info("organization created",
		zap.String("organization_id", org.ID.Hex()),
		zap.String("created_by", creator.ID.Hex()))
	c.notify(ctx, Change{
		Event:          EventOrgCreated,
		UserID:         creator.ID,
		OrganizationID: org.ID,
		Role:           models.RoleAdmin,
		At:             now,
	})
	return org, nil
}

// SwitchCurrent points the user's current organization at orgID. The user
// must hold an active membership there.
func (c *Coordinator) SwitchCurrent(ctx context.Context, userID, orgID primitive.ObjectID) error {
	opCtx, cancel := c.op(ctx)
	user, err := c.store.FindUserByID(opCtx, userID)
	cancel()
	if err != nil {
		return storeErr("find user", err)
	}
	m, ok := user.MembershipFor(orgID)
	if !ok || !m.IsActive {
		return ErrNotMember
	}
	return c.setCurrent(ctx, userID, orgID)
}
