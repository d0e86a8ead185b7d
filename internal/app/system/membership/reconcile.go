package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Report summarizes one reconciler sweep.
type Report = models.ReconcileRun

type idSet map[primitive.ObjectID]struct{}

// Reconciler sweeps the whole store and restores the membership invariants:
// no user listed twice in one organization, member_count equal to the member
// array length, no user reference to a missing or repeated organization, and
// every user reference mirrored on the organization side.
//
// A failed write affects only the document it targets. The failure is logged,
// counted in Report.Failures, and the sweep moves on.
type Reconciler struct {
	store     Store
	log       *zap.Logger
	opTimeout time.Duration
	now       func() time.Time
}

// NewReconciler builds a Reconciler. opTimeout bounds each per-document store
// call; zero means DefaultOpTimeout.
func NewReconciler(store Store, logger *zap.Logger, opTimeout time.Duration) *Reconciler {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:     store,
		log:       logger,
		opTimeout: opTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run performs the repair sweep followed by the verification pass.
// An error is returned only when a scan itself fails or ctx ends; the
// partial report is returned alongside it.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	rep := Report{ID: uuid.NewString(), StartedAt: r.now()}
	r.log.Info("reconcile started", zap.String("run_id", rep.ID))

	index, err := r.repairOrgs(ctx, &rep)
	if err != nil {
		return r.finish(rep), fmt.Errorf("scan organizations: %w", err)
	}
	if err := r.repairUsers(ctx, &rep, index); err != nil {
		return r.finish(rep), fmt.Errorf("scan users: %w", err)
	}
	if err := r.verify(ctx, &rep, false); err != nil {
		return r.finish(rep), fmt.Errorf("verify: %w", err)
	}
	return r.finish(rep), nil
}

// Verify runs only the verification pass. It corrects member_count drift and
// counts, without repairing, references that exist on one side only.
func (r *Reconciler) Verify(ctx context.Context) (Report, error) {
	rep := Report{ID: uuid.NewString(), StartedAt: r.now(), VerifyOnly: true}
	if err := r.verify(ctx, &rep, true); err != nil {
		return r.finish(rep), fmt.Errorf("verify: %w", err)
	}
	return r.finish(rep), nil
}

func (r *Reconciler) finish(rep Report) Report {
	rep.FinishedAt = r.now()
	r.log.Info("reconcile finished",
		zap.String("run_id", rep.ID),
		zap.Bool("verify_only", rep.VerifyOnly),
		zap.Int("orgs_scanned", rep.OrgsScanned),
		zap.Int("orgs_fixed", rep.OrgsFixed),
		zap.Int("duplicates_removed", rep.DuplicatesRemoved),
		zap.Int("counts_corrected", rep.CountsCorrected),
		zap.Int("users_scanned", rep.UsersScanned),
		zap.Int("users_fixed", rep.UsersFixed),
		zap.Int("orphaned_refs_removed", rep.OrphanedRefsRemoved),
		zap.Int("duplicate_refs_removed", rep.DuplicateRefsRemoved),
		zap.Int("members_restored", rep.MembersRestored),
		zap.Int("failures", rep.Failures),
		zap.Int("residual_user_only", rep.Residual.UserOnly),
		zap.Int("residual_org_only", rep.Residual.OrgOnly),
		zap.Int("residual_count_drift", rep.Residual.CountDrift),
		zap.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)))
	return rep
}

func (r *Reconciler) fail(rep *Report, kind string, id primitive.ObjectID, op string, err error) {
	rep.Failures++
	r.log.Warn("reconcile: document skipped",
		zap.String("run_id", rep.ID),
		zap.String("kind", kind),
		zap.String("id", id.Hex()),
		zap.String("op", op),
		zap.Bool("retryable", Retryable(err)),
		zap.Error(err))
}

func (r *Reconciler) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

// repairOrgs deduplicates member arrays and fixes member_count drift. It
// returns the member set of every organization seen, after deduplication.
func (r *Reconciler) repairOrgs(ctx context.Context, rep *Report) (map[primitive.ObjectID]idSet, error) {
	index := make(map[primitive.ObjectID]idSet)

	err := r.store.ForEachOrg(ctx, func(org models.Organization) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.OrgsScanned++

		kept, dups := DedupMembers(org.Members)
		set := make(idSet, len(kept))
		for _, m := range kept {
			set[m.UserID] = struct{}{}
		}
		index[org.ID] = set

		switch {
		case dups > 0:
			opCtx, cancel := r.op(ctx)
			err := r.store.ReplaceMembers(opCtx, org.ID, len(org.Members), kept)
			cancel()
			if err != nil {
				r.fail(rep, "organization", org.ID, "replace members", storeErr("replace members", err))
				return nil
			}
			rep.DuplicatesRemoved += dups
			rep.OrgsFixed++
			r.log.Info("reconcile: removed duplicate members",
				zap.String("run_id", rep.ID),
				zap.String("organization_id", org.ID.Hex()),
				zap.Int("removed", dups),
				zap.Int("member_count", len(kept)))

		case org.MemberCount != len(org.Members):
			opCtx, cancel := r.op(ctx)
			err := r.store.SyncMemberCount(opCtx, org.ID)
			cancel()
			if err != nil {
				r.fail(rep, "organization", org.ID, "sync member count", storeErr("sync member count", err))
				return nil
			}
			rep.CountsCorrected++
			rep.OrgsFixed++
			r.log.Info("reconcile: corrected member count",
				zap.String("run_id", rep.ID),
				zap.String("organization_id", org.ID.Hex()),
				zap.Int("was", org.MemberCount),
				zap.Int("now", len(org.Members)))
		}
		return nil
	})
	return index, err
}

// orphaned marks an organization id in repairUsers' seen map whose
// organization no longer exists.
const orphaned = -1

// repairUsers drops orphaned and repeated organization references and
// mirrors surviving active references onto the organization side.
func (r *Reconciler) repairUsers(ctx context.Context, rep *Report, index map[primitive.ObjectID]idSet) error {
	return r.store.ForEachUser(ctx, func(u models.User) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.UsersScanned++

		kept := make([]models.Membership, 0, len(u.Organizations))
		seen := make(map[primitive.ObjectID]int, len(u.Organizations))
		orphans, dups := 0, 0
		for _, m := range u.Organizations {
			if i, ok := seen[m.OrganizationID]; ok {
				if i != orphaned {
					kept[i] = mergeMembership(kept[i], m)
				}
				dups++
				continue
			}
			exists, err := r.orgExists(ctx, index, m.OrganizationID)
			if err != nil {
				r.fail(rep, "user", u.ID, "confirm organization", err)
				return nil
			}
			if !exists {
				seen[m.OrganizationID] = orphaned
				orphans++
				continue
			}
			seen[m.OrganizationID] = len(kept)
			kept = append(kept, m)
		}

		fixed := false
		now := r.now()
		for _, m := range kept {
			// An inactive membership is not mirrored onto the organization.
			if !m.IsActive {
				continue
			}
			set := index[m.OrganizationID]
			if _, ok := set[u.ID]; ok {
				continue
			}
			entry := models.MemberEntry{
				UserID:   u.ID,
				Role:     roleOrMember(m.Role),
				JoinedAt: joinedAtOr(m.JoinedAt, now),
			}
			opCtx, cancel := r.op(ctx)
			added, err := r.store.AddMember(opCtx, m.OrganizationID, entry)
			cancel()
			if err != nil {
				r.fail(rep, "organization", m.OrganizationID, "restore member", storeErr("add member", err))
				continue
			}
			set[u.ID] = struct{}{}
			if added {
				rep.MembersRestored++
				fixed = true
				r.log.Info("reconcile: restored missing member entry",
					zap.String("run_id", rep.ID),
					zap.String("organization_id", m.OrganizationID.Hex()),
					zap.String("user_id", u.ID.Hex()))
			}
		}

		if orphans+dups > 0 {
			opCtx, cancel := r.op(ctx)
			err := r.store.ReplaceMemberships(opCtx, u.ID, len(u.Organizations), kept)
			cancel()
			if err != nil {
				r.fail(rep, "user", u.ID, "replace memberships", storeErr("replace memberships", err))
			} else {
				rep.OrphanedRefsRemoved += orphans
				rep.DuplicateRefsRemoved += dups
				fixed = true
				r.log.Info("reconcile: pruned user organization references",
					zap.String("run_id", rep.ID),
					zap.String("user_id", u.ID.Hex()),
					zap.Int("orphaned", orphans),
					zap.Int("duplicates", dups))
			}
		}
		if fixed {
			rep.UsersFixed++
		}
		return nil
	})
}

// orgExists consults the scan index first. An organization created after the
// scan started is not in the index, so a miss is confirmed against the store
// before a reference is treated as orphaned.
func (r *Reconciler) orgExists(ctx context.Context, index map[primitive.ObjectID]idSet, id primitive.ObjectID) (bool, error) {
	if _, ok := index[id]; ok {
		return true, nil
	}
	opCtx, cancel := r.op(ctx)
	org, err := r.store.FindOrgByID(opCtx, id)
	cancel()
	if errors.Is(err, ErrOrgNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("find organization", err)
	}
	kept, _ := DedupMembers(org.Members)
	set := make(idSet, len(kept))
	for _, m := range kept {
		set[m.UserID] = struct{}{}
	}
	index[id] = set
	return true, nil
}

// verify re-reads both collections and counts one-sided references. It
// fixes member_count drift but leaves one-sided references alone, since
// repairing those needs a decision about which side wins.
func (r *Reconciler) verify(ctx context.Context, rep *Report, countScans bool) error {
	orgMembers := make(map[primitive.ObjectID]idSet)

	err := r.store.ForEachOrg(ctx, func(org models.Organization) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if countScans {
			rep.OrgsScanned++
		}
		set := make(idSet, len(org.Members))
		for _, m := range org.Members {
			set[m.UserID] = struct{}{}
		}
		orgMembers[org.ID] = set

		if org.MemberCount != len(org.Members) {
			opCtx, cancel := r.op(ctx)
			err := r.store.SyncMemberCount(opCtx, org.ID)
			cancel()
			if err != nil {
				rep.Residual.CountDrift++
				r.fail(rep, "organization", org.ID, "sync member count", storeErr("sync member count", err))
				return nil
			}
			rep.CountsCorrected++
		}
		return nil
	})
	if err != nil {
		return err
	}

	userRefs := make(map[primitive.ObjectID]idSet)
	err = r.store.ForEachUser(ctx, func(u models.User) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if countScans {
			rep.UsersScanned++
		}
		refs := make(idSet, len(u.Organizations))
		active := make(idSet, len(u.Organizations))
		for _, m := range u.Organizations {
			refs[m.OrganizationID] = struct{}{}
			if m.IsActive {
				active[m.OrganizationID] = struct{}{}
			}
		}
		userRefs[u.ID] = refs

		// Inactive references are never mirrored, so only active ones count.
		for orgID := range active {
			if _, ok := orgMembers[orgID][u.ID]; !ok {
				rep.Residual.UserOnly++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for orgID, members := range orgMembers {
		for userID := range members {
			if _, ok := userRefs[userID][orgID]; !ok {
				rep.Residual.OrgOnly++
			}
		}
	}
	return nil
}

// DedupMembers keeps the first entry for each user, in order, and reports
// how many later entries were dropped. A kept entry takes the highest role
// found among its duplicates so a repair never demotes anyone.
func DedupMembers(members []models.MemberEntry) ([]models.MemberEntry, int) {
	kept := make([]models.MemberEntry, 0, len(members))
	seen := make(map[primitive.ObjectID]int, len(members))
	dups := 0
	for _, m := range members {
		if i, ok := seen[m.UserID]; ok {
			kept[i].Role = models.HigherRole(kept[i].Role, m.Role)
			dups++
			continue
		}
		seen[m.UserID] = len(kept)
		kept = append(kept, m)
	}
	return kept, dups
}

func mergeMembership(first, dup models.Membership) models.Membership {
	first.Role = models.HigherRole(first.Role, dup.Role)
	first.IsActive = first.IsActive || dup.IsActive
	return first
}
