// internal/domain/models/reconcilerun.go
package models

import "time"

// ReconcileRun is the persisted summary of one Bulk Reconciler sweep.
type ReconcileRun struct {
	ID         string    `bson:"_id" json:"run_id"`
	VerifyOnly bool      `bson:"verify_only" json:"verify_only"`
	StartedAt  time.Time `bson:"started_at" json:"started_at"`
	FinishedAt time.Time `bson:"finished_at" json:"finished_at"`

	OrgsScanned          int `bson:"orgs_scanned" json:"orgs_scanned"`
	OrgsFixed            int `bson:"orgs_fixed" json:"orgs_fixed"`
	DuplicatesRemoved    int `bson:"duplicates_removed" json:"duplicates_removed"`
	CountsCorrected      int `bson:"counts_corrected" json:"counts_corrected"`
	UsersScanned         int `bson:"users_scanned" json:"users_scanned"`
	UsersFixed           int `bson:"users_fixed" json:"users_fixed"`
	OrphanedRefsRemoved  int `bson:"orphaned_refs_removed" json:"orphaned_refs_removed"`
	DuplicateRefsRemoved int `bson:"duplicate_refs_removed" json:"duplicate_refs_removed"`
	MembersRestored      int `bson:"members_restored" json:"members_restored"`
	Failures             int `bson:"failures" json:"failures"`

	Residual Residual `bson:"residual" json:"residual_inconsistencies"`
}

// Residual counts inconsistencies left after a sweep.
type Residual struct {
	UserOnly   int `bson:"user_only" json:"user_only"`
	OrgOnly    int `bson:"org_only" json:"org_only"`
	CountDrift int `bson:"count_drift" json:"count_drift"`
}

// Total is the number of residual inconsistencies of any kind.
func (r Residual) Total() int {
	return r.UserOnly + r.OrgOnly + r.CountDrift
}
