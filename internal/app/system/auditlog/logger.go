// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of audit events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Membership controls joins, repairs, organization creation and switches.
	Membership string
	// Account controls registration events.
	Account string
	// Maintenance controls reconciler run summaries.
	Maintenance string
}

// Uniform applies one mode to every category.
func Uniform(mode string) Config {
	return Config{Membership: mode, Account: mode, Maintenance: mode}
}

// ValidMode reports whether mode is one of the ModeX values.
func ValidMode(mode string) bool {
	switch mode {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
//
// Logger implements membership.Observer.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

var _ membership.Observer = (*Logger)(nil)

// New creates a new audit Logger. store may be nil when no category
// writes to the database.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryMembership:
		setting = l.config.Membership
	case audit.CategoryAccount:
		setting = l.config.Account
	case audit.CategoryMaintenance:
		setting = l.config.Maintenance
	default:
		setting = ModeAll
	}

	if setting == ModeOff || setting == "" {
		return
	}
	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// MembershipChanged records a completed join, repair or organization creation.
func (l *Logger) MembershipChanged(ctx context.Context, c membership.Change) {
	if l == nil {
		return
	}
	eventType := audit.EventMemberJoined
	switch c.Event {
	case membership.EventRestored:
		eventType = audit.EventMembershipRestored
	case membership.EventOrgCreated:
		eventType = audit.EventOrgCreated
	}

	userID, orgID := c.UserID, c.OrganizationID
	details := map[string]string{"role": c.Role}
	if c.Event != membership.EventOrgCreated {
		details["prior_state"] = c.Prior.String()
		details["repaired"] = strconv.FormatBool(c.Repaired)
	}
	l.Log(ctx, audit.Event{
		Timestamp:      c.At,
		Category:       audit.CategoryMembership,
		EventType:      eventType,
		UserID:         &userID,
		OrganizationID: &orgID,
		Success:        true,
		Details:        details,
	})
}

// CurrentOrgSwitched records a change of the user's current organization.
func (l *Logger) CurrentOrgSwitched(ctx context.Context, r *http.Request, userID, orgID primitive.ObjectID) {
	if l == nil {
		return
	}
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryMembership,
		EventType:      audit.EventCurrentOrgSwitched,
		UserID:         &userID,
		OrganizationID: &orgID,
		IP:             ratelimit.ClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
	})
}

// UserRegistered records a new account.
func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	if l == nil {
		return
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAccount,
		EventType: audit.EventUserRegistered,
		UserID:    &userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// ReconcileCompleted records a reconciler run summary. A run that hit
// per-document failures or left residual inconsistencies is logged as
// unsuccessful so it stands out.
func (l *Logger) ReconcileCompleted(ctx context.Context, rep membership.Report) {
	if l == nil {
		return
	}
	ok := rep.Failures == 0 && rep.Residual.Total() == 0
	e := audit.Event{
		Timestamp: rep.FinishedAt,
		Category:  audit.CategoryMaintenance,
		EventType: audit.EventReconcileCompleted,
		Success:   ok,
		Details: map[string]string{
			"run_id":             rep.ID,
			"verify_only":        strconv.FormatBool(rep.VerifyOnly),
			"orgs_fixed":         strconv.Itoa(rep.OrgsFixed),
			"users_fixed":        strconv.Itoa(rep.UsersFixed),
			"failures":           strconv.Itoa(rep.Failures),
			"residual_user_only": strconv.Itoa(rep.Residual.UserOnly),
			"residual_org_only":  strconv.Itoa(rep.Residual.OrgOnly),
		},
	}
	if !ok {
		e.FailureReason = "reconcile left work undone"
	}
	l.Log(ctx, e)
}
