// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/orghub/internal/app/features/users"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/orghub/internal/app/store/memberships"
	"github.com/dalemusser/orghub/internal/app/store/reconcileruns"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/events"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/app/system/workers"
	"go.uber.org/zap"
)

// AppStore is everything the HTTP layer and the engine need from the
// document store.
type AppStore interface {
	membership.Store
	users.Store
}

// Services are the long-lived application objects built once at startup.
type Services struct {
	Store       AppStore
	Coordinator *membership.Coordinator
	Reconciler  *membership.Reconciler
	Audit       *auditlog.Logger
	AuditStore  *audit.Store // nil in memory mode
	Worker      *workers.Reconcile
}

// NewServices wires stores, observers and the membership engine. It does
// not start anything.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *Services {
	s := &Services{}

	var runs workers.RunRecorder
	if deps.MongoDatabase != nil {
		s.Store = membershipstore.New(deps.MongoDatabase)
		s.AuditStore = audit.New(deps.MongoDatabase)
		runs = reconcileruns.New(deps.MongoDatabase)
	} else {
		s.Store = membership.NewMemStore()
	}
	s.Audit = auditlog.New(s.AuditStore, logger, appCfg.auditConfig())

	observers := []membership.Observer{s.Audit}
	if deps.NATS != nil {
		observers = append(observers, events.NewPublisher(deps.NATS, appCfg.NATSSubjectPrefix, logger))
	}

	opTimeout := timeouts.Store()
	s.Coordinator = membership.NewCoordinator(s.Store, logger, opTimeout, observers...)
	s.Reconciler = membership.NewReconciler(s.Store, logger, opTimeout)
	s.Worker = workers.NewReconcile(s.Reconciler, runs, s.Audit, logger, appCfg.ReconcileInterval)
	return s
}
