// internal/app/features/organizations/handler.go
package organizations

import (
	"context"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OrgReader loads a single organization.
type OrgReader interface {
	FindOrgByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
}

// ActivityReader is satisfied by *audit.Store.
type ActivityReader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Orgs      OrgReader
	Coord     *membership.Coordinator
	Activity  ActivityReader // nil when audit events are not stored
	JoinLimit *ratelimit.Limiter
	ErrLog    *errorsfeature.ErrorLogger
	Log       *zap.Logger
}

// NewHandler constructs an Organizations handler.
func NewHandler(orgs OrgReader, coord *membership.Coordinator, activity ActivityReader, joinLimit *ratelimit.Limiter, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:      orgs,
		Coord:     coord,
		Activity:  activity,
		JoinLimit: joinLimit,
		ErrLog:    errLog,
		Log:       logger,
	}
}
