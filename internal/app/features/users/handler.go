// internal/app/features/users/handler.go
package users

import (
	"context"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Store is the slice of the document store the users feature needs.
// Both the Mongo store and membership.MemStore satisfy it.
type Store interface {
	InsertUser(ctx context.Context, u models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	ListOrgsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error)
}

// Handler serves account registration and the caller's own profile.
type Handler struct {
	Store    Store
	Coord    *membership.Coordinator
	Audit    *auditlog.Logger
	ErrLog   *errorsfeature.ErrorLogger
	Log      *zap.Logger
	HashCost int
}

// NewHandler constructs a users Handler.
func NewHandler(store Store, coord *membership.Coordinator, audit *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Coord:    coord,
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
		HashCost: bcrypt.DefaultCost,
	}
}
