// internal/app/features/users/register.go
package users

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/formutil"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HandleRegister creates an account.
// POST /users {full_name, email, password} -> 201 user
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if msg, ok := formutil.Decode(w, r, &in); !ok {
		errorsfeature.BadRequest(w, msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.HashCost)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	now := time.Now().UTC()
	name := normalize.Name(in.FullName)
	u := models.User{
		ID:            primitive.NewObjectID(),
		FullName:      name,
		FullNameCI:    text.Fold(name),
		Email:         normalize.Email(in.Email),
		PasswordHash:  string(hash),
		Organizations: []models.Membership{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "register user")
	defer cancel()

	if err := h.Store.InsertUser(ctx, u); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	h.Audit.UserRegistered(ctx, r, u.ID)

	errorsfeature.JSON(w, http.StatusCreated, viewOf(u, nil))
}
