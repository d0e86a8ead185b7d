// internal/app/features/users/me.go
package users

import (
	"net/http"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/formutil"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeMe returns the caller with their memberships.
// GET /users/me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "load profile")
	defer cancel()

	u, err := h.Store.FindUserByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(u.Organizations))
	for _, m := range u.Organizations {
		ids = append(ids, m.OrganizationID)
	}
	names := make(map[primitive.ObjectID]string, len(ids))
	orgs, err := h.Store.ListOrgsByIDs(ctx, ids)
	if err != nil {
		// Names are decoration; the membership list itself is still correct.
		h.Log.Warn("list organizations for profile failed",
			zap.String("user_id", uid.Hex()), zap.Error(err))
	}
	for _, o := range orgs {
		names[o.ID] = o.Name
	}

	errorsfeature.JSON(w, http.StatusOK, viewOf(u, names))
}

// HandleSwitchCurrent changes the caller's current organization.
// PUT /users/me/current-organization {organization_id}
func (h *Handler) HandleSwitchCurrent(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r)

	var in switchInput
	if msg, ok := formutil.Decode(w, r, &in); !ok {
		errorsfeature.BadRequest(w, msg)
		return
	}
	orgID, _ := primitive.ObjectIDFromHex(in.OrganizationID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "switch current organization")
	defer cancel()

	if err := h.Coord.SwitchCurrent(ctx, uid, orgID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Audit.CurrentOrgSwitched(ctx, r, uid, orgID)

	errorsfeature.JSON(w, http.StatusOK, map[string]string{
		"current_organization": orgID.Hex(),
	})
}
