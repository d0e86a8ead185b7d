// internal/app/features/organizations/view.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/limits"
	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeView returns an organization with its member list. Only members
// (per the organization's own list) may read it.
// GET /organizations/{id}
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "view organization")
	defer cancel()

	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}
	if !authz.CanViewOrg(org, uid) {
		errorsfeature.Forbidden(w, membership.ErrNotMember.Error())
		return
	}
	errorsfeature.JSON(w, http.StatusOK, org)
}

// ServeActivity returns the organization's audit trail, newest first.
// Admins and moderators only.
// GET /organizations/{id}/activity?limit=50&category=membership&since=RFC3339
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "query organization activity")
	defer cancel()

	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}
	if !authz.CanViewActivity(org, uid) {
		errorsfeature.Forbidden(w, "only organization admins and moderators can view activity")
		return
	}

	filter := audit.QueryFilter{OrganizationID: &org.ID, Limit: 50}
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > limits.MaxActivityLimit {
			errorsfeature.BadRequest(w, "limit must be between 1 and "+strconv.Itoa(limits.MaxActivityLimit))
			return
		}
		filter.Limit = int64(n)
	}
	filter.Category = q.Get("category")
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			errorsfeature.BadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = &t
	}

	resp := activityResponse{Events: []audit.Event{}}
	if h.Activity != nil {
		events, err := h.Activity.Query(ctx, filter)
		if err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		resp.Events = events
	}
	errorsfeature.JSON(w, http.StatusOK, resp)
}

// loadOrg resolves the {id} URL parameter. It writes the error response
// itself and reports false when the organization cannot be served.
func (h *Handler) loadOrg(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Organization, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.BadRequest(w, "Organization id is not valid.")
		return models.Organization{}, false
	}
	org, err := h.Orgs.FindOrgByID(ctx, id)
	if errors.Is(err, membership.ErrOrgNotFound) {
		errorsfeature.NotFound(w, "organization not found")
		return models.Organization{}, false
	}
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return models.Organization{}, false
	}
	return org, true
}
