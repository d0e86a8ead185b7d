// internal/app/features/organizations/create.go
package organizations

import (
	"net/http"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/formutil"
	"github.com/dalemusser/orghub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
)

// HandleCreate creates an organization with the caller as its admin.
// POST /organizations -> 201 organization (with its join code)
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r)

	var in createOrgInput
	if msg, ok := formutil.Decode(w, r, &in); !ok {
		errorsfeature.BadRequest(w, msg)
		return
	}

	draft := models.Organization{
		Name:        normalize.Name(htmlsanitize.Text(in.Name)),
		Description: htmlsanitize.Sanitize(in.Description),
		Category:    htmlsanitize.Text(in.Category),
		Location:    htmlsanitize.Text(in.Location),
		Website:     normalize.Website(in.Website),
	}
	// Markup-only names sanitize to nothing.
	if draft.Name == "" {
		errorsfeature.BadRequest(w, "Organization name is required.")
		return
	}
	if draft.Website != "" && !inputval.IsValidHTTPURL(draft.Website) {
		errorsfeature.BadRequest(w, "Website must be a valid http or https URL.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "create organization")
	defer cancel()

	org, err := h.Coord.CreateOrganization(ctx, uid, draft)
	if err != nil {
		// The organization exists but the creator's side was not written.
		// Joining with its code finishes the membership.
		if !org.ID.IsZero() {
			h.ErrLog.WritePartial(w, r, err, "organization", org)
			return
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, org)
}
