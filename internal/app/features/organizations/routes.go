// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Organization routes under the base path
// (typically "/organizations" from bootstrap). Every route needs a bearer
// token; per-organization access is checked in the handlers.
func Routes(h *Handler, v *auth.Verifier) chi.Router {
	r := chi.NewRouter()
	r.Use(v.RequireUser)

	r.Post("/", h.HandleCreate)
	r.Post("/join", h.HandleJoin)
	r.Get("/{id}", h.ServeView)
	r.Get("/{id}/activity", h.ServeActivity)

	return r
}
