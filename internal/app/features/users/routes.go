// internal/app/features/users/routes.go
package users

import (
	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the user routes under "/users". Registration is public and
// limited per client IP; everything else needs a bearer token.
func Routes(h *Handler, v *auth.Verifier, registerLimit *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.With(registerLimit.Middleware(ratelimit.ClientIP, errorsfeature.TooManyRequests)).
		Post("/", h.HandleRegister)

	r.Group(func(pr chi.Router) {
		pr.Use(v.RequireUser)
		pr.Get("/me", h.ServeMe)
		pr.Put("/me/current-organization", h.HandleSwitchCurrent)
	})

	return r
}
