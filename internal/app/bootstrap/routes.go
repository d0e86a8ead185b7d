// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/orghub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/orghub/internal/app/features/health"
	organizationsfeature "github.com/dalemusser/orghub/internal/app/features/organizations"
	usersfeature "github.com/dalemusser/orghub/internal/app/features/users"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so deps.Services is populated.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	verifier, err := auth.NewVerifier(appCfg.JWTSecret, appCfg.JWTIssuer, logger)
	if err != nil {
		logger.Error("bearer token verifier init failed", zap.Error(err))
		return nil, err
	}

	svc := deps.Services
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancers and orchestrators.
	// Pass an untyped nil in memory mode so the handler sees no client.
	var pinger healthfeature.Pinger
	if deps.MongoClient != nil {
		pinger = deps.MongoClient
	}
	healthHandler := healthfeature.NewHandler(pinger, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	registerLimit := ratelimit.New(appCfg.RegisterRatePerHour, time.Hour)
	usersHandler := usersfeature.NewHandler(svc.Store, svc.Coordinator, svc.Audit, errLog, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, verifier, registerLimit))

	// Query is only available when audit events are stored.
	var activity organizationsfeature.ActivityReader
	if svc.AuditStore != nil {
		activity = svc.AuditStore
	}
	joinLimit := ratelimit.New(appCfg.JoinRatePerMinute, time.Minute)
	orgHandler := organizationsfeature.NewHandler(svc.Store, svc.Coordinator, activity, joinLimit, errLog, logger)
	r.Mount("/organizations", organizationsfeature.Routes(orgHandler, verifier))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errorsfeature.NotFound(w, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errorsfeature.Message(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r, nil
}
