// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup configures timeouts, builds the store and membership services,
// and starts the reconcile worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Store:   appCfg.StoreTimeout,
		Request: appCfg.RequestTimeout,
		Sweep:   appCfg.SweepTimeout,
	})
	*deps.Services = *NewServices(appCfg, deps, logger)
	deps.Services.Worker.Start()
	return nil
}
