// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	tokenstore "github.com/dalemusser/gatherhub/internal/app/store/tokens"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"github.com/dalemusser/gatherhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// janitor is the background maintenance worker; started in Startup and
// stopped in Shutdown.
var janitor *workers.Janitor

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied", zap.Int("count", n))
	}

	janitor = workers.NewJanitor(
		membershipstore.New(deps.MongoDatabase, logger),
		userstore.New(deps.MongoDatabase),
		tokenstore.New(deps.MongoDatabase, appCfg.RefreshTTL),
		logger,
		appCfg.JanitorInterval,
	)
	janitor.Start()

	return nil
}
