// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/events"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for orghub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: ORGHUB_MONGO_URI, ORGHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store", Default: StoreMongo, Desc: "Document store: 'mongo' or 'memory' (dev only)"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "orghub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_issuer", Default: "", Desc: "Expected token issuer (blank skips the check)"},

	// Timeouts
	{Name: "store_timeout", Default: "5s", Desc: "Deadline for a single store call"},
	{Name: "request_timeout", Default: "15s", Desc: "Deadline for a whole API request"},
	{Name: "sweep_timeout", Default: "10m", Desc: "Deadline for one reconciler run"},

	// Reconciler
	{Name: "reconcile_interval", Default: "1h", Desc: "How often the reconciler runs in the background (0 disables)"},

	// Rate limits
	{Name: "join_rate_per_minute", Default: 10, Desc: "Join attempts allowed per user per minute (0 disables)"},
	{Name: "register_rate_per_hour", Default: 20, Desc: "Registrations allowed per client IP per hour (0 disables)"},

	// Events
	{Name: "nats_url", Default: "", Desc: "NATS server URL for membership events (blank disables)"},
	{Name: "nats_subject_prefix", Default: events.DefaultSubjectPrefix, Desc: "Subject prefix for membership events"},

	// Audit logging settings
	{Name: "audit_log_membership", Default: "all", Desc: "Membership event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_account", Default: "all", Desc: "Account event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_maintenance", Default: "all", Desc: "Reconciler run logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, ORGHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ORGHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		Store:            appValues.String("store"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		StoreTimeout:   appValues.Duration("store_timeout", 5*time.Second),
		RequestTimeout: appValues.Duration("request_timeout", 15*time.Second),
		SweepTimeout:   appValues.Duration("sweep_timeout", 10*time.Minute),

		ReconcileInterval: appValues.Duration("reconcile_interval", time.Hour),

		JoinRatePerMinute:   appValues.Int("join_rate_per_minute"),
		RegisterRatePerHour: appValues.Int("register_rate_per_hour"),

		NATSURL:           appValues.String("nats_url"),
		NATSSubjectPrefix: appValues.String("nats_subject_prefix"),

		AuditLogMembership:  appValues.String("audit_log_membership"),
		AuditLogAccount:     appValues.String("audit_log_account"),
		AuditLogMaintenance: appValues.String("audit_log_maintenance"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.Store {
	case StoreMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database must not be empty")
		}
	case StoreMemory:
		if coreCfg != nil && coreCfg.Env == "prod" {
			return fmt.Errorf("store=memory is not allowed in prod")
		}
		logger.Warn("using the in-memory store; data will be lost on exit")
	default:
		return fmt.Errorf("store must be %q or %q, got %q", StoreMongo, StoreMemory, appCfg.Store)
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if appCfg.JWTSecret == devJWTSecret && coreCfg != nil && coreCfg.Env == "prod" {
		return fmt.Errorf("jwt_secret must be changed from the development default in prod")
	}

	for key, mode := range map[string]string{
		"audit_log_membership":  appCfg.AuditLogMembership,
		"audit_log_account":     appCfg.AuditLogAccount,
		"audit_log_maintenance": appCfg.AuditLogMaintenance,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, mode)
		}
	}

	if appCfg.JoinRatePerMinute < 0 || appCfg.RegisterRatePerHour < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if appCfg.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile_interval must not be negative")
	}
	return nil
}

// auditConfig maps the audit_log_* keys onto auditlog.Config.
func (c AppConfig) auditConfig() auditlog.Config {
	return auditlog.Config{
		Membership:  c.AuditLogMembership,
		Account:     c.AuditLogAccount,
		Maintenance: c.AuditLogMaintenance,
	}
}
