// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store modes.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration (ports, TLS, log level).
type AppConfig struct {
	// Store selects the document store: "mongo" or "memory" (dev only;
	// data is lost on exit).
	Store string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer token verification
	JWTSecret string // HS256 secret shared with the token issuer
	JWTIssuer string // expected iss claim; blank disables the check

	// Timeouts
	StoreTimeout   time.Duration // one store call
	RequestTimeout time.Duration // one API request
	SweepTimeout   time.Duration // one reconciler run

	// Reconciler worker; zero disables it.
	ReconcileInterval time.Duration

	// Rate limits; zero disables.
	JoinRatePerMinute   int // join attempts per user
	RegisterRatePerHour int // registrations per client IP

	// Membership events. Blank URL disables publishing.
	NATSURL           string
	NATSSubjectPrefix string

	// Audit logging destinations per category: all, db, log or off.
	AuditLogMembership  string
	AuditLogAccount     string
	AuditLogMaintenance string
}
