// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Mongo fields are nil in memory mode; NATS is nil when events are off.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	NATS          *nats.Conn

	// Services is filled in by Startup and shared with BuildHandler and
	// Shutdown, which receive DBDeps by value.
	Services *Services
}
