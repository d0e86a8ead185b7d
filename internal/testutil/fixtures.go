package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
//
// Documents are inserted directly, bypassing the stores, so tests can seed
// states the application would never write on its own (duplicate members,
// stale counts, dangling references).
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateOrganization inserts an organization with the given join code and
// member entries. member_count is set to len(members).
func (f *Fixtures) CreateOrganization(ctx context.Context, name, code string, members ...models.MemberEntry) models.Organization {
	f.t.Helper()
	if members == nil {
		members = []models.MemberEntry{}
	}
	now := time.Now().UTC()
	org := models.Organization{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		JoinCode:    code,
		Members:     members,
		MemberCount: len(members),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.InsertOrganization(ctx, org)
	return org
}

// InsertOrganization writes org exactly as given.
func (f *Fixtures) InsertOrganization(ctx context.Context, org models.Organization) {
	f.t.Helper()
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
}

// CreateUser inserts a user holding the given memberships.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string, orgs ...models.Membership) models.User {
	f.t.Helper()
	if orgs == nil {
		orgs = []models.Membership{}
	}
	now := time.Now().UTC()
	u := models.User{
		ID:            primitive.NewObjectID(),
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         email,
		Organizations: orgs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// Member builds an organization-side entry.
func Member(userID primitive.ObjectID, role string) models.MemberEntry {
	return models.MemberEntry{UserID: userID, Role: role, JoinedAt: time.Now().UTC().Truncate(time.Millisecond)}
}

// Membership builds an active user-side entry.
func Membership(orgID primitive.ObjectID, role string) models.Membership {
	return models.Membership{OrganizationID: orgID, Role: role, JoinedAt: time.Now().UTC().Truncate(time.Millisecond), IsActive: true}
}
