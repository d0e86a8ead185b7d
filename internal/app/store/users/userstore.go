package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Insert writes a new user after normalizing name and email. The caller
// assigns the id and password hash.
func (s *Store) Insert(ctx context.Context, u models.User) error {
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.Organizations == nil {
		u.Organizations = []models.Membership{}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return membership.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, membership.ErrUserNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// AddMembership appends m unless the user already references the
// organization. With makeCurrent the same update sets current_organization.
func (s *Store) AddMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership, makeCurrent bool) (bool, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if makeCurrent {
		set["current_organization"] = m.OrganizationID
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "organizations.organization_id": bson.M{"$ne": m.OrganizationID}},
		bson.M{"$push": bson.M{"organizations": m}, "$set": set})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, s.mustExist(ctx, userID)
}

func (s *Store) SetCurrentOrganization(ctx context.Context, userID, orgID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, userID, bson.M{"$set": bson.M{
		"current_organization": orgID,
		"updated_at":           time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return membership.ErrUserNotFound
	}
	return nil
}

// ActivateMembership sets is_active on the user's entry for orgID and makes
// it the current organization.
func (s *Store) ActivateMembership(ctx context.Context, userID, orgID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "organizations.organization_id": orgID},
		bson.M{"$set": bson.M{
			"organizations.$.is_active": true,
			"current_organization":      orgID,
			"updated_at":                time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if err := s.mustExist(ctx, userID); err != nil {
		return err
	}
	return membership.ErrNotMember
}

// ReplaceMemberships overwrites the organizations array if it still has
// expectLen entries. current_organization is unset in the same update when
// it no longer points at a kept entry.
func (s *Store) ReplaceMemberships(ctx context.Context, userID primitive.ObjectID, expectLen int, ms []models.Membership) error {
	if ms == nil {
		ms = []models.Membership{}
	}
	kept := make(bson.A, 0, len(ms))
	for _, m := range ms {
		kept = append(kept, m.OrganizationID)
	}

	filter := bson.M{"_id": userID, "$expr": bson.M{"$eq": bson.A{
		bson.M{"$size": bson.M{"$ifNull": bson.A{"$organizations", bson.A{}}}},
		expectLen,
	}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "organizations", Value: bson.M{"$literal": ms}},
			{Key: "updated_at", Value: time.Now().UTC()},
			{Key: "current_organization", Value: bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{"$current_organization", kept}},
				"$current_organization",
				"$$REMOVE",
			}}},
		}}},
	}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if err := s.mustExist(ctx, userID); err != nil {
		return err
	}
	return membership.ErrConflict
}

// ForEach streams every user in _id order. Password hashes are not loaded.
func (s *Store) ForEach(ctx context.Context, fn func(models.User) error) error {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (s *Store) mustExist(ctx context.Context, id primitive.ObjectID) error {
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return membership.ErrUserNotFound
	}
	return err
}
