// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/membership"
	"github.com/dalemusser/orghub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Insert writes a fully built organization. The unique join_code index turns
// a collision into membership.ErrJoinCodeTaken.
func (s *Store) Insert(ctx context.Context, org models.Organization) error {
	if org.Members == nil {
		org.Members = []models.MemberEntry{}
	}
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return membership.ErrJoinCodeTaken
		}
		return err
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByJoinCode expects code already normalized to upper case.
func (s *Store) GetByJoinCode(ctx context.Context, code string) (models.Organization, error) {
	return s.findOne(ctx, bson.M{"join_code": code})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, filter).Decode(&org); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Organization{}, membership.ErrOrgNotFound
		}
		return models.Organization{}, err
	}
	return org, nil
}

// AddMember appends entry unless the user is already listed. The guard and
// the member_count increment are one update, so concurrent callers cannot
// both append.
func (s *Store) AddMember(ctx context.Context, orgID primitive.ObjectID, entry models.MemberEntry) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": orgID, "members.user_id": bson.M{"$ne": entry.UserID}},
		bson.M{
			"$push": bson.M{"members": entry},
			"$inc":  bson.M{"member_count": 1},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, s.mustExist(ctx, orgID)
}

// ReplaceMembers overwrites the member array if it still has expectLen
// entries, and resets member_count to match.
func (s *Store) ReplaceMembers(ctx context.Context, orgID primitive.ObjectID, expectLen int, members []models.MemberEntry) error {
	if members == nil {
		members = []models.MemberEntry{}
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": orgID, "$expr": sizeIs("$members", expectLen)},
		bson.M{"$set": bson.M{
			"members":      members,
			"member_count": len(members),
			"updated_at":   time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if err := s.mustExist(ctx, orgID); err != nil {
		return err
	}
	return membership.ErrConflict
}

// SyncMemberCount recomputes member_count server-side from the stored array.
func (s *Store) SyncMemberCount(ctx context.Context, orgID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": orgID}, mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "member_count", Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$members", bson.A{}}}}}}},
		}}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return membership.ErrOrgNotFound
	}
	return nil
}

// ForEach streams every organization in _id order.
func (s *Store) ForEach(ctx context.Context, fn func(models.Organization) error) error {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var org models.Organization
		if err := cur.Decode(&org); err != nil {
			return err
		}
		if err := fn(org); err != nil {
			return err
		}
	}
	return cur.Err()
}

// ListByIDs loads the organizations with the given ids, sorted by name.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().
			SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
			SetProjection(bson.M{"members": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *Store) mustExist(ctx context.Context, id primitive.ObjectID) error {
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return membership.ErrOrgNotFound
	}
	return err
}

// sizeIs builds an aggregation expression that is true when the array at
// field has n elements. A missing or null array counts as empty.
func sizeIs(field string, n int) bson.M {
	return bson.M{"$eq": bson.A{
		bson.M{"$size": bson.M{"$ifNull": bson.A{field, bson.A{}}}},
		n,
	}}
}
