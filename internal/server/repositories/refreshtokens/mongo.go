package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/dbx"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/users"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository keeps the token in the refresh_token field of the user document.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(users.CollectionName), now: time.Now}
}

func (r *MongoRepository) Get(ctx context.Context, userID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", common.ErrorNotFound
	}

	var doc struct {
		RefreshToken string `bson:"refresh_token"`
	}
	opts := options.FindOne().SetProjection(bson.M{"refresh_token": 1})
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		return "", dbx.MapMongoError(err)
	}
	return doc.RefreshToken, nil
}

func (r *MongoRepository) Set(ctx context.Context, userID string, token string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return common.ErrorNotFound
	}

	update := bson.M{"$set": bson.M{"refresh_token": token, "updated_at": r.now().UTC()}}
	if token == "" {
		update = bson.M{
			"$unset": bson.M{"refresh_token": ""},
			"$set":   bson.M{"updated_at": r.now().UTC()},
		}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return dbx.MapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Rotate matches on both _id and the presented token in one UpdateOne,
// which MongoDB applies atomically to the single document.
func (r *MongoRepository) Rotate(ctx context.Context, userID string, presented, next string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "refresh_token": presented},
		bson.M{"$set": bson.M{"refresh_token": next, "updated_at": r.now().UTC()}},
	)
	if err != nil {
		return false, dbx.MapMongoError(err)
	}
	return res.MatchedCount == 1, nil
}
