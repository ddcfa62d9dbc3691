package repository

import (
	"context"
	"time"

	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoUserRepo keeps users in a mongo collection
type mongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo creates a new mongo-backed user repository
func NewMongoUserRepo(db *mongo.Database) UserRepository {
	return &mongoUserRepo{coll: db.Collection(database.CollectionUsers)}
}

func (r *mongoUserRepo) Upsert(ctx context.Context, user *models.User) error {
	doc := *user
	doc.UpdatedAt = time.Now()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, &doc, options.Replace().SetUpsert(true))
	return err
}

func (r *mongoUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	var found []*models.User
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}

func (r *mongoUserRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	return int(n), err
}
