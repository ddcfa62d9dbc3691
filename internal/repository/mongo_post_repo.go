package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// mongoPostRepo stores posts in a mongo collection
type mongoPostRepo struct {
	coll *mongo.Collection
}

// NewMongoPostRepo creates a new mongo-backed post repository
func NewMongoPostRepo(db *mongo.Database) PostRepository {
	return &mongoPostRepo{coll: db.Collection(database.CollectionPosts)}
}

func (r *mongoPostRepo) Create(ctx context.Context, post *models.Post) error {
	doc := *post
	doc.LikedBy = nonNil(post.LikedBy)
	doc.DislikedBy = nonNil(post.DislikedBy)
	doc.UpdatedAt = time.Now()
	_, err := r.coll.InsertOne(ctx, &doc)
	return err
}

func (r *mongoPostRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *mongoPostRepo) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	return n > 0, err
}

// UpdateReactions matches on {_id, version}, so a concurrent writer that
// bumped the version makes the update match nothing.
func (r *mongoPostRepo) UpdateReactions(ctx context.Context, id string, likedBy, dislikedBy []string, expectedVersion int64) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{
			"$set": bson.M{
				"liked_by":    nonNil(likedBy),
				"disliked_by": nonNil(dislikedBy),
				"updated_at":  time.Now(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoPostRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	return int(n), err
}
