package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoCommentRepo stores comments in a mongo collection
type mongoCommentRepo struct {
	coll *mongo.Collection
}

// NewMongoCommentRepo creates a new mongo-backed comment repository
func NewMongoCommentRepo(db *mongo.Database) CommentRepository {
	return &mongoCommentRepo{coll: db.Collection(database.CollectionComments)}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *mongoCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	_, err := r.coll.InsertOne(ctx, comment)
	return err
}

func (r *mongoCommentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *mongoCommentRepo) ListTopLevel(ctx context.Context, postID string) ([]*models.Comment, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"post_id": postID, "parent_id": nil},
		options.Find().SetSort(newestFirst),
	)
	if err != nil {
		return nil, err
	}

	var comments []*models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// ListByParents groups replies by parent and slices each group to
// perParent entries in a single aggregation.
func (r *mongoCommentRepo) ListByParents(ctx context.Context, postID string, parentIDs []string, perParent int) ([]*models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"post_id": postID, "parent_id": bson.M{"$in": parentIDs}}}},
		{{Key: "$sort", Value: newestFirst}},
		{{Key: "$group", Value: bson.M{"_id": "$parent_id", "items": bson.M{"$push": "$$ROOT"}}}},
		{{Key: "$project", Value: bson.M{"items": bson.M{"$slice": bson.A{"$items", perParent}}}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$items"}}},
		{{Key: "$sort", Value: newestFirst}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var comments []*models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *mongoCommentRepo) Tombstone(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"content": nil, "deleted_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoCommentRepo) CountByPost(ctx context.Context, postID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"post_id": postID, "deleted_at": bson.M{"$exists": false}})
	return int(n), err
}

func (r *mongoCommentRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	return int(n), err
}
