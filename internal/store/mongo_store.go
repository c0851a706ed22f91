package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"
)

const (
	contentCollection = "content"
	usersCollection   = "users"
)

// MongoStore implements Store and ProfileStore on a MongoDB database.
type MongoStore struct {
	content *mongo.Collection
	users   *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		content: db.Collection(contentCollection),
		users:   db.Collection(usersCollection),
	}
}

// EnsureIndexes creates the indexes used by the owner, status and blob queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.content.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "file_url", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create content indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, rec *models.ContentRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Tags == nil {
		rec.Tags = datatypes.JSONSlice[string]{}
	}
	if _, err := s.content.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create content record: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.ContentRecord, error) {
	var rec models.ContentRecord
	if err := s.content.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, patch Patch) (*models.ContentRecord, error) {
	set := bson.M{}
	for k, v := range patch.columns() {
		if tags, ok := v.(datatypes.JSONSlice[string]); ok {
			v = []string(tags)
		}
		set[k] = v
	}
	set["updated_at"] = time.Now().UTC()

	filter := bson.M{"_id": id}
	if patch.IfStatus != "" {
		filter["status"] = string(patch.IfStatus)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec models.ContentRecord
	err := s.content.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&rec)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to update content record: %w", err)
		}
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrConflict
	}
	return &rec, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	result, err := s.content.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete content record: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, q Query) ([]models.ContentRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.content.Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]models.ContentRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func mongoFilter(q Query) bson.M {
	clauses := bson.A{}
	for _, p := range q.Where {
		switch p.Op {
		case OpEq:
			clauses = append(clauses, bson.M{p.Field: normalize(p.Value)})
		case OpNe:
			clauses = append(clauses, bson.M{p.Field: bson.M{"$ne": normalize(p.Value)}})
		}
	}
	if q.Tag != "" {
		clauses = append(clauses, bson.M{"tags": q.Tag})
	}
	if len(clauses) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": clauses}
}

func (s *MongoStore) EnsureProfile(ctx context.Context, p *models.UserProfile) (bool, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.FollowedTopics == nil {
		p.FollowedTopics = datatypes.JSONSlice[string]{}
	}
	if p.Role == "" {
		p.Role = "user"
	}

	onInsert := bson.M{
		"email":           p.Email,
		"display_name":    p.DisplayName,
		"role":            p.Role,
		"followed_topics": []string(p.FollowedTopics),
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
	result, err := s.users.UpdateOne(ctx,
		bson.M{"_id": p.UID},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create user profile: %w", err)
	}
	return result.UpsertedCount == 1, nil
}

func (s *MongoStore) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) SetFollowedTopics(ctx context.Context, uid string, topics []string) (*models.UserProfile, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.UserProfile
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"followed_topics": append([]string{}, topics...), "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update followed topics: %w", err)
	}
	return &p, nil
}
