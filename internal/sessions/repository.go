package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides session persistence operations. GetByRefresh returns
// (nil, nil) for unknown tokens. DeleteByRefresh reports whether this call
// removed the session; of concurrent deletes exactly one sees true.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByRefresh(ctx context.Context, refresh string) (*Session, error)
	DeleteByRefresh(ctx context.Context, refresh string) (bool, error)
}

// sessionDoc is the stored shape: the refresh token itself is never
// persisted, only its digest.
type sessionDoc struct {
	ID          string    `bson:"_id,omitempty"`
	RefreshHash string    `bson:"refreshHash"`
	UserID      string    `bson:"userId"`
	ExpiresAt   time.Time `bson:"expiresAt"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// MongoRepository stores sessions in a collection with a unique digest
// index and a TTL index on expiresAt.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates the indexes and returns the repository.
func NewMongoRepository(ctx context.Context, col *mongo.Collection) (*MongoRepository, error) {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "refreshHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return nil, err
	}
	return &MongoRepository{col: col}, nil
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(DefaultTTL)
	}
	_, err := r.col.InsertOne(ctx, sessionDoc{
		ID:          s.ID,
		RefreshHash: digest(s.RefreshToken),
		UserID:      s.UserID,
		ExpiresAt:   s.ExpiresAt,
		CreatedAt:   s.CreatedAt,
	})
	return err
}

// GetByRefresh also filters on expiresAt since the TTL monitor only sweeps
// about once a minute.
func (r *MongoRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	var d sessionDoc
	filter := bson.M{"refreshHash": digest(refresh), "expiresAt": bson.M{"$gt": time.Now().UTC()}}
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &Session{ID: d.ID, RefreshToken: refresh, UserID: d.UserID, ExpiresAt: d.ExpiresAt, CreatedAt: d.CreatedAt}, nil
}

func (r *MongoRepository) DeleteByRefresh(ctx context.Context, refresh string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"refreshHash": digest(refresh)})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
