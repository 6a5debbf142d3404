package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inksign/inksign/backend/go-services/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDocument is the stored shape; status is kept as its string name.
type mongoDocument struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	SenderID    string     `bson:"senderId"`
	RecipientID string     `bson:"recipientId"`
	Status      string     `bson:"status"`
	RequestedAt time.Time  `bson:"requestedAt"`
	SignedAt    *time.Time `bson:"signedAt,omitempty"`
	FileData    *string    `bson:"fileData,omitempty"`
	FileName    *string    `bson:"fileName,omitempty"`
	FileType    *string    `bson:"fileType,omitempty"`
}

func toMongo(d *document.Document) mongoDocument {
	return mongoDocument{
		ID:          d.ID,
		Title:       d.Title,
		SenderID:    d.SenderID,
		RecipientID: d.RecipientID,
		Status:      d.Status.String(),
		RequestedAt: d.RequestedAt,
		SignedAt:    d.SignedAt,
		FileData:    d.FileData,
		FileName:    d.FileName,
		FileType:    d.FileType,
	}
}

func (r mongoDocument) toDocument() (*document.Document, error) {
	st, err := document.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", r.ID, err)
	}
	return &document.Document{
		ID:          r.ID,
		Title:       r.Title,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Status:      st,
		RequestedAt: r.RequestedAt.UTC(),
		SignedAt:    utcPtr(r.SignedAt),
		FileData:    r.FileData,
		FileName:    r.FileName,
		FileType:    r.FileType,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// MongoRepo implements Repository on a MongoDB collection.
type MongoRepo struct {
	col *mongo.Collection
}

// NewMongoRepo wraps col and makes sure the participant indexes exist.
func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "requestedAt", Value: 1}}},
		{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		return nil, fmt.Errorf("create document indexes: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Create(ctx context.Context, d *document.Document) error {
	if err := document.Validate(d); err != nil {
		return err
	}
	if _, err := m.col.InsertOne(ctx, toMongo(d)); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var rec mongoDocument
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.toDocument()
}

func (m *MongoRepo) List(ctx context.Context) ([]*document.Document, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoRepo) ListByParticipant(ctx context.Context, principalID string) ([]*document.Document, error) {
	return m.find(ctx, bson.M{"$or": bson.A{
		bson.M{"senderId": principalID},
		bson.M{"recipientId": principalID},
	}})
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M) ([]*document.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "requestedAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var rec mongoDocument
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		d, err := rec.toDocument()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) UpdateStatus(ctx context.Context, id string, from, to document.Status, signedAt *time.Time) (*document.Document, error) {
	set := bson.M{"status": to.String()}
	if signedAt != nil {
		set["signedAt"] = signedAt.UTC()
	}
	filter := bson.M{"_id": id, "status": from.String()}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec mongoDocument
	err := m.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&rec)
	if err == nil {
		return rec.toDocument()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	// nothing matched: either the id is unknown or the status moved on
	cur, gerr := m.Get(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	return nil, fmt.Errorf("%w: document is already %s", document.ErrInvalidState, cur.Status)
}
