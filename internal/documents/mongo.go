package documents

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"peerprep/interview/internal/models"
)

// Connect opens a mongo client and checks it answers.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// MongoRepository wraps the documents collection.
type MongoRepository struct{ col *mongo.Collection }

func NewMongoRepository(client *mongo.Client, database, collection string) *MongoRepository {
	if database == "" {
		database = "peerprep"
	}
	if collection == "" {
		collection = "interview_documents"
	}
	col := client.Database(database).Collection(collection)

	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, doc *models.Document) error {
	prepare(doc)
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}
