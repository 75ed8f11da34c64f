package etl

import (
	"context"
	"time"

	"github.com/mpawlak/statsync/pkg/logger"
	"github.com/mpawlak/statsync/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore implements Store against a MongoDB database. Documents are
// keyed on _id, so re-sending a batch replaces in place instead of
// duplicating.
type MongoStore struct {
	Client   *mongo.Client
	Database string
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{Client: client, Database: database}
}

func (m *MongoStore) UpsertMany(ctx context.Context, collection string, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	coll := m.Client.Database(m.Database).Collection(collection)
	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		body := bson.M{"_id": doc.Key}
		for k, v := range doc.Fields {
			body[k] = v
		}
		model := mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.Key}).
			SetReplacement(body).
			SetUpsert(true)
		writes = append(writes, model)
	}

	writeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := coll.BulkWrite(writeCtx, writes)
	if err != nil {
		return err
	}
	logger.Infof("Mongo BulkWrite to %s: Match %d, Mod %d, Upsert %d",
		collection, res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return nil
}

func (m *MongoStore) Count(ctx context.Context, collection string) (int64, error) {
	countCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return m.Client.Database(m.Database).Collection(collection).CountDocuments(countCtx, bson.M{})
}

// Purge deletes every document in a collection. Used by the purge command,
// never by the upload path.
func (m *MongoStore) Purge(ctx context.Context, collection string) (int64, error) {
	delCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	res, err := m.Client.Database(m.Database).Collection(collection).DeleteMany(delCtx, bson.M{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
