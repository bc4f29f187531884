package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Mongo is the production Store backed by a MongoDB replica set. Change
// streams provide the subscribe primitive, so it must be pointed at a
// replica-set or Atlas deployment.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// ConnectMongo dials mongo, verifies the connection and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string, logger *zap.Logger) (*Mongo, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database), logger: logger}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// Disconnect closes the client.
func (m *Mongo) Disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	// Compound index on (chat_id, timestamp) for chat pagination and
	// subscription predicates.
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "chat_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_chat_timestamp"),
		},
		{
			// Unique so a replayed create with the same idempotency key is
			// rejected server-side; sparse because only client-originated
			// messages carry one.
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index().SetName("idx_client_id").SetUnique(true).SetSparse(true),
		},
	}
	for _, im := range models {
		if _, err := m.db.Collection(CollectionMessages).Indexes().CreateOne(ctx, im); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}

func (m *Mongo) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	id, ok := doc["_id"].(string)
	if !ok || id == "" {
		id = primitive.NewObjectID().Hex()
		doc["_id"] = id
	}
	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", classify(err)
	}
	return id, nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}
	res, err := m.db.Collection(collection).UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return classify(err)
	}
	if res.MatchedCount == 0 {
		return Rejected(fmt.Sprintf("%s/%s does not exist", collection, id), nil)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var doc bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return doc, nil
}

func (m *Mongo) Query(ctx context.Context, collection string, pred Predicate) ([]map[string]any, error) {
	filter := bson.M{}
	if pred.Field != "" {
		filter[pred.Field] = pred.Equals
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []map[string]any
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, classify(err)
		}
		docs = append(docs, doc)
	}
	return docs, classify(cur.Err())
}

func (m *Mongo) Subscribe(ctx context.Context, collection string, pred Predicate, fn func(Change)) (func(), error) {
	match := bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}}}
	if pred.Field != "" {
		match["fullDocument."+pred.Field] = pred.Equals
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}

	streamCtx, cancel := context.WithCancel(ctx)
	cs, err := m.db.Collection(collection).Watch(streamCtx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, classify(err)
	}

	go func() {
		defer func() { _ = cs.Close(context.Background()) }()
		for cs.Next(streamCtx) {
			var evt struct {
				FullDocument bson.M `bson:"fullDocument"`
			}
			if err := cs.Decode(&evt); err != nil {
				if m.logger != nil {
					m.logger.Warn("change stream decode failed", zap.Error(err))
				}
				continue
			}
			if evt.FullDocument == nil {
				continue
			}
			id, _ := evt.FullDocument["_id"].(string)
			fn(Change{Collection: collection, ID: id, Data: evt.FullDocument})
		}
	}()

	return cancel, nil
}

// classify maps driver errors onto the engine's taxonomy. Write rejections
// (duplicate keys, validation) are terminal; everything else is assumed to be
// the network and retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return Rejected("duplicate key", err)
	}
	var we mongo.WriteException
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		return Rejected("write rejected", err)
	}
	return Transient(err)
}
