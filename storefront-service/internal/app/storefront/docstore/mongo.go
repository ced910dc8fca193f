package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const serviceName = "storefront-service"

// MongoStore - реализация Store поверх MongoDB.
// Batch и Watch требуют replica set (транзакции и change streams).
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(database),
	}
}

// EnsureIndex создает индекс по полю с именем <field>_idx
func (s *MongoStore) EnsureIndex(ctx context.Context, collection, field string) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetName(field + "_idx"),
	}
	if _, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("failed to create index %s.%s: %w", collection, field, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (bson.Raw, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, collection)

	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			timer.Done(nil)
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		timer.Done(err)
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	timer.Done(nil)
	return raw, nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, doc interface{}) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, collection)
	err := s.create(ctx, collection, id, doc)
	timer.Done(ignoreExpected(err))
	return err
}

func (s *MongoStore) create(ctx context.Context, collection, id string, doc interface{}) error {
	d, err := toDocument(doc, id)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Put(ctx context.Context, collection, id string, doc interface{}) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, collection)
	err := s.put(ctx, collection, id, doc)
	timer.Done(err)
	return err
}

func (s *MongoStore) put(ctx context.Context, collection, id string, doc interface{}) error {
	d, err := toDocument(doc, id)
	if err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, d, opts); err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Apply(ctx context.Context, collection, id string, m Mutation) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, collection)
	err := s.apply(ctx, collection, id, m)
	timer.Done(ignoreExpected(err))
	return err
}

func (s *MongoStore) apply(ctx context.Context, collection, id string, m Mutation) error {
	if m.empty() {
		return fmt.Errorf("%w: empty mutation", ErrInvalidOp)
	}

	update := bson.D{}
	if len(m.Set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: m.Set})
	}
	if len(m.Inc) > 0 {
		update = append(update, bson.E{Key: "$inc", Value: m.Inc})
	}
	if len(m.SetOnInsert) > 0 {
		update = append(update, bson.E{Key: "$setOnInsert", Value: m.SetOnInsert})
	}

	opts := options.Update().SetUpsert(m.Upsert)
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, collection)
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	timer.Done(err)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, q Query) ([]bson.Raw, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, q.Collection)
	docs, err := s.find(ctx, q)
	timer.Done(err)
	return docs, err
}

func (s *MongoStore) find(ctx context.Context, q Query) ([]bson.Raw, error) {
	filter := bson.D{}
	for _, f := range q.Where {
		if f.In != nil {
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{"$in": f.In}})
			continue
		}
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}

	// _id как вторичный ключ дает тот же порядок, что и MemoryStore
	sortSpec := bson.D{}
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		sortSpec = append(sortSpec, bson.E{Key: q.OrderBy, Value: dir})
	}
	sortSpec = append(sortSpec, bson.E{Key: "_id", Value: 1})

	opts := options.Find().SetSort(sortSpec)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.Raw
	for cursor.Next(ctx) {
		docs = append(docs, cloneRaw(cursor.Current))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", q.Collection, err)
	}
	return docs, nil
}

// Batch выполняет операции в одной транзакции
func (s *MongoStore) Batch(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpBatch, ops[0].Collection)

	session, err := s.client.StartSession()
	if err != nil {
		timer.Done(err)
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			if err := s.execOp(sc, op); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	timer.Done(ignoreExpected(err))
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}
	return nil
}

func (s *MongoStore) execOp(ctx context.Context, op Op) error {
	if op.Collection == "" || op.ID == "" {
		return fmt.Errorf("%w: empty collection or id", ErrInvalidOp)
	}
	switch op.Kind {
	case OpPut:
		return s.put(ctx, op.Collection, op.ID, op.Doc)
	case OpCreate:
		return s.create(ctx, op.Collection, op.ID, op.Doc)
	case OpApply:
		return s.apply(ctx, op.Collection, op.ID, op.Mutation)
	case OpDelete:
		if _, err := s.db.Collection(op.Collection).DeleteOne(ctx, bson.M{"_id": op.ID}); err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", op.Collection, op.ID, err)
		}
		return nil
	}
	return fmt.Errorf("%w: kind %d", ErrInvalidOp, op.Kind)
}

// Watch открывает change stream по коллекции и после каждого события
// перечитывает запрос. Одинаковые подряд снапшоты не отдаются.
func (s *MongoStore) Watch(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	stream, err := s.db.Collection(q.Collection).Watch(watchCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		metrics.RecordDbError(serviceName, metrics.DbOpWatch)
		return nil, fmt.Errorf("failed to open change stream on %s: %w", q.Collection, err)
	}

	initial, err := s.find(watchCtx, q)
	if err != nil {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	sub := &mongoSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer stream.Close(context.Background())

		last := initial
		fn(initial)

		for stream.Next(watchCtx) {
			docs, err := s.find(watchCtx, q)
			if err != nil {
				if watchCtx.Err() != nil {
					return
				}
				logger.Error().Err(err).Str("collection", q.Collection).Msg("Failed to refresh watched query")
				continue
			}
			if sameSnapshot(last, docs) {
				continue
			}
			last = docs
			fn(docs)
		}

		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			metrics.RecordDbError(serviceName, metrics.DbOpWatch)
			logger.Error().Err(err).Str("collection", q.Collection).Msg("Change stream terminated")
		}
	}()

	return sub, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type mongoSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (sub *mongoSubscription) Close() {
	sub.cancel()
}

func sameSnapshot(a, b []bson.Raw) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ignoreExpected не считает ErrNotFound/ErrAlreadyExists ошибками хранилища в метриках
func ignoreExpected(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	return err
}
