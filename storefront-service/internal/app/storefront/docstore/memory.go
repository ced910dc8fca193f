package docstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type docKey struct {
	collection string
	id         string
}

// MemoryStore - хранилище в памяти процесса (STORE_DRIVER=memory и тесты).
// Документы лежат в BSON, поэтому кодирование то же, что и у MongoStore.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]bson.Raw
	subs        map[string]map[*memorySubscription]struct{}
	closed      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]bson.Raw),
		subs:        make(map[string]map[*memorySubscription]struct{}),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (bson.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return cloneRaw(doc), nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, doc interface{}) error {
	return s.Batch(ctx, []Op{CreateOp(collection, id, doc)})
}

func (s *MemoryStore) Put(ctx context.Context, collection, id string, doc interface{}) error {
	return s.Batch(ctx, []Op{PutOp(collection, id, doc)})
}

func (s *MemoryStore) Apply(ctx context.Context, collection, id string, m Mutation) error {
	return s.Batch(ctx, []Op{ApplyOp(collection, id, m)})
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []Op{DeleteOp(collection, id)})
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]bson.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.queryLocked(q), nil
}

// Batch сначала собирает все изменения в overlay и только потом публикует их
func (s *MemoryStore) Batch(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	overlay := make(map[docKey]bson.Raw, len(ops))
	lookup := func(k docKey) (bson.Raw, bool) {
		if v, ok := overlay[k]; ok {
			return v, v != nil
		}
		v, ok := s.collections[k.collection][k.id]
		return v, ok
	}

	for _, op := range ops {
		if op.Collection == "" || op.ID == "" {
			return fmt.Errorf("%w: empty collection or id", ErrInvalidOp)
		}
		k := docKey{collection: op.Collection, id: op.ID}
		existing, exists := lookup(k)

		switch op.Kind {
		case OpPut:
			raw, err := encode(op.Doc, op.ID)
			if err != nil {
				return err
			}
			overlay[k] = raw
		case OpCreate:
			if exists {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrAlreadyExists)
			}
			raw, err := encode(op.Doc, op.ID)
			if err != nil {
				return err
			}
			overlay[k] = raw
		case OpApply:
			raw, err := applyMutation(existing, exists, op.ID, op.Mutation)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, err)
			}
			overlay[k] = raw
		case OpDelete:
			overlay[k] = nil
		default:
			return fmt.Errorf("%w: kind %d", ErrInvalidOp, op.Kind)
		}
	}

	touched := make(map[string]struct{})
	for k, v := range overlay {
		if v == nil {
			delete(s.collections[k.collection], k.id)
		} else {
			coll, ok := s.collections[k.collection]
			if !ok {
				coll = make(map[string]bson.Raw)
				s.collections[k.collection] = coll
			}
			coll[k.id] = v
		}
		touched[k.collection] = struct{}{}
	}

	for collection := range touched {
		s.notifyLocked(collection)
	}
	return nil
}

func (s *MemoryStore) Watch(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	sub := &memorySubscription{
		store: s,
		query: q,
		fn:    fn,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	sub.push(s.queryLocked(q))

	if s.subs[q.Collection] == nil {
		s.subs[q.Collection] = make(map[*memorySubscription]struct{})
	}
	s.subs[q.Collection][sub] = struct{}{}
	s.mu.Unlock()

	go sub.run()
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}

	return sub, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var subs []*memorySubscription
	for _, set := range s.subs {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

func (s *MemoryStore) notifyLocked(collection string) {
	for sub := range s.subs[collection] {
		sub.push(s.queryLocked(sub.query))
	}
}

func (s *MemoryStore) unsubscribe(sub *memorySubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs[sub.query.Collection], sub)
}

func (s *MemoryStore) queryLocked(q Query) []bson.Raw {
	coll := s.collections[q.Collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]bson.Raw, 0, len(ids))
	for _, id := range ids {
		doc := coll[id]
		if matchesAll(doc, q.Where) {
			out = append(out, cloneRaw(doc))
		}
	}

	if q.OrderBy != "" {
		path := strings.Split(q.OrderBy, ".")
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i].Lookup(path...), out[j].Lookup(path...))
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// =============================================================================
// Подписка
// =============================================================================

// memorySubscription хранит только последний снапшот: промежуточные
// состояния можно пропустить, порядок при этом не нарушается
type memorySubscription struct {
	store *MemoryStore
	query Query
	fn    SnapshotFunc

	mu         sync.Mutex
	pending    []bson.Raw
	hasPending bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func (sub *memorySubscription) push(docs []bson.Raw) {
	sub.mu.Lock()
	sub.pending = docs
	sub.hasPending = true
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *memorySubscription) run() {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}

		sub.mu.Lock()
		if !sub.hasPending {
			sub.mu.Unlock()
			continue
		}
		docs := sub.pending
		sub.pending = nil
		sub.hasPending = false
		sub.mu.Unlock()

		select {
		case <-sub.done:
			return
		default:
		}
		sub.fn(docs)
	}
}

func (sub *memorySubscription) Close() {
	sub.once.Do(func() {
		close(sub.done)
		sub.store.unsubscribe(sub)
	})
}

// =============================================================================
// BSON helpers
// =============================================================================

func encode(doc interface{}, id string) (bson.Raw, error) {
	d, err := toDocument(doc, id)
	if err != nil {
		return nil, err
	}
	data, err := bson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return bson.Raw(data), nil
}

func applyMutation(existing bson.Raw, exists bool, id string, m Mutation) (bson.Raw, error) {
	if !exists && !m.Upsert {
		return nil, ErrNotFound
	}
	if m.empty() {
		return nil, fmt.Errorf("%w: empty mutation", ErrInvalidOp)
	}

	doc := bson.M{}
	if exists {
		if err := bson.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
	} else {
		for k, v := range m.SetOnInsert {
			doc[k] = v
		}
	}
	doc["_id"] = id

	for k, v := range m.Set {
		doc[k] = v
	}
	for k, delta := range m.Inc {
		sum, err := addNumbers(doc[k], delta)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		doc[k] = sum
	}

	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return bson.Raw(data), nil
}

func addNumbers(current, delta interface{}) (interface{}, error) {
	ci, cf, cInt, ok := toNumber(current)
	if !ok {
		return nil, fmt.Errorf("%w: $inc on non-numeric value", ErrInvalidOp)
	}
	di, df, dInt, ok := toNumber(delta)
	if !ok {
		return nil, fmt.Errorf("%w: non-numeric $inc delta", ErrInvalidOp)
	}
	if cInt && dInt {
		return ci + di, nil
	}
	return cf + df, nil
}

func toNumber(v interface{}) (int64, float64, bool, bool) {
	switch n := v.(type) {
	case nil:
		return 0, 0, true, true
	case int:
		return int64(n), float64(n), true, true
	case int32:
		return int64(n), float64(n), true, true
	case int64:
		return n, float64(n), true, true
	case float64:
		return int64(n), n, false, true
	case float32:
		return int64(n), float64(n), false, true
	}
	return 0, 0, false, false
}

func matchesAll(doc bson.Raw, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

func matches(doc bson.Raw, f Filter) bool {
	rv, err := doc.LookupErr(strings.Split(f.Field, ".")...)
	found := err == nil

	if f.In != nil {
		for _, v := range f.In {
			if equalValue(rv, found, v) {
				return true
			}
		}
		return false
	}
	return equalValue(rv, found, f.Value)
}

func equalValue(rv bson.RawValue, found bool, value interface{}) bool {
	if !found {
		return value == nil
	}

	t, data, err := bson.MarshalValue(value)
	if err != nil {
		return false
	}
	want := bson.RawValue{Type: t, Value: data}

	if a, ok := numeric(rv); ok {
		if b, ok := numeric(want); ok {
			return a == b
		}
	}
	return rv.Type == want.Type && bytes.Equal(rv.Value, want.Value)
}

func numeric(rv bson.RawValue) (float64, bool) {
	switch rv.Type {
	case bsontype.Int32:
		return float64(rv.Int32()), true
	case bsontype.Int64:
		return float64(rv.Int64()), true
	case bsontype.Double:
		return rv.Double(), true
	}
	return 0, false
}

// compareValues упорядочивает значения одного типа; отсутствующее поле идет первым
func compareValues(a, b bson.RawValue) int {
	if a.Type == 0 || b.Type == 0 {
		switch {
		case a.Type == b.Type:
			return 0
		case a.Type == 0:
			return -1
		default:
			return 1
		}
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}

	switch {
	case a.Type == bsontype.String && b.Type == bsontype.String:
		return strings.Compare(a.StringValue(), b.StringValue())
	case a.Type == bsontype.DateTime && b.Type == bsontype.DateTime:
		x, y := a.DateTime(), b.DateTime()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return bytes.Compare(a.Value, b.Value)
}

func cloneRaw(doc bson.Raw) bson.Raw {
	out := make(bson.Raw, len(doc))
	copy(out, doc)
	return out
}
