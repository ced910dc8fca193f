// Package docstore - тонкий слой над документным хранилищем:
// get/put/update/delete по id, выборки по равенству с сортировкой,
// атомарные батчи и live-подписки, которые заново отдают весь набор.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrClosed        = errors.New("store closed")
	ErrInvalidOp     = errors.New("invalid operation")
)

// Filter - условие по полю (допускается путь через точку):
// равенство Value, либо совпадение с любым из In, если In задан
type Filter struct {
	Field string
	Value interface{}
	In    []interface{}
}

func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

func In(field string, values ...interface{}) Filter {
	return Filter{Field: field, In: values}
}

type Query struct {
	Collection string
	Where      []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Mutation - частичное обновление документа.
// SetOnInsert применяется только когда Upsert создает документ.
type Mutation struct {
	Set         bson.M
	Inc         bson.M
	SetOnInsert bson.M
	Upsert      bool
}

func (m Mutation) empty() bool {
	return len(m.Set) == 0 && len(m.Inc) == 0 && len(m.SetOnInsert) == 0
}

type OpKind int

const (
	OpPut OpKind = iota
	OpCreate
	OpApply
	OpDelete
)

// Op - одна запись внутри Batch
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Doc        interface{}
	Mutation   Mutation
}

func PutOp(collection, id string, doc interface{}) Op {
	return Op{Kind: OpPut, Collection: collection, ID: id, Doc: doc}
}

func CreateOp(collection, id string, doc interface{}) Op {
	return Op{Kind: OpCreate, Collection: collection, ID: id, Doc: doc}
}

func ApplyOp(collection, id string, m Mutation) Op {
	return Op{Kind: OpApply, Collection: collection, ID: id, Mutation: m}
}

func DeleteOp(collection, id string) Op {
	return Op{Kind: OpDelete, Collection: collection, ID: id}
}

// SnapshotFunc получает полный набор документов запроса после каждого изменения.
// Вызовы для одной подписки идут последовательно, в порядке записей хранилища.
type SnapshotFunc func(docs []bson.Raw)

// Subscription - хэндл live-подписки. Close идемпотентен.
type Subscription interface {
	Close()
}

type Store interface {
	Get(ctx context.Context, collection, id string) (bson.Raw, error)
	// Create пишет документ только если id еще не занят
	Create(ctx context.Context, collection, id string, doc interface{}) error
	Put(ctx context.Context, collection, id string, doc interface{}) error
	Apply(ctx context.Context, collection, id string, m Mutation) error
	// Delete отсутствующего документа не считается ошибкой
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, q Query) ([]bson.Raw, error)
	// Batch применяет все операции атомарно: либо все, либо ни одной
	Batch(ctx context.Context, ops []Op) error
	Watch(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Decode разбирает один документ в T
func Decode[T any](raw bson.Raw) (*T, error) {
	var v T
	if err := bson.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &v, nil
}

func DecodeAll[T any](raws []bson.Raw) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := Decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// toDocument сериализует doc и проставляет _id
func toDocument(doc interface{}, id string) (bson.D, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	out := make(bson.D, 0, len(d)+1)
	out = append(out, bson.E{Key: "_id", Value: id})
	for _, e := range d {
		if e.Key == "_id" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
