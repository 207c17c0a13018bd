package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/firestoretut/personstore/internal/person"
)

// MongoRepo implements a MongoDB-backed Store. Documents use a time-ordered
// string _id so that sorting by (age, _id) keeps insertion order for ties.
type MongoRepo struct {
	col *mongo.Collection
}

type mongoPerson struct {
	ID            string `bson:"_id"`
	person.Person `bson:",inline"`
}

// NewMongoRepo wraps col and makes sure the indexes used by the range and
// match queries exist.
func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: person.FieldAge, Value: 1}}},
		{Keys: bson.D{
			{Key: person.FieldFirstName, Value: 1},
			{Key: person.FieldLastName, Value: 1},
			{Key: person.FieldAge, Value: 1},
		}},
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return nil, fmt.Errorf("create person indexes: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Insert(ctx context.Context, p person.Person) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}
	if _, err := m.col.InsertOne(ctx, mongoPerson{ID: id, Person: p}); err != nil {
		return "", err
	}
	return id, nil
}

func (m *MongoRepo) Query(ctx context.Context, q person.Query) ([]person.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	opts := options.Find()
	if q.OrderBy != "" {
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: 1}, {Key: "_id", Value: 1}})
	}
	cur, err := m.col.Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []person.Document{}
	for cur.Next(ctx) {
		var d mongoPerson
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, person.Document{ID: d.ID, Person: d.Person})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoRepo) MergeUpdate(ctx context.Context, id string, patch person.Patch) error {
	if patch.IsEmpty() {
		return m.exists(ctx, id)
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(patch.Fields())})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return person.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Remove(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return person.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) RemoveField(ctx context.Context, id string, field string) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{field: ""}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return person.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) exists(ctx context.Context, id string) error {
	err := m.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return person.ErrNotFound
	}
	return err
}

// mongoFilter translates the filters; range operators on the same field are
// merged into one sub-document.
func mongoFilter(q person.Query) bson.M {
	filter := bson.M{}
	for _, f := range q.Filters {
		switch f.Op {
		case person.OpEq:
			filter[f.Field] = f.Value
		case person.OpGt, person.OpLt:
			op := "$gt"
			if f.Op == person.OpLt {
				op = "$lt"
			}
			sub, ok := filter[f.Field].(bson.M)
			if !ok {
				sub = bson.M{}
				filter[f.Field] = sub
			}
			sub[op] = f.Value
		}
	}
	return filter
}
