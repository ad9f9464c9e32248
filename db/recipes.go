package db

import (
	"context"
	"errors"

	"recipeshare/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRecipes is the recipe store backed by the recipes collection.
type MongoRecipes struct {
	coll *mongo.Collection
}

func NewMongoRecipes(m *Mongo) *MongoRecipes {
	return &MongoRecipes{coll: m.Recipes}
}

func (s *MongoRecipes) ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Recipe, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"author": author}, OptionsFindLatest())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recipes []models.Recipe
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	return recipes, nil
}

func (s *MongoRecipes) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	var r models.Recipe
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoRecipes) Insert(ctx context.Context, r *models.Recipe) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.Version = 1
	_, err := s.coll.InsertOne(ctx, r)
	return err
}

// Save replaces the stored recipe only if its version still equals r.Version,
// then bumps r.Version. A lost race yields ErrStale, a deleted recipe ErrNotFound.
func (s *MongoRecipes) Save(ctx context.Context, r *models.Recipe) error {
	expected := r.Version
	next := r.Clone()
	next.Version = expected + 1

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID, "version": expected}, next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": r.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStale
	}

	r.Version = next.Version
	return nil
}

func (s *MongoRecipes) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
