package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID        primitive.ObjectID `bson:"_id"       json:"id"`
	Author    primitive.ObjectID `bson:"author"    json:"author"`
	Text      string             `bson:"text"      json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Recipe struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"      json:"id"`
	Title        string               `bson:"title"              json:"title"`
	Description  string               `bson:"description"        json:"description"`
	Ingredients  []string             `bson:"ingredients"        json:"ingredients"`
	Instructions []string             `bson:"instructions"       json:"instructions"`
	Rating       float64              `bson:"rating"             json:"rating"`
	Voters       []primitive.ObjectID `bson:"ratingCount"        json:"ratingCount"`
	Author       primitive.ObjectID   `bson:"author"             json:"author"`
	SharedWith   []primitive.ObjectID `bson:"sharedWith"         json:"sharedWith"`
	Comments     []Comment            `bson:"comments"           json:"comments"`
	ImageURL     string               `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt"          json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"          json:"updatedAt"`
	Version      int64                `bson:"version"            json:"-"`
}

// HasVoter reports whether id is in the rating voter set.
func (r *Recipe) HasVoter(id primitive.ObjectID) bool {
	return containsID(r.Voters, id)
}

// IsSharedWith reports whether id is in the shared-with set.
func (r *Recipe) IsSharedWith(id primitive.ObjectID) bool {
	return containsID(r.SharedWith, id)
}

// Clone returns a deep copy that can be mutated without touching r.
func (r *Recipe) Clone() *Recipe {
	c := *r
	c.Ingredients = cloneSlice(r.Ingredients)
	c.Instructions = cloneSlice(r.Instructions)
	c.Voters = cloneSlice(r.Voters)
	c.SharedWith = cloneSlice(r.SharedWith)
	c.Comments = cloneSlice(r.Comments)
	return &c
}

// cloneSlice copies s, keeping nil and empty apart so JSON still renders [].
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// UserRef is the resolved form of a user id inside a response.
type UserRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	Author    UserRef            `json:"author"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"createdAt"`
}

// RecipeView is a Recipe with author and comment authors resolved to names.
// Its Author and Comments fields shadow the embedded ones in JSON output.
type RecipeView struct {
	Recipe
	Author   UserRef       `json:"author"`
	Comments []CommentView `json:"comments"`
}
