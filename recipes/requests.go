package recipes

import (
	"fmt"
	"strings"

	"recipeshare/common"
)

// RecipeFields is the body of create and update requests. All four fields
// are required.
type RecipeFields struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

func (f *RecipeFields) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)

	if f.Title == "" {
		return fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	if f.Description == "" {
		return fmt.Errorf("description is required: %w", common.ErrValidation)
	}

	var err error
	if f.Ingredients, err = cleanList("ingredients", f.Ingredients); err != nil {
		return err
	}
	if f.Instructions, err = cleanList("instructions", f.Instructions); err != nil {
		return err
	}
	return nil
}

// cleanList trims entries and rejects empty lists and blank entries.
func cleanList(field string, items []string) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%s are required: %w", field, common.ErrValidation)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("%s[%d] is empty: %w", field, i, common.ErrValidation)
		}
		out = append(out, item)
	}
	return out, nil
}

type ShareRequest struct {
	Email string `json:"email"`
}

func (r *ShareRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return fmt.Errorf("email is required: %w", common.ErrValidation)
	}
	return nil
}

// RateRequest only checks presence; the range is checked once the recipe is
// known to exist.
type RateRequest struct {
	Rating *float64 `json:"rating"`
}

func (r *RateRequest) Validate() error {
	if r.Rating == nil {
		return fmt.Errorf("rating is required: %w", common.ErrValidation)
	}
	return nil
}

type CommentRequest struct {
	Text string `json:"text"`
}

func (r *CommentRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyComment
	}
	return nil
}
