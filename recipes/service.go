// Package recipes implements the recipe lifecycle: ownership checks on
// writes, sharing, rating and comments, plus the HTTP handlers over them.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"recipeshare/common"
	"recipeshare/db"
	"recipeshare/models"
	"recipeshare/mq"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating = 0
	MaxRating = 5

	// maxSaveAttempts bounds the read-decide-write retries after a stale save.
	maxSaveAttempts = 5
)

var (
	ErrRecipeNotFound = fmt.Errorf("recipe not found: %w", common.ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user not found: %w", common.ErrNotFound)
	ErrInvalidCaller  = fmt.Errorf("invalid caller identity: %w", common.ErrUnauthorized)
	ErrAlreadyShared  = fmt.Errorf("recipe already shared with this user: %w", common.ErrConflict)
	ErrOwnRecipe      = fmt.Errorf("you cannot rate your own recipe: %w", common.ErrConflict)
	ErrAlreadyRated   = fmt.Errorf("you have already rated this recipe: %w", common.ErrConflict)
	ErrInvalidRating  = fmt.Errorf("rating must be a number between %d and %d: %w", MinRating, MaxRating, common.ErrValidation)
	ErrEmptyComment   = fmt.Errorf("comment text is required: %w", common.ErrValidation)
)

func errNotAuthorized(action string) error {
	return fmt.Errorf("you are not authorized to %s this recipe: %w", action, common.ErrForbidden)
}

// Store persists recipes. Save must fail with db.ErrStale when the stored
// version differs from the one passed in.
type Store interface {
	ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Recipe, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error)
	Insert(ctx context.Context, r *models.Recipe) error
	Save(ctx context.Context, r *models.Recipe) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserDirectory resolves users for sharing and for author names.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type Service struct {
	recipes Store
	users   UserDirectory
	events  mq.Emitter
	now     func() time.Time
}

func NewService(recipes Store, users UserDirectory, events mq.Emitter) *Service {
	if events == nil {
		events = mq.Nop{}
	}
	return &Service{recipes: recipes, users: users, events: events, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the caller's own recipes with the author name resolved.
func (s *Service) List(ctx context.Context, callerID string) ([]models.RecipeView, error) {
	caller, err := parseCaller(callerID)
	if err != nil {
		return nil, err
	}

	recipes, err := s.recipes.ListByAuthor(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	return s.resolve(ctx, recipes)
}

// Get returns any recipe by id. Reads are not limited to the author or the
// users it was shared with.
func (s *Service) Get(ctx context.Context, recipeID string) (*models.RecipeView, error) {
	id, err := parseRecipeID(recipeID)
	if err != nil {
		return nil, err
	}

	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	views, err := s.resolve(ctx, []models.Recipe{*r})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) Create(ctx context.Context, callerID string, fields RecipeFields) (*models.Recipe, error) {
	caller, err := parseCaller(callerID)
	if err != nil {
		return nil, err
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	r := &models.Recipe{
		Title:        fields.Title,
		Description:  fields.Description,
		Ingredients:  fields.Ingredients,
		Instructions: fields.Instructions,
		Rating:       0,
		Voters:       []primitive.ObjectID{},
		Author:       caller,
		SharedWith:   []primitive.ObjectID{},
		Comments:     []models.Comment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.recipes.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("inserting recipe: %w", err)
	}

	slog.InfoContext(ctx, "recipe created", "recipeId", r.ID.Hex(), "author", callerID)
	return r, nil
}

// Update overwrites title, description, ingredients and instructions. Rating,
// voters, sharing and comments are left alone. Ownership is checked before
// the fields are validated.
func (s *Service) Update(ctx context.Context, callerID, recipeID string, fields RecipeFields) (*models.Recipe, error) {
	caller, id, err := parseIDs(callerID, recipeID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(r *models.Recipe) error {
		if r.Author != caller {
			return errNotAuthorized("edit")
		}
		if err := fields.Validate(); err != nil {
			return err
		}
		r.Title = fields.Title
		r.Description = fields.Description
		r.Ingredients = fields.Ingredients
		r.Instructions = fields.Instructions
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, callerID, recipeID string) error {
	caller, id, err := parseIDs(callerID, recipeID)
	if err != nil {
		return err
	}

	r, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if r.Author != caller {
		return errNotAuthorized("delete")
	}

	if err := s.recipes.Delete(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("deleting recipe: %w", err)
	}

	slog.InfoContext(ctx, "recipe deleted", "recipeId", recipeID, "author", callerID)
	return nil
}

// Share grants the user registered under targetEmail access to the recipe.
func (s *Service) Share(ctx context.Context, callerID, recipeID, targetEmail string) (*models.Recipe, error) {
	caller, id, err := parseIDs(callerID, recipeID)
	if err != nil {
		return nil, err
	}

	var target *models.User
	r, err := s.mutate(ctx, id, func(r *models.Recipe) error {
		if r.Author != caller {
			return errNotAuthorized("share")
		}
		if target == nil {
			u, err := s.users.FindByEmail(ctx, targetEmail)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("looking up user: %w", err)
			}
			target = u
		}
		if r.IsSharedWith(target.ID) {
			return ErrAlreadyShared
		}
		r.SharedWith = append(r.SharedWith, target.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, mq.EventShared, r, callerID, target.ID.Hex())
	return r, nil
}

// Rate records the caller's vote and recomputes the rating as
//
//	rating = (previous rating + value) / number of voters
//
// The recipe must exist before the value is range checked. A repeat voter is
// only turned away while the current rating is above zero.
func (s *Service) Rate(ctx context.Context, callerID, recipeID string, value float64) (*models.Recipe, error) {
	caller, id, err := parseIDs(callerID, recipeID)
	if err != nil {
		return nil, err
	}

	r, err := s.mutate(ctx, id, func(r *models.Recipe) error {
		if math.IsNaN(value) || value < MinRating || value > MaxRating {
			return ErrInvalidRating
		}
		if r.Author == caller {
			return ErrOwnRecipe
		}
		if r.Rating > 0 && r.HasVoter(caller) {
			return ErrAlreadyRated
		}
		r.Voters = append(r.Voters, caller)
		r.Rating = (r.Rating + value) / float64(len(r.Voters))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, mq.EventRated, r, callerID, r.Author.Hex())
	return r, nil
}

// Comment appends a comment by the caller. Any authenticated user may comment.
func (s *Service) Comment(ctx context.Context, callerID, recipeID, text string) (*models.Recipe, error) {
	caller, id, err := parseIDs(callerID, recipeID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	r, err := s.mutate(ctx, id, func(r *models.Recipe) error {
		r.Comments = append(r.Comments, models.Comment{
			ID:        primitive.NewObjectID(),
			Author:    caller,
			Text:      text,
			CreatedAt: s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.Author != caller {
		s.emit(ctx, mq.EventCommented, r, callerID, r.Author.Hex())
	}
	return r, nil
}

// SetImage stores imageURL on the recipe and returns the URL it replaced.
func (s *Service) SetImage(ctx context.Context, callerID, recipeID, imageURL string) (*models.Recipe, string, error) {
	caller, id, err := parseIDs(callerID, recipeID)
	if err != nil {
		return nil, "", err
	}

	var previous string
	r, err := s.mutate(ctx, id, func(r *models.Recipe) error {
		if r.Author != caller {
			return errNotAuthorized("edit")
		}
		previous = r.ImageURL
		r.ImageURL = imageURL
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return r, previous, nil
}

// CanEdit reports whether callerID is the author of recipeID.
func (s *Service) CanEdit(ctx context.Context, callerID, recipeID string) error {
	caller, id, err := parseIDs(callerID, recipeID)
	if err != nil {
		return err
	}
	r, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if r.Author != caller {
		return errNotAuthorized("edit")
	}
	return nil
}

// mutate loads the recipe, applies change and saves it with a version check,
// starting over when another writer got there first.
func (s *Service) mutate(ctx context.Context, id primitive.ObjectID, change func(r *models.Recipe) error) (*models.Recipe, error) {
	for attempt := 1; ; attempt++ {
		r, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := change(r); err != nil {
			return nil, err
		}
		r.UpdatedAt = s.now()

		err = s.recipes.Save(ctx, r)
		switch {
		case err == nil:
			return r, nil
		case errors.Is(err, db.ErrNotFound):
			return nil, ErrRecipeNotFound
		case errors.Is(err, db.ErrStale) && attempt < maxSaveAttempts:
			slog.DebugContext(ctx, "stale recipe write, retrying", "recipeId", id.Hex(), "attempt", attempt)
			continue
		case errors.Is(err, db.ErrStale):
			return nil, fmt.Errorf("recipe %s kept changing after %d attempts", id.Hex(), attempt)
		default:
			return nil, fmt.Errorf("saving recipe: %w", err)
		}
	}
}

func (s *Service) find(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	r, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("loading recipe: %w", err)
	}
	return r, nil
}

// resolve swaps author and comment-author ids for {id, name} pairs. Users
// that no longer exist resolve to an empty name.
func (s *Service) resolve(ctx context.Context, recipes []models.Recipe) ([]models.RecipeView, error) {
	var ids []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, r := range recipes {
		add(r.Author)
		for _, c := range r.Comments {
			add(c.Author)
		}
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving users: %w", err)
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	ref := func(id primitive.ObjectID) models.UserRef {
		return models.UserRef{ID: id, Name: names[id]}
	}

	views := make([]models.RecipeView, 0, len(recipes))
	for _, r := range recipes {
		comments := make([]models.CommentView, 0, len(r.Comments))
		for _, c := range r.Comments {
			comments = append(comments, models.CommentView{ID: c.ID, Author: ref(c.Author), Text: c.Text, CreatedAt: c.CreatedAt})
		}
		views = append(views, models.RecipeView{Recipe: r, Author: ref(r.Author), Comments: comments})
	}
	return views, nil
}

func (s *Service) emit(ctx context.Context, method string, r *models.Recipe, actorID, recipient string) {
	err := s.events.Emit(ctx, mq.Index{
		EntityType: "recipe",
		Method:     method,
		EntityId:   r.ID.Hex(),
		ActorId:    actorID,
		Recipient:  recipient,
		Title:      r.Title,
		At:         s.now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "emitting recipe event", "method", method, "recipeId", r.ID.Hex(), "error", err)
	}
}

func parseCaller(callerID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(callerID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidCaller
	}
	return id, nil
}

// parseRecipeID treats malformed ids as unknown recipes.
func parseRecipeID(recipeID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(recipeID)
	if err != nil {
		return primitive.NilObjectID, ErrRecipeNotFound
	}
	return id, nil
}

func parseIDs(callerID, recipeID string) (primitive.ObjectID, primitive.ObjectID, error) {
	caller, err := parseCaller(callerID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	id, err := parseRecipeID(recipeID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return caller, id, nil
}
