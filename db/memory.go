package db

import (
	"context"
	"sort"
	"sync"

	"recipeshare/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUsers is an in-process identity store used when no MongoDB URI is
// configured and as a fake in tests. Safe for concurrent use.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]models.User
	byEmail map[string]primitive.ObjectID
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    make(map[primitive.ObjectID]models.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

func (s *MemoryUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	if _, exists := s.byEmail[u.Email]; exists {
		return ErrDuplicateKey
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.byID[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}

func (s *MemoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUsers) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []models.User{}
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if u, ok := s.byID[id]; ok && !seen[id] {
			seen[id] = true
			users = append(users, u)
		}
	}
	return users, nil
}

// MemoryRecipes is the in-process counterpart of MongoRecipes, with the same
// versioned Save semantics.
type MemoryRecipes struct {
	mu   sync.RWMutex
	data map[primitive.ObjectID]*models.Recipe
}

func NewMemoryRecipes() *MemoryRecipes {
	return &MemoryRecipes{data: make(map[primitive.ObjectID]*models.Recipe)}
}

func (s *MemoryRecipes) ListByAuthor(_ context.Context, author primitive.ObjectID) ([]models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipes := []models.Recipe{}
	for _, r := range s.data {
		if r.Author == author {
			recipes = append(recipes, *r.Clone())
		}
	}
	sort.Slice(recipes, func(i, j int) bool {
		return recipes[i].CreatedAt.After(recipes[j].CreatedAt)
	})
	return recipes, nil
}

func (s *MemoryRecipes) FindByID(_ context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryRecipes) Insert(_ context.Context, r *models.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if _, exists := s.data[r.ID]; exists {
		return ErrDuplicateKey
	}
	r.Version = 1
	s.data[r.ID] = r.Clone()
	return nil
}

func (s *MemoryRecipes) Save(_ context.Context, r *models.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[r.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != r.Version {
		return ErrStale
	}

	r.Version++
	s.data[r.ID] = r.Clone()
	return nil
}

func (s *MemoryRecipes) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}
