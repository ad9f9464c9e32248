package recipes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"recipeshare/common"
	"recipeshare/db"
	"recipeshare/models"
	"recipeshare/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	svc     *Service
	recipes *db.MemoryRecipes
	users   *db.MemoryUsers
	events  *recordingEmitter
	ann     *models.User
	bob     *models.User
	cat     *models.User
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []mq.Index
	err    error
}

func (e *recordingEmitter) Emit(_ context.Context, content mq.Index) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, content)
	return e.err
}

func (e *recordingEmitter) all() []mq.Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]mq.Index(nil), e.events...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		recipes: db.NewMemoryRecipes(),
		users:   db.NewMemoryUsers(),
		events:  &recordingEmitter{},
	}
	f.svc = NewService(f.recipes, f.users, f.events)

	f.ann = &models.User{Name: "Ann", Email: "ann@example.com"}
	f.bob = &models.User{Name: "Bob", Email: "bob@example.com"}
	f.cat = &models.User{Name: "Cat", Email: "cat@example.com"}
	for _, u := range []*models.User{f.ann, f.bob, f.cat} {
		require.NoError(t, f.users.Create(ctx, u))
	}
	return f
}

func soup() RecipeFields {
	return RecipeFields{
		Title:        "Soup",
		Description:  "Warm and simple",
		Ingredients:  []string{"water", "salt"},
		Instructions: []string{"boil water", "add salt"},
	}
}

func (f *fixture) createSoup(t *testing.T) *models.Recipe {
	t.Helper()
	r, err := f.svc.Create(context.Background(), f.ann.ID.Hex(), soup())
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	r := f.createSoup(t)

	assert.Equal(t, f.ann.ID, r.Author)
	assert.Zero(t, r.Rating)
	assert.Empty(t, r.Voters)
	assert.Empty(t, r.SharedWith)
	assert.Empty(t, r.Comments)
	assert.False(t, r.ID.IsZero())
}

func TestCreate_RoundTrip(t *testing.T) {
	f := newFixture(t)
	r := f.createSoup(t)

	got, err := f.svc.Get(context.Background(), r.ID.Hex())
	require.NoError(t, err)

	want := soup()
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Ingredients, got.Ingredients)
	assert.Equal(t, want.Instructions, got.Instructions)
	assert.Equal(t, models.UserRef{ID: f.ann.ID, Name: "Ann"}, got.Author)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*RecipeFields){
		"missing title":        func(r *RecipeFields) { r.Title = " " },
		"missing description":  func(r *RecipeFields) { r.Description = "" },
		"missing ingredients":  func(r *RecipeFields) { r.Ingredients = nil },
		"missing instructions": func(r *RecipeFields) { r.Instructions = []string{} },
		"blank ingredient":     func(r *RecipeFields) { r.Ingredients = []string{"water", " "} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fields := soup()
			mutate(&fields)
			_, err := f.svc.Create(ctx, f.ann.ID.Hex(), fields)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	_, err := f.svc.Create(ctx, "garbage", soup())
	assert.ErrorIs(t, err, ErrInvalidCaller)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createSoup(t)
	f.createSoup(t)
	_, err := f.svc.Create(ctx, f.bob.ID.Hex(), soup())
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, f.ann.ID.Hex())
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, "Ann", r.Author.Name)
	}

	none, err := f.svc.List(ctx, f.cat.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	_, err = f.svc.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	_, err := f.svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 4)
	require.NoError(t, err)
	_, err = f.svc.Share(ctx, f.ann.ID.Hex(), r.ID.Hex(), "cat@example.com")
	require.NoError(t, err)

	fields := RecipeFields{
		Title:        "Stew",
		Description:  "Thicker",
		Ingredients:  []string{"beef"},
		Instructions: []string{"simmer"},
	}
	updated, err := f.svc.Update(ctx, f.ann.ID.Hex(), r.ID.Hex(), fields)
	require.NoError(t, err)

	assert.Equal(t, "Stew", updated.Title)
	assert.Equal(t, []string{"beef"}, updated.Ingredients)
	assert.Equal(t, 4.0, updated.Rating)
	assert.Equal(t, []primitive.ObjectID{f.bob.ID}, updated.Voters)
	assert.Equal(t, []primitive.ObjectID{f.cat.ID}, updated.SharedWith)
	assert.Equal(t, f.ann.ID, updated.Author)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	_, err := f.svc.Update(ctx, f.ann.ID.Hex(), primitive.NewObjectID().Hex(), soup())
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	_, err = f.svc.Update(ctx, f.bob.ID.Hex(), r.ID.Hex(), soup())
	assert.ErrorIs(t, err, common.ErrForbidden)

	// Non-authors are refused regardless of the body.
	_, err = f.svc.Update(ctx, f.bob.ID.Hex(), r.ID.Hex(), RecipeFields{})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.svc.Update(ctx, f.ann.ID.Hex(), r.ID.Hex(), RecipeFields{Title: "x"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.bob.ID.Hex(), r.ID.Hex()), common.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.ann.ID.Hex(), primitive.NewObjectID().Hex()), ErrRecipeNotFound)

	require.NoError(t, f.svc.Delete(ctx, f.ann.ID.Hex(), r.ID.Hex()))
	_, err := f.svc.Get(ctx, r.ID.Hex())
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	shared, err := f.svc.Share(ctx, f.ann.ID.Hex(), r.ID.Hex(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{f.bob.ID}, shared.SharedWith)

	_, err = f.svc.Share(ctx, f.ann.ID.Hex(), r.ID.Hex(), "bob@example.com")
	assert.ErrorIs(t, err, ErrAlreadyShared)
	assert.ErrorIs(t, err, common.ErrConflict)

	got, err := f.svc.Get(ctx, r.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{f.bob.ID}, got.SharedWith)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, mq.EventShared, events[0].Method)
	assert.Equal(t, f.bob.ID.Hex(), events[0].Recipient)
	assert.Equal(t, r.ID.Hex(), events[0].EntityId)
}

func TestShare_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	_, err := f.svc.Share(ctx, f.ann.ID.Hex(), primitive.NewObjectID().Hex(), "bob@example.com")
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	_, err = f.svc.Share(ctx, f.bob.ID.Hex(), r.ID.Hex(), "cat@example.com")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.svc.Share(ctx, f.ann.ID.Hex(), r.ID.Hex(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRate_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	afterBob, err := f.svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, afterBob.Rating)

	afterCat, err := f.svc.Rate(ctx, f.cat.ID.Hex(), r.ID.Hex(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, afterCat.Rating)
	assert.Equal(t, []primitive.ObjectID{f.bob.ID, f.cat.ID}, afterCat.Voters)

	events := f.events.all()
	require.Len(t, events, 2)
	assert.Equal(t, mq.EventRated, events[1].Method)
	assert.Equal(t, f.ann.ID.Hex(), events[1].Recipient)
}

func TestRate_FormulaIsNotATrueMean(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)
	dan := &models.User{Name: "Dan", Email: "dan@example.com"}
	require.NoError(t, f.users.Create(ctx, dan))

	for _, step := range []struct {
		user  *models.User
		value float64
		want  float64
	}{
		{f.bob, 5, 5},   // (0+5)/1
		{f.cat, 4, 4.5}, // (5+4)/2
		{dan, 3, 2.5},   // (4.5+3)/3, the mean of 5,4,3 would be 4
	} {
		got, err := f.svc.Rate(ctx, step.user.ID.Hex(), r.ID.Hex(), step.value)
		require.NoError(t, err)
		assert.InDelta(t, step.want, got.Rating, 1e-9)
	}
}

func TestRate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	_, err := f.svc.Rate(ctx, f.ann.ID.Hex(), r.ID.Hex(), 5)
	assert.ErrorIs(t, err, ErrOwnRecipe)

	_, err = f.svc.Rate(ctx, f.bob.ID.Hex(), primitive.NewObjectID().Hex(), 5)
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	_, err = f.svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 3)
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 3)
	assert.ErrorIs(t, err, ErrAlreadyRated)

	for _, bad := range []float64{-1, 5.5} {
		_, err = f.svc.Rate(ctx, f.cat.ID.Hex(), r.ID.Hex(), bad)
		assert.ErrorIs(t, err, ErrInvalidRating)

		_, err = f.svc.Rate(ctx, f.cat.ID.Hex(), primitive.NewObjectID().Hex(), bad)
		assert.ErrorIs(t, err, ErrRecipeNotFound)
	}

	got, err := f.svc.Get(ctx, r.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{f.bob.ID}, got.Voters)
	assert.NotContains(t, got.Voters, f.ann.ID)
}

func TestRate_RepeatVoterAllowedWhileRatingIsZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	first, err := f.svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 0)
	require.NoError(t, err)
	assert.Zero(t, first.Rating)

	second, err := f.svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 4)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{f.bob.ID, f.bob.ID}, second.Voters)
	assert.Equal(t, 2.0, second.Rating) // (0+4)/2

	_, err = f.svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 4)
	assert.ErrorIs(t, err, ErrAlreadyRated)
}

func TestRate_ConcurrentVotesAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	voters := make([]*models.User, 4)
	for i := range voters {
		voters[i] = &models.User{Name: "voter", Email: primitive.NewObjectID().Hex() + "@example.com"}
		require.NoError(t, f.users.Create(ctx, voters[i]))
	}

	var wg sync.WaitGroup
	for _, v := range voters {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			_, err := f.svc.Rate(ctx, u.ID.Hex(), r.ID.Hex(), 5)
			assert.NoError(t, err)
		}(v)
	}
	wg.Wait()

	got, err := f.svc.Get(ctx, r.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, got.Voters, len(voters))
}

func TestComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	_, err := f.svc.Comment(ctx, f.bob.ID.Hex(), r.ID.Hex(), "  tasty  ")
	require.NoError(t, err)
	_, err = f.svc.Comment(ctx, f.ann.ID.Hex(), r.ID.Hex(), "thanks")
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, r.ID.Hex())
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "tasty", got.Comments[0].Text)
	assert.Equal(t, "Bob", got.Comments[0].Author.Name)
	assert.Equal(t, "Ann", got.Comments[1].Author.Name)

	// The author commenting on their own recipe is not announced.
	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, mq.EventCommented, events[0].Method)

	_, err = f.svc.Comment(ctx, f.bob.ID.Hex(), r.ID.Hex(), " ")
	assert.ErrorIs(t, err, ErrEmptyComment)
	_, err = f.svc.Comment(ctx, f.bob.ID.Hex(), primitive.NewObjectID().Hex(), "hi")
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestSetImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	_, _, err := f.svc.SetImage(ctx, f.bob.ID.Hex(), r.ID.Hex(), "/static/uploads/recipes/x.jpg")
	assert.ErrorIs(t, err, common.ErrForbidden)

	updated, previous, err := f.svc.SetImage(ctx, f.ann.ID.Hex(), r.ID.Hex(), "/static/uploads/recipes/a.jpg")
	require.NoError(t, err)
	assert.Empty(t, previous)
	assert.Equal(t, "/static/uploads/recipes/a.jpg", updated.ImageURL)

	_, previous, err = f.svc.SetImage(ctx, f.ann.ID.Hex(), r.ID.Hex(), "/static/uploads/recipes/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/recipes/a.jpg", previous)
}

func TestEmitFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	r := f.createSoup(t)

	_, err := f.svc.Share(context.Background(), f.ann.ID.Hex(), r.ID.Hex(), "bob@example.com")
	assert.NoError(t, err)
}

// staleStore fails the first n saves as if another writer won the race.
type staleStore struct {
	*db.MemoryRecipes
	failures int
}

func (s *staleStore) Save(ctx context.Context, r *models.Recipe) error {
	if s.failures > 0 {
		s.failures--
		return db.ErrStale
	}
	return s.MemoryRecipes.Save(ctx, r)
}

func TestMutate_RetriesStaleWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createSoup(t)

	store := &staleStore{MemoryRecipes: f.recipes, failures: 2}
	svc := NewService(store, f.users, nil)

	got, err := svc.Rate(ctx, f.bob.ID.Hex(), r.ID.Hex(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Rating)

	store.failures = maxSaveAttempts
	_, err = svc.Rate(ctx, f.cat.ID.Hex(), r.ID.Hex(), 2)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrConflict))
}
