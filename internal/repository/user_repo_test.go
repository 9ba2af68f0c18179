package repository_test

import (
	"context"
	"testing"

	"github.com/campusmatch/backend/internal/db"
	"github.com/campusmatch/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, repo *repository.UserRepository, username string, active bool) *db.User {
	t.Helper()
	user := &db.User{
		Username:     username,
		Email:        username + "@campus.edu",
		PasswordHash: "x",
		Active:       active,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

// TestCreate_DeactivatedPersists guards the Active column: it must round
// trip an explicit false, not be coerced by a column default on insert.
func TestCreate_DeactivatedPersists(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	dormant := createUser(t, repo, "dormant", false)

	stored, err := repo.FindByID(ctx, dormant.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	candidates, err := repo.FindCandidates(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindCandidates_Exclusions(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	a := createUser(t, repo, "alex", true)
	b := createUser(t, repo, "bea", true)
	c := createUser(t, repo, "caro", true)
	createUser(t, repo, "dormant", false)

	candidates, err := repo.FindCandidates(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, c.ID, candidates[0].ID)
}

func TestUserDelete_Cascades(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	users := repository.NewUserRepository(dbase)
	interactions := repository.NewInteractionRepository(dbase)
	matches := repository.NewMatchRepository(dbase)
	messages := repository.NewMessageRepository(dbase)

	a := createUser(t, users, "alex", true)
	b := createUser(t, users, "bea", true)

	_, err := interactions.Create(ctx, a.ID, b.ID, db.InteractionLike)
	require.NoError(t, err)
	_, err = interactions.Create(ctx, b.ID, a.ID, db.InteractionLike)
	require.NoError(t, err)
	match, _, err := matches.CreateOrFetch(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, messages.Create(ctx, &db.Message{
		SenderID: a.ID, RecipientID: b.ID, MatchID: match.ID, Content: "hi",
	}))

	require.NoError(t, users.Delete(ctx, a.ID))

	var count int64
	dbase.Model(&db.Interaction{}).Count(&count)
	assert.Equal(t, int64(0), count)
	dbase.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(0), count)
	dbase.Model(&db.Message{}).Count(&count)
	assert.Equal(t, int64(0), count)

	_, err = users.FindByID(ctx, a.ID)
	assert.Error(t, err)
	_, err = users.FindByID(ctx, b.ID)
	assert.NoError(t, err)
}
