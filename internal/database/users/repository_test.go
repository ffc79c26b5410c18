package users

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraria-al/libraria/internal/database"
	"github.com/libraria-al/libraria/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_users_" + t.Name() + ".db"

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	repo := NewRepository(db.DB, Defaults{Tier: "standard", MaxConcurrent: 2})

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}

	return repo, cleanup
}

func TestRepository_CreateUserAndTokenLookup(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.CreateUser("arber", "arber@libraria.al")
	require.NoError(t, err)
	require.Len(t, user.Token, 64)

	loaded, err := repo.GetUserByToken(user.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)
	assert.Equal(t, "arber", loaded.Username)

	_, err = repo.GetUserByToken("no-such-token")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_GetGrant_SeedsDefault(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.CreateUser("drita", "drita@libraria.al")
	require.NoError(t, err)

	grant, err := repo.GetGrant(user.ID, entities.LeaseKindEbookRead)
	require.NoError(t, err)
	assert.Equal(t, "standard", grant.Tier)
	assert.Equal(t, 2, grant.MaxConcurrent)

	// Second call returns the same row, not a new seed.
	again, err := repo.GetGrant(user.ID, entities.LeaseKindEbookRead)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, again.ID)
}

func TestRepository_SetGrant_Upserts(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.CreateUser("besnik", "besnik@libraria.al")
	require.NoError(t, err)

	grant, err := repo.SetGrant(user.ID, entities.LeaseKindAudiobookRent, "premium", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, grant.MaxConcurrent)

	updated, err := repo.SetGrant(user.ID, entities.LeaseKindAudiobookRent, "family", 8)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, updated.ID)
	assert.Equal(t, "family", updated.Tier)
	assert.Equal(t, 8, updated.MaxConcurrent)
}
