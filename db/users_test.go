package db_test

import (
	"context"
	"testing"

	"SlackScheduler/db"
	"SlackScheduler/db/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	store := db.NewUserStore(dbtest.Open(t))
	ctx := context.Background()

	user, err := store.CreateSession(ctx)
	require.NoError(t, err)
	assert.Contains(t, user.UserID, "user_")
	assert.NotEmpty(t, user.SessionID)

	found, err := store.UserBySession(ctx, user.SessionID)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, found.UserID)
	assert.False(t, found.LastActive.Before(user.LastActive))

	_, err = store.UserBySession(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestOpenSQLite(t *testing.T) {
	conn, err := db.Open(db.Options{Driver: "sqlite", DSN: ":memory:", MaxRetries: 1})
	require.NoError(t, err)
	assert.NoError(t, db.Close(conn))

	_, err = db.Open(db.Options{Driver: "oracle"})
	assert.Error(t, err)
}
