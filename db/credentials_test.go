package db_test

import (
	"context"
	"testing"
	"time"

	"SlackScheduler/db"
	"SlackScheduler/db/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialUpsertAndGet(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewCredentialStore(conn, dbtest.Cipher(t))
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.Upsert(ctx, db.Credential{
		TeamID:       "T1",
		UserID:       "user_1",
		TeamName:     "Acme",
		AccessToken:  "xoxe.xoxp-access",
		RefreshToken: "xoxe-refresh",
		ExpiresAt:    expires,
		TokenType:    "bot",
	}))

	var raw db.Credential
	require.NoError(t, conn.Where("team_id = ?", "T1").First(&raw).Error)
	assert.NotEqual(t, "xoxe.xoxp-access", raw.AccessToken, "tokens must be encrypted at rest")
	assert.NotEqual(t, "xoxe-refresh", raw.RefreshToken)

	cred, err := store.Get(ctx, "T1", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "xoxe.xoxp-access", cred.AccessToken)
	assert.Equal(t, "xoxe-refresh", cred.RefreshToken)
	assert.True(t, expires.Equal(cred.ExpiresAt))
	assert.Equal(t, "Acme", cred.TeamName)
}

func TestCredentialUpsertOverwritesSameKey(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewCredentialStore(conn, dbtest.Cipher(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T1", UserID: "user_1", AccessToken: "first", RefreshToken: "r1"}))
	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T1", UserID: "user_1", AccessToken: "second"}))
	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T1", UserID: "user_2", AccessToken: "other"}))

	var count int64
	require.NoError(t, conn.Model(&db.Credential{}).Where("team_id = ?", "T1").Count(&count).Error)
	assert.Equal(t, int64(2), count)

	cred, err := store.Get(ctx, "T1", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "second", cred.AccessToken)
	assert.Empty(t, cred.RefreshToken)
}

func TestCredentialDefaultExpiry(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewCredentialStore(conn, dbtest.Cipher(t))
	ctx := context.Background()

	before := time.Now()
	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T1", UserID: "user_1", AccessToken: "a"}))

	cred, err := store.Get(ctx, "T1", "user_1")
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(db.DefaultCredentialLifetime), cred.ExpiresAt, time.Minute)
}

func TestCredentialUpdateTokensAndDelete(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewCredentialStore(conn, dbtest.Cipher(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T1", UserID: "user_1", AccessToken: "old", RefreshToken: "r-old"}))

	newExpiry := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateTokens(ctx, "T1", "user_1", "new", "r-new", newExpiry))

	cred, err := store.Get(ctx, "T1", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "new", cred.AccessToken)
	assert.Equal(t, "r-new", cred.RefreshToken)
	assert.True(t, newExpiry.Equal(cred.ExpiresAt))

	assert.ErrorIs(t, store.UpdateTokens(ctx, "T9", "user_1", "x", "y", newExpiry), db.ErrNotFound)

	removed, err := store.Delete(ctx, "T1", "user_1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "T1", "user_1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.Get(ctx, "T1", "user_1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCredentialListByUserHidesTokens(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewCredentialStore(conn, dbtest.Cipher(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T1", UserID: "user_1", TeamName: "One", AccessToken: "a1"}))
	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T2", UserID: "user_1", TeamName: "Two", AccessToken: "a2"}))
	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T3", UserID: "user_2", AccessToken: "a3"}))

	creds, err := store.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, creds, 2)
	for _, c := range creds {
		assert.Empty(t, c.AccessToken)
		assert.Empty(t, c.RefreshToken)
	}
}

func TestCredentialDeleteIfUnchanged(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewCredentialStore(conn, dbtest.Cipher(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, db.Credential{TeamID: "T1", UserID: "user_1", AccessToken: "a", RefreshToken: "r1"}))
	read, err := store.Get(ctx, "T1", "user_1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	require.NoError(t, store.UpdateTokens(ctx, "T1", "user_1", "b", "r2", time.Now().Add(time.Hour)))

	removed, err := store.DeleteIfUnchanged(ctx, "T1", "user_1", read.UpdatedAt)
	require.NoError(t, err)
	assert.False(t, removed, "a rotated credential must not be invalidated with a stale read")

	current, err := store.Get(ctx, "T1", "user_1")
	require.NoError(t, err)
	assert.Equal(t, "r2", current.RefreshToken)

	removed, err = store.DeleteIfUnchanged(ctx, "T1", "user_1", current.UpdatedAt)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = store.Get(ctx, "T1", "user_1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}
