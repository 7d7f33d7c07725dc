package db_test

import (
	"context"
	"testing"
	"time"

	"SlackScheduler/db"
	"SlackScheduler/db/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createMessage(t *testing.T, store *db.MessageStore, sendAt time.Time) *db.ScheduledMessage {
	t.Helper()
	msg := &db.ScheduledMessage{
		UserID:    "user_1",
		TeamID:    "T1",
		ChannelID: "C1",
		Message:   "hello",
		SendAt:    sendAt,
	}
	require.NoError(t, store.Create(context.Background(), msg))
	return msg
}

func reload(t *testing.T, conn *gorm.DB, id uint) db.ScheduledMessage {
	t.Helper()
	var msg db.ScheduledMessage
	require.NoError(t, conn.First(&msg, id).Error)
	return msg
}

func TestListDueFiltersAndOrders(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewMessageStore(conn)
	ctx := context.Background()
	now := time.Now()

	later := createMessage(t, store, now.Add(-time.Minute))
	earlier := createMessage(t, store, now.Add(-time.Hour))
	createMessage(t, store, now.Add(time.Hour))
	sent := createMessage(t, store, now.Add(-2*time.Hour))
	require.NoError(t, store.MarkSent(ctx, sent.ID, now))

	due, err := store.ListDue(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, earlier.ID, due[0].ID)
	assert.Equal(t, later.ID, due[1].ID)

	limited, err := store.ListDue(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestClaimIsExclusiveUntilLeaseExpires(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewMessageStore(conn)
	ctx := context.Background()
	now := time.Now()
	msg := createMessage(t, store, now.Add(-time.Minute))

	ok, err := store.Claim(ctx, msg.ID, now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, msg.ID, now.Add(time.Second), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a held claim must not be taken twice")

	due, err := store.ListDue(ctx, now.Add(time.Second), 0)
	require.NoError(t, err)
	assert.Empty(t, due, "claimed messages are hidden from other sweeps")

	ok, err = store.Claim(ctx, msg.ID, now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired lease can be taken over")
}

func TestMarkSentOnlyOnce(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewMessageStore(conn)
	ctx := context.Background()
	now := time.Now()
	msg := createMessage(t, store, now.Add(-time.Minute))

	require.NoError(t, store.MarkSent(ctx, msg.ID, now))
	assert.ErrorIs(t, store.MarkSent(ctx, msg.ID, now), db.ErrAlreadySent)

	stored := reload(t, conn, msg.ID)
	assert.True(t, stored.Sent)
	require.NotNil(t, stored.SentAt)
	assert.Nil(t, stored.ClaimedUntil)

	ok, err := store.Claim(ctx, msg.ID, now, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseCountsAttemptsAndDeadLetters(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewMessageStore(conn)
	ctx := context.Background()
	now := time.Now()
	msg := createMessage(t, store, now.Add(-time.Minute))

	_, err := store.Claim(ctx, msg.ID, now, time.Minute)
	require.NoError(t, err)
	dead, err := store.Release(ctx, msg.ID, now, "channel_not_found", true, 2)
	require.NoError(t, err)
	assert.False(t, dead)

	stored := reload(t, conn, msg.ID)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "channel_not_found", stored.LastError)
	assert.Nil(t, stored.ClaimedUntil)

	dead, err = store.Release(ctx, msg.ID, now, "no credential", false, 2)
	require.NoError(t, err)
	assert.False(t, dead)
	assert.Equal(t, 1, reload(t, conn, msg.ID).Attempts, "uncounted failures keep the attempt counter")

	dead, err = store.Release(ctx, msg.ID, now, "channel_not_found", true, 2)
	require.NoError(t, err)
	assert.True(t, dead)

	stored = reload(t, conn, msg.ID)
	assert.True(t, stored.DeadLettered)
	assert.False(t, stored.Sent)

	due, err := store.ListDue(ctx, now, 0)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestReleaseUnlimitedAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewMessageStore(conn)
	ctx := context.Background()
	now := time.Now()
	msg := createMessage(t, store, now.Add(-time.Minute))

	for i := 0; i < 5; i++ {
		dead, err := store.Release(ctx, msg.ID, now, "boom", true, 0)
		require.NoError(t, err)
		assert.False(t, dead)
	}
	assert.Equal(t, 5, reload(t, conn, msg.ID).Attempts)

	_, err := store.Release(ctx, 9999, now, "boom", true, 0)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestListForUserTeamAndDeleteUnsent(t *testing.T) {
	conn := dbtest.Open(t)
	store := db.NewMessageStore(conn)
	ctx := context.Background()
	now := time.Now()

	second := createMessage(t, store, now.Add(2*time.Hour))
	first := createMessage(t, store, now.Add(time.Hour))
	sent := createMessage(t, store, now.Add(-time.Hour))
	require.NoError(t, store.MarkSent(ctx, sent.ID, now))

	messages, err := store.ListForUserTeam(ctx, "user_1", "T1")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, sent.ID, messages[0].ID)
	assert.Equal(t, first.ID, messages[1].ID)
	assert.Equal(t, second.ID, messages[2].ID)

	removed, err := store.DeleteUnsent(ctx, first.ID, "someone_else")
	require.NoError(t, err)
	assert.False(t, removed, "only the owner can cancel")

	removed, err = store.DeleteUnsent(ctx, sent.ID, "user_1")
	require.NoError(t, err)
	assert.False(t, removed, "sent messages cannot be cancelled")

	removed, err = store.DeleteUnsent(ctx, first.ID, "user_1")
	require.NoError(t, err)
	assert.True(t, removed)
}
