package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/campusmatch/backend/internal/db"
	"github.com/campusmatch/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMessages(t *testing.T, dbase *gorm.DB, matchID string, n int) []db.Message {
	t.Helper()
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Duration(n) * time.Minute)
	msgs := make([]db.Message, 0, n)
	for i := 0; i < n; i++ {
		msg := db.Message{
			SenderID:    "u1",
			RecipientID: "u2",
			MatchID:     matchID,
			Content:     fmt.Sprintf("message %d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, dbase.Create(&msg).Error)
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestHistoryPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seeded := seedMessages(t, dbase, "m1", 5)

	// first page: newest two
	page, next, err := repo.History(ctx, "m1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, seeded[4].ID, page[0].ID)
	assert.Equal(t, seeded[3].ID, page[1].ID)

	// second page continues past the cursor
	page, next, err = repo.History(ctx, "m1", next, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, seeded[2].ID, page[0].ID)

	// last page has no further token
	page, next, err = repo.History(ctx, "m1", next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, next)
	assert.Equal(t, seeded[0].ID, page[0].ID)
}

// TestHistoryPagination_SubMillisecondTimestamps walks rows whose
// timestamps differ only below the millisecond. The cursor must carry the
// full precision; a coarser cursor would skip same-millisecond neighbors.
func TestHistoryPagination_SubMillisecondTimestamps(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		msg := db.Message{
			ID:          fmt.Sprintf("tight-%d", i),
			SenderID:    "u1",
			RecipientID: "u2",
			MatchID:     "m1",
			Content:     fmt.Sprintf("message %d", i),
			CreatedAt:   base.Add(time.Duration(i) * 100 * time.Microsecond),
		}
		require.NoError(t, dbase.Create(&msg).Error)
		ids = append(ids, msg.ID)
	}

	collected := make([]string, 0, 3)
	var next *string
	for {
		page, token, err := repo.History(ctx, "m1", next, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		collected = append(collected, page[0].ID)
		if token == nil {
			break
		}
		next = token
	}

	// newest first, nothing skipped
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, collected)
}

func TestHistory_InvalidToken(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	bad := "not-base64!"
	_, _, err := repo.History(ctx, "m1", &bad, 10)
	assert.Error(t, err)
}

func TestLastForMatch(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	last, err := repo.LastForMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, last)

	seeded := seedMessages(t, dbase, "m1", 3)
	last, err = repo.LastForMatch(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, seeded[2].ID, last.ID)
}

func TestMarkRead_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessages(t, dbase, "m1", 3)

	unread, err := repo.CountUnread(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	count, err := repo.MarkRead(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// nothing left unread: no-op success, zero count
	count, err = repo.MarkRead(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	unread, err = repo.CountUnread(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestMarkRead_OnlyRecipient(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	seedMessages(t, dbase, "m1", 2)

	// sender marking "their" side flips nothing
	count, err := repo.MarkRead(ctx, "m1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
