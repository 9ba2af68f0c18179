package chat_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusmatch/backend/internal/app"
	"github.com/campusmatch/backend/internal/cache"
	"github.com/campusmatch/backend/internal/config"
	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/service/chat"
)

//
// Test helpers
//

// captureDelivery records delivered messages in place of the realtime router.
type captureDelivery struct {
	mu       sync.Mutex
	messages []*db.Message
}

func (d *captureDelivery) MessageCreated(msg *db.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
}

func (d *captureDelivery) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

// seedMatch inserts two active users and one active match between them.
//
// Dataset:
//   - alice ↔ bob: matched ("m1")
//   - carol: active but unmatched, used for exact-pair violations
func seedMatch(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	users := []db.User{
		{ID: "alice", Username: "alice", Email: "alice@test.edu", PasswordHash: "x", Active: true},
		{ID: "bob", Username: "bob", Email: "bob@test.edu", PasswordHash: "x", Active: true},
		{ID: "carol", Username: "carol", Email: "carol@test.edu", PasswordHash: "x", Active: true},
	}
	require.NoError(t, gdb.Create(&users).Error)

	match := db.Match{ID: "m1", UserA: "alice", UserB: "bob", Status: db.MatchActive}
	require.NoError(t, gdb.Create(&match).Error)
}

// setupService spins up an in-memory SQLite DB, applies migrations, seeds a
// match, starts a miniredis, and wires a chat Service with a capturing
// delivery sink.
//
// Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*chat.Service, *captureDelivery, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(&db.User{}, &db.Interaction{}, &db.Match{}, &db.Message{}))
	seedMatch(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	delivery := &captureDelivery{}
	appCtx := app.New(dbase, redisCache, logger)
	return chat.NewChatService(appCtx, delivery), delivery, dbase
}

// requireCode asserts that err carries the given machine code.
func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	mapped := apperr.Map(err)
	assert.Equal(t, code, mapped.Code)
}

//
// Tests
//

// TestSendMessagePersistsAndDelivers verifies the happy path: the message
// is stored unread, trimmed, and handed to the delivery sink once.
func TestSendMessagePersistsAndDelivers(t *testing.T) {
	ctx := context.Background()
	svc, delivery, gdb := setupService(t)

	msg, err := svc.SendMessage(ctx, "alice", "m1", "bob", "  hey bob!  ")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hey bob!", msg.Content)
	assert.False(t, msg.Read)
	assert.Equal(t, 1, delivery.count())

	var stored db.Message
	require.NoError(t, gdb.First(&stored, "id = ?", msg.ID).Error)
	assert.Equal(t, "m1", stored.MatchID)
	assert.Equal(t, "bob", stored.RecipientID)
}

// TestSendMessageValidation covers the fail-fast rejections. Nothing is
// persisted or delivered on any of them.
func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc, delivery, gdb := setupService(t)

	_, err := svc.SendMessage(ctx, "alice", "", "bob", "hi")
	requireCode(t, err, "fields_required")

	_, err = svc.SendMessage(ctx, "alice", "m1", "bob", "   ")
	requireCode(t, err, "content_empty")

	_, err = svc.SendMessage(ctx, "alice", "m1", "bob", strings.Repeat("a", 1001))
	requireCode(t, err, "content_too_long")

	_, err = svc.SendMessage(ctx, "alice", "m1", "alice", "hi me")
	requireCode(t, err, "self_message")

	assert.Equal(t, 0, delivery.count())
	var n int64
	require.NoError(t, gdb.Model(&db.Message{}).Count(&n).Error)
	assert.Zero(t, n)
}

// TestSendMessageContentBoundary verifies the cap is inclusive at exactly
// 1000 characters and counts characters, not bytes: multibyte content
// under the cap passes even when its byte length exceeds it.
func TestSendMessageContentBoundary(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.SendMessage(ctx, "alice", "m1", "bob", strings.Repeat("a", 1000))
	require.NoError(t, err)

	// 600 characters, 1200 bytes
	msg, err := svc.SendMessage(ctx, "alice", "m1", "bob", strings.Repeat("é", 600))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 600), msg.Content)

	_, err = svc.SendMessage(ctx, "alice", "m1", "bob", strings.Repeat("é", 1001))
	requireCode(t, err, "content_too_long")
}

// TestSendMessageExactPair verifies that the stored match pair must equal
// {sender, recipient} exactly; neither an outsider sender nor a swapped
// recipient is accepted.
func TestSendMessageExactPair(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	// carol is not part of m1
	_, err := svc.SendMessage(ctx, "carol", "m1", "bob", "let me in")
	requireCode(t, err, "not_participant")

	// alice is, but carol is not the partner on m1
	_, err = svc.SendMessage(ctx, "alice", "m1", "carol", "wrong address")
	requireCode(t, err, "not_participant")

	_, err = svc.SendMessage(ctx, "alice", "missing", "bob", "hi")
	requireCode(t, err, "match_not_found")
}

// TestBlockedMatchRefusesAll verifies that a blocked match refuses every
// chat operation uniformly: sends, history reads and read-state changes.
func TestBlockedMatchRefusesAll(t *testing.T) {
	ctx := context.Background()
	svc, _, gdb := setupService(t)

	_, err := svc.SendMessage(ctx, "alice", "m1", "bob", "before the block")
	require.NoError(t, err)

	require.NoError(t, gdb.Model(&db.Match{}).Where("id = ?", "m1").
		Update("status", db.MatchBlocked).Error)

	_, err = svc.SendMessage(ctx, "alice", "m1", "bob", "hello?")
	requireCode(t, err, "match_blocked")

	_, err = svc.History(ctx, "bob", "m1", nil, 10)
	requireCode(t, err, "match_blocked")

	_, err = svc.MarkRead(ctx, "bob", "m1")
	requireCode(t, err, "match_blocked")
}

// TestMarkRead verifies the read flip and its idempotency: the first call
// reports the flipped count, the second reports zero without error.
func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.SendMessage(ctx, "alice", "m1", "bob", "one")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "alice", "m1", "bob", "two")
	require.NoError(t, err)

	count, err := svc.MarkRead(ctx, "bob", "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = svc.MarkRead(ctx, "bob", "m1")
	require.NoError(t, err)
	assert.Zero(t, count)

	// outsiders cannot touch the read state
	_, err = svc.MarkRead(ctx, "carol", "m1")
	requireCode(t, err, "not_participant")
}

// TestConversationsUnreadCounts verifies the conversation list carries the
// partner, the last message and an unread count that survives the cache
// round trip and resets on MarkRead.
func TestConversationsUnreadCounts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.SendMessage(ctx, "alice", "m1", "bob", "first")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "alice", "m1", "bob", "second")
	require.NoError(t, err)

	conversations, err := svc.Conversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, "alice", conversations[0].Partner.ID)
	require.NotNil(t, conversations[0].LastMessage)
	assert.Equal(t, "second", conversations[0].LastMessage.Content)
	assert.Equal(t, int64(2), conversations[0].Unread)

	// second read comes from the cache and agrees
	conversations, err = svc.Conversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, int64(2), conversations[0].Unread)

	_, err = svc.MarkRead(ctx, "bob", "m1")
	require.NoError(t, err)

	conversations, err = svc.Conversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Zero(t, conversations[0].Unread)

	// the sender has nothing unread in the same conversation
	conversations, err = svc.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Zero(t, conversations[0].Unread)
}

// TestHistoryPagination walks a 5-message conversation in pages of 2 and
// checks ordering, the cursor chain and access control.
func TestHistoryPagination(t *testing.T) {
	ctx := context.Background()
	svc, _, gdb := setupService(t)

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	for i := 1; i <= 5; i++ {
		msg := db.Message{
			ID:          fmt.Sprintf("msg-%d", i),
			SenderID:    "alice",
			RecipientID: "bob",
			MatchID:     "m1",
			Content:     fmt.Sprintf("message %d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, gdb.Create(&msg).Error)
	}

	page1, err := svc.History(ctx, "bob", "m1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page1.Messages, 2)
	assert.Equal(t, int64(5), page1.Total)
	// within a page, oldest first
	assert.Equal(t, "message 4", page1.Messages[0].Content)
	assert.Equal(t, "message 5", page1.Messages[1].Content)
	require.NotNil(t, page1.NextToken)

	page2, err := svc.History(ctx, "bob", "m1", page1.NextToken, 2)
	require.NoError(t, err)
	require.Len(t, page2.Messages, 2)
	assert.Equal(t, "message 2", page2.Messages[0].Content)
	assert.Equal(t, "message 3", page2.Messages[1].Content)
	require.NotNil(t, page2.NextToken)

	page3, err := svc.History(ctx, "bob", "m1", page2.NextToken, 2)
	require.NoError(t, err)
	require.Len(t, page3.Messages, 1)
	assert.Equal(t, "message 1", page3.Messages[0].Content)
	assert.Nil(t, page3.NextToken)

	_, err = svc.History(ctx, "carol", "m1", nil, 2)
	requireCode(t, err, "not_participant")

	bad := "not-a-cursor"
	_, err = svc.History(ctx, "bob", "m1", &bad, 2)
	requireCode(t, err, "bad_cursor")
}
