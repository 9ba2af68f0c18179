package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/campusmatch/backend/internal/app"
	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/repository"
)

const maxContentLength = 1000

// Delivery pushes a persisted message to live connections. Implemented by
// the realtime router; delivery is fire-and-forget and must not fail the
// send.
type Delivery interface {
	MessageCreated(msg *db.Message)
}

// Conversation summarizes one active match for the conversation list.
type Conversation struct {
	Match       db.Match
	Partner     db.User
	LastMessage *db.Message
	Unread      int64
	UpdatedAt   time.Time
}

// HistoryPage is one page of a conversation, oldest first.
type HistoryPage struct {
	Messages  []db.Message
	NextToken *string
	Total     int64
}

// Service implements chat sending, delivery hand-off, read-state and the
// conversation read paths on top of the repositories.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
	delivery Delivery
}

// NewChatService creates a new chat service with dependencies from AppContext.
// delivery receives every persisted message for realtime fan-out.
func NewChatService(appCtx *app.AppContext, delivery Delivery) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		delivery: delivery,
	}
}

// SendMessage validates, persists and delivers one chat message. Both entry
// points (HTTP and the realtime channel) run through here and behave
// identically; only the acknowledgment transport differs.
//
// Validation is fail-fast, each step a distinct rejection:
//  1. content present and non-blank after trimming
//  2. content within the length cap
//  3. sender and recipient differ
//  4. the match exists, is active, and its stored pair equals
//     {sender, recipient} exactly
//
// On success the message is persisted unread and handed to the delivery
// router; an offline recipient is not an error.
func (s *Service) SendMessage(ctx context.Context, senderID, matchID, recipientID, content string) (*db.Message, error) {
	if matchID == "" || recipientID == "" {
		return nil, apperr.Validation("fields_required", "matchId, recipientId and content are required")
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, apperr.Validation("content_empty", "content must not be empty")
	}
	// the cap counts characters, not bytes
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, apperr.Validation("content_too_long", "content must not exceed 1000 characters")
	}
	if senderID == recipientID {
		return nil, apperr.Validation("self_message", "you cannot message yourself")
	}

	if err := s.authorizeMatch(ctx, matchID, senderID, recipientID); err != nil {
		return nil, err
	}

	msg := &db.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		MatchID:     matchID,
		Content:     trimmed,
		Read:        false,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperr.Map(err)
	}

	s.appCtx.RedisCache.BumpUnreadCount(ctx, recipientID, matchID)
	s.delivery.MessageCreated(msg)

	return msg, nil
}

// MarkRead flips every unread message addressed to the user in the match to
// read and returns the count. Idempotent: a conversation with nothing
// unread yields zero, not an error. A blocked match refuses read-state
// changes just as it refuses sends and reads.
func (s *Service) MarkRead(ctx context.Context, userID, matchID string) (int64, error) {
	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return 0, err
	}
	if match.Status != db.MatchActive {
		return 0, apperr.Forbidden("match_blocked", "this conversation is blocked")
	}
	if !match.Has(userID) {
		return 0, apperr.Forbidden("not_participant", "you do not have access to this conversation")
	}

	count, err := s.messages.MarkRead(ctx, matchID, userID)
	if err != nil {
		return 0, apperr.Map(err)
	}

	if err := s.appCtx.RedisCache.ResetUnreadCount(ctx, userID, matchID); err != nil {
		s.appCtx.Logger.Warn("failed to reset unread cache", "user", userID, "match", matchID, "err", err)
	}

	return count, nil
}

// Conversations lists the user's active matches with partner, last message
// and unread count, ordered by last activity.
//
// Unread counts are cache-first: Redis (1h TTL) with a DB fallback that
// repopulates the cache, mirroring the counter strategy used elsewhere in
// the app.
func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	matches, err := s.matches.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	conversations := make([]Conversation, 0, len(matches))
	for _, m := range matches {
		partner, err := s.users.FindByID(ctx, m.Partner(userID))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		} else if err != nil {
			return nil, apperr.Map(err)
		}
		if !partner.Active {
			continue
		}

		last, err := s.messages.LastForMatch(ctx, m.ID)
		if err != nil {
			return nil, apperr.Map(err)
		}

		unread, err := s.unreadCount(ctx, userID, m.ID)
		if err != nil {
			return nil, err
		}

		updatedAt := m.CreatedAt
		if last != nil {
			updatedAt = last.CreatedAt
		}

		conversations = append(conversations, Conversation{
			Match:       m,
			Partner:     *partner,
			LastMessage: last,
			Unread:      unread,
			UpdatedAt:   updatedAt,
		})
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

// History returns one page of the conversation. Access rules match
// SendMessage: the caller must be a participant of an existing match, and a
// blocked match refuses reads as well.
func (s *Service) History(ctx context.Context, userID, matchID string, paginationToken *string, limit int) (*HistoryPage, error) {
	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != db.MatchActive {
		return nil, apperr.Forbidden("match_blocked", "this conversation is blocked")
	}
	if !match.Has(userID) {
		return nil, apperr.Forbidden("not_participant", "you do not have access to this conversation")
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	page, nextToken, err := s.messages.History(ctx, matchID, paginationToken, limit)
	if err != nil {
		return nil, apperr.Validation("bad_cursor", "invalid pagination token")
	}

	total, err := s.messages.CountForMatch(ctx, matchID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	// repository pages newest-first; clients render oldest-first
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	return &HistoryPage{Messages: page, NextToken: nextToken, Total: total}, nil
}

// unreadCount is cache-first with DB fallback, repopulating on miss.
func (s *Service) unreadCount(ctx context.Context, userID, matchID string) (int64, error) {
	if cached, ok, err := s.appCtx.RedisCache.GetUnreadCount(ctx, userID, matchID); err == nil && ok {
		return cached, nil
	}

	count, err := s.messages.CountUnread(ctx, matchID, userID)
	if err != nil {
		return 0, apperr.Map(err)
	}
	if err := s.appCtx.RedisCache.SetUnreadCount(ctx, userID, matchID, count); err != nil {
		s.appCtx.Logger.Warn("failed to cache unread count", "user", userID, "match", matchID, "err", err)
	}
	return count, nil
}

func (s *Service) findMatch(ctx context.Context, matchID string) (*db.Match, error) {
	match, err := s.matches.FindByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("match_not_found", "conversation not found")
	} else if err != nil {
		return nil, apperr.Map(err)
	}
	return match, nil
}

// authorizeMatch enforces the exact-pair rule: the match must exist, be
// active, and its stored participants must equal {sender, recipient}.
// Neither substitution nor impersonation is permitted.
func (s *Service) authorizeMatch(ctx context.Context, matchID, senderID, recipientID string) error {
	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if match.Status != db.MatchActive {
		return apperr.Forbidden("match_blocked", "this conversation is blocked")
	}

	a, b := db.NormalizePair(senderID, recipientID)
	if match.UserA != a || match.UserB != b {
		return apperr.Forbidden("not_participant", "you cannot send messages in this conversation")
	}
	return nil
}
