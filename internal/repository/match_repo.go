package repository

import (
	"context"
	"errors"

	"github.com/campusmatch/backend/internal/db"

	"gorm.io/gorm"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateOrFetch inserts the match for the unordered pair {x, y}, or fetches
// the existing one.
//
// Behavior:
//   - The pair is normalized (user_a < user_b) so the unique index covers
//     (A,B) and (B,A) alike.
//   - On a unique-constraint conflict the existing row is re-read and
//     returned. A race between two concurrent evaluations therefore
//     resolves to the same match on both sides, never an error.
//   - The created flag reports whether this call inserted the row.
//
// Example:
//
//	match, created, err := repo.CreateOrFetch(ctx, "u2", "u1")
func (r *MatchRepository) CreateOrFetch(ctx context.Context, x, y string) (*db.Match, bool, error) {
	a, b := db.NormalizePair(x, y)
	match := db.Match{UserA: a, UserB: b, Status: db.MatchActive}

	err := r.db.WithContext(ctx).Create(&match).Error
	if err == nil {
		return &match, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	existing, err := r.FindByPair(ctx, x, y)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByID fetches a match by primary key. Returns gorm.ErrRecordNotFound
// when absent.
func (r *MatchRepository) FindByID(ctx context.Context, id string) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// FindByPair fetches the match for the unordered pair {x, y}.
func (r *MatchRepository) FindByPair(ctx context.Context, x, y string) (*db.Match, error) {
	a, b := db.NormalizePair(x, y)
	var match db.Match
	if err := r.db.WithContext(ctx).
		First(&match, "user_a = ? AND user_b = ?", a, b).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// ActiveForUser returns the user's active matches, newest first.
func (r *MatchRepository) ActiveForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_a = ? OR user_b = ?) AND status = ?", userID, userID, db.MatchActive).
		Order("created_at DESC").
		Find(&matches).Error
	return matches, err
}

// ActiveMatchIDs returns the ids of the user's active matches. Used by the
// connection gateway to backfill room subscriptions on connect.
func (r *MatchRepository) ActiveMatchIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("(user_a = ? OR user_b = ?) AND status = ?", userID, userID, db.MatchActive).
		Pluck("id", &ids).Error
	return ids, err
}

// PartnerIDs returns every user the given user is matched with, in any
// status. Feeds the discovery exclusion set.
func (r *MatchRepository) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Partner(userID))
	}
	return ids, nil
}

// DeleteForUser removes every match the user participates in. Part of the
// account-deletion cascade.
func (r *MatchRepository) DeleteForUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Delete(&db.Match{}).Error
}
