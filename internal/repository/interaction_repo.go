package repository

import (
	"context"

	"github.com/campusmatch/backend/internal/db"

	"gorm.io/gorm"
)

// InteractionRepository provides data access methods for the Interaction model.
// It encapsulates all queries on the swipe ledger.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// Create inserts the swipe made by actor -> target.
//
// Behavior:
//   - Insert only. If a row for (actor_id, target_id) already exists the
//     unique index rejects it and gorm.ErrDuplicatedKey is returned; the
//     ledger never updates an existing interaction.
//
// Example:
//
//	repo.Create(ctx, "u1", "u2", db.InteractionLike)
func (r *InteractionRepository) Create(
	ctx context.Context,
	actorID, targetID, kind string,
) (*db.Interaction, error) {
	interaction := db.Interaction{
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     kind,
	}
	if err := r.db.WithContext(ctx).Create(&interaction).Error; err != nil {
		return nil, err
	}
	return &interaction, nil
}

// HasReciprocalLike checks whether target has already liked actor.
//
// Behavior:
//   - Returns true if a row exists where actor_id = target, target_id = actor
//     and kind = like. Used by the match engine after recording a like.
func (r *InteractionRepository) HasReciprocalLike(
	ctx context.Context,
	actorID, targetID string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("actor_id = ? AND target_id = ? AND kind = ?", targetID, actorID, db.InteractionLike).
		Count(&count).Error
	return count > 0, err
}

// TargetIDs returns every user the actor has already swiped on, regardless
// of kind. Feeds the discovery exclusion set; computed fresh per request.
func (r *InteractionRepository) TargetIDs(ctx context.Context, actorID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("actor_id = ?", actorID).
		Pluck("target_id", &ids).Error
	return ids, err
}

// DeleteForUser removes every interaction the user participates in, on
// either side. Part of the account-deletion cascade.
func (r *InteractionRepository) DeleteForUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("actor_id = ? OR target_id = ?", userID, userID).
		Delete(&db.Interaction{}).Error
}
