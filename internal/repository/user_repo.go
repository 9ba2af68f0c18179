package repository

import (
	"context"

	"github.com/campusmatch/backend/internal/db"

	"gorm.io/gorm"
)

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID fetches a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername fetches a user by unique username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindCandidates returns active users outside the exclusion set.
//
// Behavior:
//   - Excludes deactivated accounts.
//   - excludeIDs carries the requester plus every already-interacted and
//     already-matched user; it is recomputed by the caller per request.
func (r *UserRepository) FindCandidates(ctx context.Context, excludeIDs []string) ([]db.User, error) {
	var users []db.User
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	err := query.Find(&users).Error
	return users, err
}

// Delete removes the user and cascades over interactions, matches and
// messages in a single transaction.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sender_id = ? OR recipient_id = ?", userID, userID).
			Delete(&db.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_a = ? OR user_b = ?", userID, userID).
			Delete(&db.Match{}).Error; err != nil {
			return err
		}
		if err := tx.Where("actor_id = ? OR target_id = ?", userID, userID).
			Delete(&db.Interaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.User{}, "id = ?", userID).Error
	})
}
