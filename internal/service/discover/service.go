package discover

import (
	"context"
	"errors"
	"math/rand"

	"gorm.io/gorm"

	"github.com/campusmatch/backend/internal/app"
	"github.com/campusmatch/backend/internal/db"
	apperr "github.com/campusmatch/backend/internal/errors"
	"github.com/campusmatch/backend/internal/repository"
)

// SwipeResult is the outcome of recording a swipe.
type SwipeResult struct {
	Matched bool
	Match   *db.Match
	Target  *db.User
}

// MatchView pairs a match with the caller's partner profile.
type MatchView struct {
	Match   db.Match
	Partner db.User
}

// Service implements the discovery feed, the swipe ledger and the match
// engine.
type Service struct {
	appCtx       *app.AppContext
	users        *repository.UserRepository
	interactions *repository.InteractionRepository
	matches      *repository.MatchRepository
}

// NewDiscoverService creates a new discover service with dependencies from AppContext.
func NewDiscoverService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:       appCtx,
		users:        repository.NewUserRepository(appCtx.DB),
		interactions: repository.NewInteractionRepository(appCtx.DB),
		matches:      repository.NewMatchRepository(appCtx.DB),
	}
}

// Swipe records a one-directional interaction and, for likes, evaluates
// reciprocity.
//
// Behavior:
//   - Self-swipes and unknown kinds are rejected before persistence.
//   - The ledger is insert-only: a second swipe on the same target fails
//     with a duplicate-interaction conflict, whatever its kind.
//   - A like with an existing reciprocal like creates the match through the
//     storage-level create-or-fetch primitive, so concurrent evaluations of
//     the same pair converge on one row and both report matched.
//
// Example:
//
//	res, err := svc.Swipe(ctx, "u1", "u2", db.InteractionLike)
func (s *Service) Swipe(ctx context.Context, actorID, targetID, kind string) (*SwipeResult, error) {
	s.appCtx.Logger.Debug("Swipe called", "actor", actorID, "target", targetID, "kind", kind)

	if targetID == "" {
		return nil, apperr.Validation("target_required", "targetId is required")
	}
	if kind != db.InteractionLike && kind != db.InteractionDislike {
		return nil, apperr.Validation("kind_invalid", `kind must be "like" or "dislike"`)
	}
	if actorID == targetID {
		return nil, apperr.Validation("self_interaction", "you cannot swipe on yourself")
	}

	target, err := s.users.FindByID(ctx, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("target_not_found", "target user not found")
	} else if err != nil {
		return nil, apperr.Map(err)
	}

	if _, err := s.interactions.Create(ctx, actorID, targetID, kind); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("duplicate_interaction", "you already swiped on this user")
		}
		return nil, apperr.Map(err)
	}

	if kind == db.InteractionDislike {
		return &SwipeResult{Matched: false, Target: target}, nil
	}

	reciprocal, err := s.interactions.HasReciprocalLike(ctx, actorID, targetID)
	if err != nil {
		return nil, apperr.Map(err)
	}
	if !reciprocal {
		return &SwipeResult{Matched: false, Target: target}, nil
	}

	match, created, err := s.matches.CreateOrFetch(ctx, actorID, targetID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	s.appCtx.Logger.Info("match formed", "match", match.ID, "created", created,
		"user_a", match.UserA, "user_b", match.UserB)

	return &SwipeResult{Matched: true, Match: match, Target: target}, nil
}

// NextProfile returns a random candidate the user has not interacted with.
//
// Behavior:
//   - Excludes the requester, every prior swipe target, every matched
//     partner and deactivated accounts.
//   - The exclusion set is recomputed on every call; swipes and matches
//     mutate it between requests.
//   - Returns nil when no candidates remain.
func (s *Service) NextProfile(ctx context.Context, userID string) (*db.User, error) {
	interacted, err := s.interactions.TargetIDs(ctx, userID)
	if err != nil {
		return nil, apperr.Map(err)
	}
	partners, err := s.matches.PartnerIDs(ctx, userID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	exclude := make([]string, 0, len(interacted)+len(partners)+1)
	exclude = append(exclude, userID)
	exclude = append(exclude, interacted...)
	exclude = append(exclude, partners...)

	candidates, err := s.users.FindCandidates(ctx, exclude)
	if err != nil {
		return nil, apperr.Map(err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	return &candidates[rand.Intn(len(candidates))], nil
}

// Matches lists the user's active matches, newest first, with partner
// profiles. Partners that are gone or deactivated are filtered out.
func (s *Service) Matches(ctx context.Context, userID string) ([]MatchView, error) {
	matches, err := s.matches.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	views := make([]MatchView, 0, len(matches))
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
		views = append(views, MatchView{Match: m, Partner: *partner})
	}
	return views, nil
}
