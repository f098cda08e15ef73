package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

// FollowService defines operations on the follow graph
type FollowService interface {
	Follow(ctx context.Context, actorID, targetID int64) error
	Unfollow(ctx context.Context, actorID, targetID int64) error
	ListFollowers(ctx context.Context, userID int64) ([]models.User, error)
	ListFollowing(ctx context.Context, userID int64) ([]models.User, error)
	IsFollowing(ctx context.Context, actorID, targetID int64) (bool, error)
}

type followServiceImpl struct {
	store  repositories.Store
	logger zerolog.Logger
}

// NewFollowService creates a new FollowService
func NewFollowService(store repositories.Store, logger zerolog.Logger) FollowService {
	return &followServiceImpl{
		store:  store,
		logger: logger.With().Str("service", "follows").Logger(),
	}
}

// Follow creates the edge actor -> target
func (s *followServiceImpl) Follow(ctx context.Context, actorID, targetID int64) error {
	if err := auth.RequireUser(actorID); err != nil {
		return err
	}
	if actorID == targetID {
		return apperrors.NewBadRequestError("you cannot follow yourself")
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		exists, err := repos.Users.Exists(ctx, targetID)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return apperrors.ErrUserNotFound
		}
		following, err := repos.Follows.Exists(ctx, actorID, targetID)
		if err != nil {
			return fmt.Errorf("failed to check follow: %w", err)
		}
		if following {
			return apperrors.ErrAlreadyFollowing
		}
		return repos.Follows.Create(ctx, actorID, targetID)
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Int64("userID", actorID).Int64("targetID", targetID).Msg("User followed")
	return nil
}

// Unfollow removes the edge actor -> target
func (s *followServiceImpl) Unfollow(ctx context.Context, actorID, targetID int64) error {
	if err := auth.RequireUser(actorID); err != nil {
		return err
	}
	removed, err := s.store.Repos().Follows.Delete(ctx, actorID, targetID)
	if err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	if !removed {
		return apperrors.NewResourceNotFoundError("you are not following this user")
	}

	s.logger.Debug().Int64("userID", actorID).Int64("targetID", targetID).Msg("User unfollowed")
	return nil
}

// ListFollowers returns the users following userID
func (s *followServiceImpl) ListFollowers(ctx context.Context, userID int64) ([]models.User, error) {
	return s.listUsers(ctx, userID, s.store.Repos().Follows.ListFollowerIDs)
}

// ListFollowing returns the users userID follows
func (s *followServiceImpl) ListFollowing(ctx context.Context, userID int64) ([]models.User, error) {
	return s.listUsers(ctx, userID, s.store.Repos().Follows.ListFollowingIDs)
}

func (s *followServiceImpl) listUsers(ctx context.Context, userID int64, ids func(context.Context, int64) ([]int64, error)) ([]models.User, error) {
	repos := s.store.Repos()
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	userIDs, err := ids(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	if len(userIDs) == 0 {
		return []models.User{}, nil
	}
	users, err := repos.Users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

// IsFollowing reports whether actor follows target
func (s *followServiceImpl) IsFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	if actorID <= 0 {
		return false, nil
	}
	ok, err := s.store.Repos().Follows.Exists(ctx, actorID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return ok, nil
}
