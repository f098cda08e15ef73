package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

// AchievementService manages the achievements shown on user profiles
type AchievementService interface {
	Create(ctx context.Context, actorID int64, params AchievementParams) (*models.Achievement, error)
	ListForUser(ctx context.Context, userID, viewerID int64) ([]models.Achievement, error)
	Delete(ctx context.Context, id, actorID int64) error
}

// AchievementParams holds the fields of a new achievement
type AchievementParams struct {
	Title        string
	Description  *string
	DateAchieved *time.Time
}

type achievementServiceImpl struct {
	store  repositories.Store
	logger zerolog.Logger
}

// NewAchievementService creates a new AchievementService
func NewAchievementService(store repositories.Store, logger zerolog.Logger) AchievementService {
	return &achievementServiceImpl{
		store:  store,
		logger: logger.With().Str("service", "achievements").Logger(),
	}
}

// Create adds an achievement to the actor's profile
func (s *achievementServiceImpl) Create(ctx context.Context, actorID int64, params AchievementParams) (*models.Achievement, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	title, err := requiredText("title", params.Title)
	if err != nil {
		return nil, err
	}

	a := &models.Achievement{
		UserID:       actorID,
		Title:        title,
		Description:  optionalText(params.Description),
		DateAchieved: params.DateAchieved,
	}
	if _, err := s.store.Repos().Achievements.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Debug().Int64("userID", actorID).Int64("achievementID", a.ID).Msg("Achievement created")
	return a, nil
}

// ListForUser returns a user's achievements; userID 0 means the viewer
func (s *achievementServiceImpl) ListForUser(ctx context.Context, userID, viewerID int64) ([]models.Achievement, error) {
	if userID == 0 {
		if err := auth.RequireUser(viewerID); err != nil {
			return nil, err
		}
		userID = viewerID
	}

	repos := s.store.Repos()
	exists, err := repos.Users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrUserNotFound
	}

	achievements, err := repos.Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// Delete removes one of the actor's own achievements
func (s *achievementServiceImpl) Delete(ctx context.Context, id, actorID int64) error {
	if err := auth.RequireUser(actorID); err != nil {
		return err
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		a, err := repos.Achievements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a.UserID != actorID {
			return apperrors.NewForbiddenError("you can only delete your own achievements")
		}
		return repos.Achievements.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Int64("userID", actorID).Int64("achievementID", id).Msg("Achievement deleted")
	return nil
}
