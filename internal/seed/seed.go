package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

// EnsureGlobalCommunity creates the Global community backing the news feed
// if it does not exist yet, and returns it.
func EnsureGlobalCommunity(ctx context.Context, store repositories.Store, lgr zerolog.Logger) (*models.Community, error) {
	var global *models.Community
	err := store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		existing, err := repos.Communities.GetGlobal(ctx)
		if err == nil {
			global = existing
			return nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to look up global community: %w", err)
		}

		description := "Campus-wide news feed"
		c := models.Community{
			Name:        models.GlobalCommunityName,
			Description: &description,
			Privacy:     models.PrivacyPublic,
			Kind:        models.GlobalKind(),
		}
		id, err := repos.Communities.Create(ctx, &c)
		if err != nil {
			return fmt.Errorf("failed to create global community: %w", err)
		}
		global = &c
		lgr.Info().Int64("communityID", id).Msg("Created global community")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return global, nil
}
