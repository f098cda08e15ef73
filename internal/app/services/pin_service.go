package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

// PinnedEntry is a pin with the post it points at
type PinnedEntry struct {
	models.PinnedPost
	Post models.Post `json:"post"`
}

// PinService maintains each community's ordered list of pinned posts.
// Orders for a community are always exactly 0..k-1 with k <= models.MaxPinnedPosts.
type PinService interface {
	Pin(ctx context.Context, communityID, postID, actorID int64) (*models.PinnedPost, error)
	Unpin(ctx context.Context, postID, actorID int64) error
	Reorder(ctx context.Context, communityID, actorID int64, pinIDs []int64) ([]models.PinnedPost, error)
	List(ctx context.Context, communityID int64) ([]PinnedEntry, error)
}

type pinServiceImpl struct {
	store  repositories.Store
	feed   Feed
	logger zerolog.Logger
}

// NewPinService creates a new PinService; feed may be nil
func NewPinService(store repositories.Store, feed Feed, logger zerolog.Logger) PinService {
	return &pinServiceImpl{
		store:  store,
		feed:   feed,
		logger: logger.With().Str("service", "pins").Logger(),
	}
}

// Pin appends postID to the end of the community's pinned list
func (s *pinServiceImpl) Pin(ctx context.Context, communityID, postID, actorID int64) (*models.PinnedPost, error) {
	var pin *models.PinnedPost
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := auth.LoadOwnedCommunity(ctx, repos, communityID, actorID); err != nil {
			return err
		}

		post, err := repos.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.CommunityID != communityID {
			return apperrors.NewBadRequestError("post does not belong to this community")
		}

		if _, err := repos.PinnedPosts.GetByPostID(ctx, postID); err == nil {
			return apperrors.ErrAlreadyPinned
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("failed to check pin: %w", err)
		}

		pins, err := repos.PinnedPosts.ListByCommunity(ctx, communityID)
		if err != nil {
			return fmt.Errorf("failed to list pinned posts: %w", err)
		}
		if len(pins) >= models.MaxPinnedPosts {
			return apperrors.ErrPinLimitReached
		}

		next := 0
		for _, p := range pins {
			if p.Order+1 > next {
				next = p.Order + 1
			}
		}

		pin = &models.PinnedPost{PostID: postID, CommunityID: communityID, PinnedBy: actorID, Order: next}
		if _, err := repos.PinnedPosts.Create(ctx, pin); err != nil {
			return fmt.Errorf("failed to pin post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("communityID", communityID).Int64("postID", postID).Int("order", pin.Order).Msg("Post pinned")
	publish(s.feed, communityID, FeedPinAdded, pin)
	return pin, nil
}

// Unpin removes the pin on postID and closes the gap it leaves
func (s *pinServiceImpl) Unpin(ctx context.Context, postID, actorID int64) error {
	var removed *models.PinnedPost
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		pin, err := repos.PinnedPosts.GetByPostID(ctx, postID)
		if err != nil {
			return err
		}
		if _, err := auth.LoadOwnedCommunity(ctx, repos, pin.CommunityID, actorID); err != nil {
			return err
		}
		// re-read under the community lock
		if pin, err = repos.PinnedPosts.GetByPostID(ctx, postID); err != nil {
			return err
		}
		removed = pin
		return unpinLocked(ctx, repos, pin)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("communityID", removed.CommunityID).Int64("postID", postID).Msg("Post unpinned")
	publish(s.feed, removed.CommunityID, FeedPinRemoved, removed)
	return nil
}

// unpinLocked deletes pin and shifts later pins down by one. The caller
// holds the community lock.
func unpinLocked(ctx context.Context, repos *repositories.Repositories, pin *models.PinnedPost) error {
	if err := repos.PinnedPosts.Delete(ctx, pin.ID); err != nil {
		return fmt.Errorf("failed to unpin post: %w", err)
	}
	if err := repos.PinnedPosts.ShiftDownAfter(ctx, pin.CommunityID, pin.Order); err != nil {
		return fmt.Errorf("failed to renumber pinned posts: %w", err)
	}
	return nil
}

// Reorder assigns order = index in pinIDs. pinIDs are pinned-post row ids
// and must be exactly the community's current pins, without duplicates.
func (s *pinServiceImpl) Reorder(ctx context.Context, communityID, actorID int64, pinIDs []int64) ([]models.PinnedPost, error) {
	var out []models.PinnedPost
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := auth.LoadOwnedCommunity(ctx, repos, communityID, actorID); err != nil {
			return err
		}

		pins, err := repos.PinnedPosts.ListByCommunity(ctx, communityID)
		if err != nil {
			return fmt.Errorf("failed to list pinned posts: %w", err)
		}
		byID := make(map[int64]models.PinnedPost, len(pins))
		for _, p := range pins {
			byID[p.ID] = p
		}

		if len(pinIDs) != len(pins) {
			return apperrors.NewBadRequestError("the new order must list every pin exactly once")
		}
		seen := make(map[int64]struct{}, len(pinIDs))
		for _, id := range pinIDs {
			if _, dup := seen[id]; dup {
				return apperrors.NewBadRequestError("the new order contains duplicate pins")
			}
			seen[id] = struct{}{}
			if _, ok := byID[id]; !ok {
				return apperrors.NewBadRequestError(fmt.Sprintf("pin %d does not belong to this community", id))
			}
		}

		out = make([]models.PinnedPost, 0, len(pinIDs))
		for i, id := range pinIDs {
			p := byID[id]
			if p.Order != i {
				if err := repos.PinnedPosts.SetOrder(ctx, p.ID, i); err != nil {
					return fmt.Errorf("failed to reorder pinned posts: %w", err)
				}
				p.Order = i
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.feed, communityID, FeedPinsReordered, out)
	return out, nil
}

// List returns the community's pinned posts in order
func (s *pinServiceImpl) List(ctx context.Context, communityID int64) ([]PinnedEntry, error) {
	repos := s.store.Repos()
	pins, err := repos.PinnedPosts.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pinned posts: %w", err)
	}

	out := make([]PinnedEntry, 0, len(pins))
	for _, p := range pins {
		post, err := repos.Posts.GetByID(ctx, p.PostID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pinned post %d: %w", p.PostID, err)
		}
		out = append(out, PinnedEntry{PinnedPost: p, Post: *post})
	}
	return out, nil
}
