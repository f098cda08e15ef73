// Package auth holds the community permission checks shared by services.
// Every check takes the repository set to use, so the same rule applies
// inside and outside a transaction.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

// RequireUser rejects the anonymous principal.
func RequireUser(actorID int64) error {
	if actorID <= 0 {
		return apperrors.ErrUnauthenticated
	}
	return nil
}

// RequireOwner validates that actorID owns the community
func RequireOwner(community *models.Community, actorID int64) error {
	if !community.Kind.IsOwnedBy(actorID) {
		return apperrors.ErrNotCommunityOwner
	}
	return nil
}

// LoadOwnedCommunity locks the community row and checks ownership. It must
// run inside a transaction for the lock to hold.
func LoadOwnedCommunity(ctx context.Context, repos *repositories.Repositories, communityID, actorID int64) (*models.Community, error) {
	community, err := repos.Communities.LockByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(community, actorID); err != nil {
		return nil, err
	}
	return community, nil
}

// Membership returns the user's membership, or nil when the user is not a member.
func Membership(ctx context.Context, repos *repositories.Repositories, communityID, userID int64) (*models.Membership, error) {
	m, err := repos.Memberships.Get(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	return m, nil
}

// IsMember reports whether userID belongs to the community
func IsMember(ctx context.Context, repos *repositories.Repositories, communityID, userID int64) (bool, error) {
	m, err := Membership(ctx, repos, communityID, userID)
	return m != nil, err
}

// RequireMember validates that userID is a member of the community
func RequireMember(ctx context.Context, repos *repositories.Repositories, communityID, userID int64) (*models.Membership, error) {
	m, err := Membership(ctx, repos, communityID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperrors.ErrNotMember
	}
	return m, nil
}

// RequireStaff validates that userID is a Leader or EventManager of the community
func RequireStaff(ctx context.Context, repos *repositories.Repositories, communityID, userID int64) (*models.Membership, error) {
	m, err := Membership(ctx, repos, communityID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Role.CanManageEvents() {
		return nil, apperrors.ErrNotCommunityStaff
	}
	return m, nil
}
