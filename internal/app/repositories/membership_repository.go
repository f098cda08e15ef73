package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/dberrors"
)

const membershipUniqueConstraint = "memberships_user_community_key"

// MembershipRepository handles database operations for community memberships
type MembershipRepository struct {
	db DBTX
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Get retrieves a single membership
func (r *MembershipRepository) Get(ctx context.Context, communityID, userID int64) (*models.Membership, error) {
	query := squirrel.Select("user_id", "community_id", "role", "joined_at").
		From("memberships").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var m models.Membership
	err = r.db.QueryRow(ctx, sql, args...).Scan(&m.UserID, &m.CommunityID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return &m, nil
}

// Create adds a membership
func (r *MembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	query := squirrel.Insert("memberships").
		Columns("user_id", "community_id", "role").
		Values(membership.UserID, membership.CommunityID, membership.Role).
		Suffix("RETURNING joined_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&membership.JoinedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, membershipUniqueConstraint) {
			return apperrors.ErrAlreadyMember
		}
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// UpdateRole changes the role of an existing membership
func (r *MembershipRepository) UpdateRole(ctx context.Context, communityID, userID int64, role models.MembershipRole) error {
	query := squirrel.Update("memberships").
		Set("role", role).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrMembershipNotFound
	}
	return nil
}

// Delete removes a membership
func (r *MembershipRepository) Delete(ctx context.Context, communityID, userID int64) error {
	query := squirrel.Delete("memberships").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrMembershipNotFound
	}
	return nil
}

// DeleteByCommunity removes every membership of a community
func (r *MembershipRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("memberships").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// ListByCommunity retrieves all memberships of a community, leaders first
func (r *MembershipRepository) ListByCommunity(ctx context.Context, communityID int64) ([]models.Membership, error) {
	query := squirrel.Select("user_id", "community_id", "role", "joined_at").
		From("memberships").
		Where("community_id = ?", communityID).
		OrderBy("CASE role WHEN 'Leader' THEN 0 WHEN 'EventManager' THEN 1 ELSE 2 END", "joined_at", "user_id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	memberships := []models.Membership{}
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.UserID, &m.CommunityID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// ListCommunityIDsByUser retrieves all communities a user belongs to
func (r *MembershipRepository) ListCommunityIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	query := squirrel.Select("community_id").
		From("memberships").
		Where("user_id = ?", userID).
		OrderBy("community_id").
		PlaceholderFormat(squirrel.Dollar)

	return queryIDs(ctx, r.db, query)
}
