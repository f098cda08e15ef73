package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/dberrors"
)

// FollowRepository handles the directed follow graph
type FollowRepository struct {
	db DBTX
}

// NewFollowRepository creates a new FollowRepository
func NewFollowRepository(db DBTX) *FollowRepository {
	return &FollowRepository{db: db}
}

// Create adds the edge follower -> followed
func (r *FollowRepository) Create(ctx context.Context, followerID, followedID int64) error {
	query := squirrel.Insert("follows").
		Columns("follower_id", "followed_id").
		Values(followerID, followedID).
		PlaceholderFormat(squirrel.Dollar)

	if _, err := execAffected(ctx, r.db, query); err != nil {
		switch {
		case dberrors.IsUniqueViolation(err):
			return apperrors.ErrAlreadyFollowing
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrUserNotFound
		case dberrors.IsCheckViolation(err):
			return apperrors.NewBadRequestError("you cannot follow yourself")
		}
		return err
	}
	return nil
}

// Delete removes the edge follower -> followed
func (r *FollowRepository) Delete(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := squirrel.Delete("follows").
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	return n > 0, err
}

// Exists checks for the edge follower -> followed
func (r *FollowRepository) Exists(ctx context.Context, followerID, followedID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)`,
		followerID, followedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error executing query: %w", err)
	}
	return exists, nil
}

// ListFollowingIDs returns who userID follows
func (r *FollowRepository) ListFollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := squirrel.Select("followed_id").
		From("follows").
		Where("follower_id = ?", userID).
		OrderBy("followed_id").
		PlaceholderFormat(squirrel.Dollar)

	return queryIDs(ctx, r.db, query)
}

// ListFollowerIDs returns who follows userID
func (r *FollowRepository) ListFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := squirrel.Select("follower_id").
		From("follows").
		Where("followed_id = ?", userID).
		OrderBy("follower_id").
		PlaceholderFormat(squirrel.Dollar)

	return queryIDs(ctx, r.db, query)
}

// ListEdgesFrom returns the outgoing edges of every user in followerIDs
func (r *FollowRepository) ListEdgesFrom(ctx context.Context, followerIDs []int64) ([]models.Follow, error) {
	if len(followerIDs) == 0 {
		return []models.Follow{}, nil
	}

	query := squirrel.Select("follower_id", "followed_id", "followed_at").
		From("follows").
		Where(squirrel.Eq{"follower_id": followerIDs}).
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

	edges := []models.Follow{}
	for rows.Next() {
		var f models.Follow
		if err := rows.Scan(&f.FollowerID, &f.FollowedID, &f.FollowedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		edges = append(edges, f)
	}
	return edges, rows.Err()
}
