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

var pinnedPostColumns = []string{"id", "post_id", "community_id", "pinned_by", "sort_order", "pinned_at"}

// PinnedPostRepository handles the ordered pinned_posts list.
// Callers hold the community row lock while mutating.
type PinnedPostRepository struct {
	db DBTX
}

// NewPinnedPostRepository creates a new PinnedPostRepository
func NewPinnedPostRepository(db DBTX) *PinnedPostRepository {
	return &PinnedPostRepository{db: db}
}

func scanPinnedPost(row pgx.Row, p *models.PinnedPost) error {
	return row.Scan(&p.ID, &p.PostID, &p.CommunityID, &p.PinnedBy, &p.Order, &p.PinnedAt)
}

// ListByCommunity retrieves the pinned posts of a community by order
func (r *PinnedPostRepository) ListByCommunity(ctx context.Context, communityID int64) ([]models.PinnedPost, error) {
	query := squirrel.Select(pinnedPostColumns...).
		From("pinned_posts").
		Where("community_id = ?", communityID).
		OrderBy("sort_order").
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

	pins := []models.PinnedPost{}
	for rows.Next() {
		var p models.PinnedPost
		if err := scanPinnedPost(rows, &p); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

// GetByPostID retrieves the pin of a post
func (r *PinnedPostRepository) GetByPostID(ctx context.Context, postID int64) (*models.PinnedPost, error) {
	query := squirrel.Select(pinnedPostColumns...).
		From("pinned_posts").
		Where("post_id = ?", postID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var p models.PinnedPost
	if err := scanPinnedPost(r.db.QueryRow(ctx, sql, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPinnedPostNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &p, nil
}

// Create inserts a pin at pin.Order
func (r *PinnedPostRepository) Create(ctx context.Context, pin *models.PinnedPost) (int64, error) {
	query := squirrel.Insert("pinned_posts").
		Columns("post_id", "community_id", "pinned_by", "sort_order").
		Values(pin.PostID, pin.CommunityID, pin.PinnedBy, pin.Order).
		Suffix("RETURNING id, pinned_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&pin.ID, &pin.PinnedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "pinned_posts_post_key") {
			return 0, apperrors.ErrAlreadyPinned
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return pin.ID, nil
}

// Delete removes a pin without renumbering
func (r *PinnedPostRepository) Delete(ctx context.Context, id int64) error {
	query := squirrel.Delete("pinned_posts").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrPinnedPostNotFound
	}
	return nil
}

// ShiftDownAfter closes the gap left by a removed pin
func (r *PinnedPostRepository) ShiftDownAfter(ctx context.Context, communityID int64, order int) error {
	query := squirrel.Update("pinned_posts").
		Set("sort_order", squirrel.Expr("sort_order - 1")).
		Where("community_id = ? AND sort_order > ?", communityID, order).
		PlaceholderFormat(squirrel.Dollar)

	_, err := execAffected(ctx, r.db, query)
	return err
}

// SetOrder assigns the order of one pin; uniqueness is checked at commit
func (r *PinnedPostRepository) SetOrder(ctx context.Context, id int64, order int) error {
	query := squirrel.Update("pinned_posts").
		Set("sort_order", order).
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrPinnedPostNotFound
	}
	return nil
}

// DeleteByCommunity removes every pin of a community
func (r *PinnedPostRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("pinned_posts").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}
