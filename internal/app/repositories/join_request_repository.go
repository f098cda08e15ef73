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

// JoinRequestRepository handles pending join requests for private communities
type JoinRequestRepository struct {
	db DBTX
}

// NewJoinRequestRepository creates a new JoinRequestRepository
func NewJoinRequestRepository(db DBTX) *JoinRequestRepository {
	return &JoinRequestRepository{db: db}
}

// Create records a pending request
func (r *JoinRequestRepository) Create(ctx context.Context, communityID, userID int64) (*models.JoinRequest, error) {
	query := squirrel.Insert("join_requests").
		Columns("user_id", "community_id").
		Values(userID, communityID).
		Suffix("RETURNING id, requested_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	req := models.JoinRequest{UserID: userID, CommunityID: communityID}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&req.ID, &req.RequestedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "join_requests_user_community_key") {
			return nil, apperrors.ErrAlreadyRequested
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return &req, nil
}

func (r *JoinRequestRepository) getOne(ctx context.Context, pred string, args ...any) (*models.JoinRequest, error) {
	query := squirrel.Select("id", "user_id", "community_id", "requested_at").
		From("join_requests").
		Where(pred, args...).
		PlaceholderFormat(squirrel.Dollar)

	sql, qargs, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var req models.JoinRequest
	err = r.db.QueryRow(ctx, sql, qargs...).Scan(&req.ID, &req.UserID, &req.CommunityID, &req.RequestedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrJoinRequestMissing
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &req, nil
}

// GetByID retrieves a request by ID
func (r *JoinRequestRepository) GetByID(ctx context.Context, id int64) (*models.JoinRequest, error) {
	return r.getOne(ctx, "id = ?", id)
}

// Find retrieves the pending request of a user for a community
func (r *JoinRequestRepository) Find(ctx context.Context, communityID, userID int64) (*models.JoinRequest, error) {
	return r.getOne(ctx, "community_id = ? AND user_id = ?", communityID, userID)
}

// Delete removes a request
func (r *JoinRequestRepository) Delete(ctx context.Context, id int64) error {
	query := squirrel.Delete("join_requests").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrJoinRequestMissing
	}
	return nil
}

// DeleteByCommunity removes all requests for a community
func (r *JoinRequestRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("join_requests").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// ListByCommunity retrieves pending requests oldest first
func (r *JoinRequestRepository) ListByCommunity(ctx context.Context, communityID int64) ([]models.JoinRequest, error) {
	query := squirrel.Select("id", "user_id", "community_id", "requested_at").
		From("join_requests").
		Where("community_id = ?", communityID).
		OrderBy("requested_at", "id").
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

	requests := []models.JoinRequest{}
	for rows.Next() {
		var req models.JoinRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.CommunityID, &req.RequestedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
