package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/unihub/unihub/internal/app/models"
)

// AnnouncementRepository handles community announcements
type AnnouncementRepository struct {
	db DBTX
}

// NewAnnouncementRepository creates a new AnnouncementRepository
func NewAnnouncementRepository(db DBTX) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create inserts an announcement
func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) (int64, error) {
	query := squirrel.Insert("announcements").
		Columns("community_id", "title", "content", "created_by").
		Values(a.CommunityID, a.Title, a.Content, a.CreatedBy).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return a.ID, nil
}

// ListByCommunity retrieves announcements newest first
func (r *AnnouncementRepository) ListByCommunity(ctx context.Context, communityID int64) ([]models.Announcement, error) {
	query := squirrel.Select("id", "community_id", "title", "content", "created_by", "created_at").
		From("announcements").
		Where("community_id = ?", communityID).
		OrderBy("created_at DESC", "id DESC").
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

	out := []models.Announcement{}
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.CommunityID, &a.Title, &a.Content, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteByCommunity removes all announcements of a community
func (r *AnnouncementRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("announcements").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}
