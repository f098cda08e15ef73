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

var achievementColumns = []string{"id", "user_id", "title", "description", "date_achieved", "created_at"}

// AchievementRepository handles profile achievements
type AchievementRepository struct {
	db DBTX
}

// NewAchievementRepository creates a new AchievementRepository
func NewAchievementRepository(db DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

func scanAchievement(row pgx.Row, a *models.Achievement) error {
	return row.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.DateAchieved, &a.CreatedAt)
}

// Create inserts an achievement
func (r *AchievementRepository) Create(ctx context.Context, a *models.Achievement) (int64, error) {
	query := squirrel.Insert("achievements").
		Columns("user_id", "title", "description", "date_achieved").
		Values(a.UserID, a.Title, a.Description, a.DateAchieved).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.ErrUserNotFound
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return a.ID, nil
}

// GetByID retrieves an achievement by ID
func (r *AchievementRepository) GetByID(ctx context.Context, id int64) (*models.Achievement, error) {
	query := squirrel.Select(achievementColumns...).
		From("achievements").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var a models.Achievement
	if err := scanAchievement(r.db.QueryRow(ctx, sql, args...), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return &a, nil
}

// ListByUser retrieves a user's achievements, most recent first
func (r *AchievementRepository) ListByUser(ctx context.Context, userID int64) ([]models.Achievement, error) {
	query := squirrel.Select(achievementColumns...).
		From("achievements").
		Where("user_id = ?", userID).
		OrderBy("date_achieved DESC NULLS LAST", "id DESC").
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

	out := []models.Achievement{}
	for rows.Next() {
		var a models.Achievement
		if err := scanAchievement(rows, &a); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an achievement
func (r *AchievementRepository) Delete(ctx context.Context, id int64) error {
	query := squirrel.Delete("achievements").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrAchievementNotFound
	}
	return nil
}
