package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/pkg/apperrors"
)

var communityColumns = []string{"id", "name", "description", "rules", "privacy", "owner_id", "is_global", "created_at"}

// CommunityRepository handles database operations for communities
type CommunityRepository struct {
	db DBTX
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db DBTX) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// scanCommunity keeps the nullable owner_id inside the repository
func scanCommunity(row pgx.Row) (*models.Community, error) {
	var (
		c        models.Community
		ownerID  *int64
		isGlobal bool
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Rules, &c.Privacy, &ownerID, &isGlobal, &c.CreatedAt); err != nil {
		return nil, err
	}

	switch {
	case isGlobal:
		c.Kind = models.GlobalKind()
	case ownerID != nil:
		c.Kind = models.OwnedBy(*ownerID)
	default:
		return nil, fmt.Errorf("community %d has neither owner nor global flag", c.ID)
	}
	return &c, nil
}

// Create inserts a new community
func (r *CommunityRepository) Create(ctx context.Context, community *models.Community) (int64, error) {
	var ownerID *int64
	if id, ok := community.Kind.Owner(); ok {
		ownerID = &id
	}
	if community.Privacy == "" {
		community.Privacy = models.PrivacyPublic
	}

	query := squirrel.Insert("communities").
		Columns("name", "description", "rules", "privacy", "owner_id", "is_global").
		Values(community.Name, community.Description, community.Rules, community.Privacy, ownerID, community.Kind.IsGlobal()).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&community.ID, &community.CreatedAt); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return community.ID, nil
}

func (r *CommunityRepository) getOne(ctx context.Context, query squirrel.SelectBuilder) (*models.Community, error) {
	sql, args, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	community, err := scanCommunity(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return community, nil
}

// GetByID retrieves a community by ID
func (r *CommunityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	return r.getOne(ctx, squirrel.Select(communityColumns...).From("communities").Where("id = ?", id))
}

// LockByID retrieves a community by ID holding a row lock until the transaction ends
func (r *CommunityRepository) LockByID(ctx context.Context, id int64) (*models.Community, error) {
	return r.getOne(ctx, squirrel.Select(communityColumns...).From("communities").Where("id = ?", id).Suffix("FOR UPDATE"))
}

// GetGlobal retrieves the Global community
func (r *CommunityRepository) GetGlobal(ctx context.Context) (*models.Community, error) {
	return r.getOne(ctx, squirrel.Select(communityColumns...).From("communities").Where("is_global"))
}

// ListByIDs retrieves communities by ID ordered by id
func (r *CommunityRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Community, error) {
	if len(ids) == 0 {
		return []models.Community{}, nil
	}

	query := squirrel.Select(communityColumns...).
		From("communities").
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
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

	communities := make([]models.Community, 0, len(ids))
	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		communities = append(communities, *community)
	}

	return communities, rows.Err()
}

// ListOwnedIDs returns the ids of communities owned by ownerID
func (r *CommunityRepository) ListOwnedIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	query := squirrel.Select("id").
		From("communities").
		Where("owner_id = ?", ownerID).
		PlaceholderFormat(squirrel.Dollar)

	return queryIDs(ctx, r.db, query)
}

// SetOwner moves the owner pointer of an owned community
func (r *CommunityRepository) SetOwner(ctx context.Context, communityID, ownerID int64) error {
	query := squirrel.Update("communities").
		Set("owner_id", ownerID).
		Where("id = ? AND NOT is_global", communityID).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrCommunityNotFound
	}
	return nil
}

// Delete deletes a community row; children must already be gone
func (r *CommunityRepository) Delete(ctx context.Context, id int64) error {
	query := squirrel.Delete("communities").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrCommunityNotFound
	}
	return nil
}
