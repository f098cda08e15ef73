package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/unihub/unihub/internal/app/models"
)

// KeywordRepository handles the keyword vocabulary and community_keywords links
type KeywordRepository struct {
	db DBTX
}

// NewKeywordRepository creates a new KeywordRepository
func NewKeywordRepository(db DBTX) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// GetOrCreate returns the keyword rows for the given normalized values, inserting missing ones
func (r *KeywordRepository) GetOrCreate(ctx context.Context, keywords []string) ([]models.Keyword, error) {
	if len(keywords) == 0 {
		return []models.Keyword{}, nil
	}

	const query = `
		INSERT INTO keywords (keyword)
		SELECT DISTINCT unnest($1::text[])
		ON CONFLICT (keyword) DO UPDATE SET keyword = EXCLUDED.keyword
		RETURNING id, keyword
	`

	rows, err := r.db.Query(ctx, query, keywords)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Keyword, 0, len(keywords))
	for rows.Next() {
		var k models.Keyword
		if err := rows.Scan(&k.ID, &k.Keyword); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ReplaceLinks sets the community's keyword links to exactly keywordIDs
func (r *KeywordRepository) ReplaceLinks(ctx context.Context, communityID int64, keywordIDs []int64) error {
	if _, err := r.DeleteLinksByCommunity(ctx, communityID); err != nil {
		return err
	}
	if len(keywordIDs) == 0 {
		return nil
	}

	query := squirrel.Insert("community_keywords").
		Columns("community_id", "keyword_id").
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)
	for _, id := range keywordIDs {
		query = query.Values(communityID, id)
	}

	_, err := execAffected(ctx, r.db, query)
	return err
}

// DeleteLinksByCommunity removes all keyword links of a community
func (r *KeywordRepository) DeleteLinksByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("community_keywords").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// ListByCommunities returns keyword text grouped by community
func (r *KeywordRepository) ListByCommunities(ctx context.Context, communityIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(communityIDs))
	if len(communityIDs) == 0 {
		return result, nil
	}

	query := squirrel.Select("ck.community_id", "k.keyword").
		From("community_keywords ck").
		Join("keywords k ON k.id = ck.keyword_id").
		Where(squirrel.Eq{"ck.community_id": communityIDs}).
		OrderBy("ck.community_id", "k.keyword").
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

	for rows.Next() {
		var communityID int64
		var keyword string
		if err := rows.Scan(&communityID, &keyword); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		result[communityID] = append(result[communityID], keyword)
	}
	return result, rows.Err()
}

// IDsForCommunities returns the distinct keyword ids attached to any of the communities
func (r *KeywordRepository) IDsForCommunities(ctx context.Context, communityIDs []int64) ([]int64, error) {
	if len(communityIDs) == 0 {
		return []int64{}, nil
	}

	query := squirrel.Select("DISTINCT keyword_id").
		From("community_keywords").
		Where(squirrel.Eq{"community_id": communityIDs}).
		PlaceholderFormat(squirrel.Dollar)

	return queryIDs(ctx, r.db, query)
}

// LinksForKeywords returns every (community, keyword) link whose keyword is in keywordIDs
func (r *KeywordRepository) LinksForKeywords(ctx context.Context, keywordIDs []int64) ([]models.KeywordLink, error) {
	if len(keywordIDs) == 0 {
		return []models.KeywordLink{}, nil
	}

	query := squirrel.Select("community_id", "keyword_id").
		From("community_keywords").
		Where(squirrel.Eq{"keyword_id": keywordIDs}).
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

	links := []models.KeywordLink{}
	for rows.Next() {
		var l models.KeywordLink
		if err := rows.Scan(&l.CommunityID, &l.KeywordID); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Suggest searches the keyword vocabulary, prefix matches first
func (r *KeywordRepository) Suggest(ctx context.Context, term string, limit int) ([]string, error) {
	query := squirrel.Select("keyword").
		From("keywords").
		Where("keyword ILIKE ?", "%"+escapeLike(term)+"%").
		OrderByClause("(keyword ILIKE ?) DESC, keyword", escapeLike(term)+"%").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	return queryStrings(ctx, r.db, query)
}
