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

var postColumns = []string{
	"p.id", "p.community_id", "p.user_id", "p.post_text", "p.image_url", "p.is_members_only", "p.created_at",
	"(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id) AS like_count",
	"ARRAY(SELECT h.hashtag FROM post_hashtags ph JOIN hashtags h ON h.id = ph.hashtag_id WHERE ph.post_id = p.id ORDER BY h.hashtag) AS hashtags",
}

// PostRepository handles database operations for posts and hashtags
type PostRepository struct {
	db DBTX
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

func scanPost(row pgx.Row, p *models.Post) error {
	return row.Scan(&p.ID, &p.CommunityID, &p.UserID, &p.Text, &p.ImageURL, &p.IsMembersOnly, &p.CreatedAt, &p.LikeCount, &p.Hashtags)
}

// Create inserts a post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := squirrel.Insert("posts").
		Columns("community_id", "user_id", "post_text", "image_url", "is_members_only").
		Values(post.CommunityID, post.UserID, post.Text, post.ImageURL, post.IsMembersOnly).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&post.ID, &post.CreatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.ErrCommunityNotFound
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return post.ID, nil
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := squirrel.Select(postColumns...).
		From("posts p").
		Where("p.id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var post models.Post
	if err := scanPost(r.db.QueryRow(ctx, sql, args...), &post); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return &post, nil
}

// ListByCommunity retrieves a page of a community's posts, newest first
func (r *PostRepository) ListByCommunity(ctx context.Context, communityID int64, includeMembersOnly bool, offset uint64, limit int) ([]models.Post, error) {
	query := r.page(offset, limit).Where("p.community_id = ?", communityID)
	if !includeMembersOnly {
		query = query.Where("NOT p.is_members_only")
	}
	return r.list(ctx, query)
}

// ListByAuthor retrieves a page of one user's posts, newest first
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	query := r.page(offset, limit).
		Where("p.user_id = ?", authorID).
		Where(visibleTo(viewerID))
	return r.list(ctx, query)
}

// ListByFollowed retrieves a page of posts by the users viewerID follows
func (r *PostRepository) ListByFollowed(ctx context.Context, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	query := r.page(offset, limit).
		Where("p.user_id IN (SELECT f.followed_id FROM follows f WHERE f.follower_id = ?)", viewerID).
		Where(visibleTo(viewerID))
	return r.list(ctx, query)
}

// ListByJoinedCommunities retrieves a page of other members' posts in the
// viewer's communities
func (r *PostRepository) ListByJoinedCommunities(ctx context.Context, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	query := r.page(offset, limit).
		Join("memberships m ON m.community_id = p.community_id AND m.user_id = ?", viewerID).
		Join("communities c ON c.id = p.community_id").
		Where("NOT c.is_global").
		Where("p.user_id <> ?", viewerID)
	return r.list(ctx, query)
}

// ListByHashtag retrieves a page of posts tagged with a normalized hashtag
func (r *PostRepository) ListByHashtag(ctx context.Context, hashtag string, viewerID int64, offset uint64, limit int) ([]models.Post, error) {
	query := r.page(offset, limit).
		Where("EXISTS (SELECT 1 FROM post_hashtags ph JOIN hashtags h ON h.id = ph.hashtag_id WHERE ph.post_id = p.id AND h.hashtag = ?)", hashtag).
		Where(visibleTo(viewerID))
	return r.list(ctx, query)
}

// visibleTo hides members-only posts outside the viewer's communities
func visibleTo(viewerID int64) squirrel.Sqlizer {
	return squirrel.Expr(
		"(NOT p.is_members_only OR EXISTS (SELECT 1 FROM memberships vm WHERE vm.community_id = p.community_id AND vm.user_id = ?))",
		viewerID,
	)
}

func (r *PostRepository) page(offset uint64, limit int) squirrel.SelectBuilder {
	return squirrel.Select(postColumns...).
		From("posts p").
		OrderBy("p.created_at DESC", "p.id DESC").
		Offset(offset).
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *PostRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]models.Post, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		if err := scanPost(rows, &post); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SetHashtags get-or-creates the normalized hashtags and links them to the post
func (r *PostRepository) SetHashtags(ctx context.Context, postID int64, hashtags []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM post_hashtags WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if len(hashtags) == 0 {
		return nil
	}

	const query = `
		WITH tags AS (
			INSERT INTO hashtags (hashtag)
			SELECT DISTINCT unnest($2::text[])
			ON CONFLICT (hashtag) DO UPDATE SET hashtag = EXCLUDED.hashtag
			RETURNING id
		)
		INSERT INTO post_hashtags (post_id, hashtag_id)
		SELECT $1, id FROM tags
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, postID, hashtags); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// DeleteUnusedHashtags drops the given hashtags once no post links to them
func (r *PostRepository) DeleteUnusedHashtags(ctx context.Context, hashtags []string) (int64, error) {
	if len(hashtags) == 0 {
		return 0, nil
	}

	query := squirrel.Delete("hashtags h").
		Where(squirrel.Eq{"h.hashtag": hashtags}).
		Where("NOT EXISTS (SELECT 1 FROM post_hashtags ph WHERE ph.hashtag_id = h.id)").
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// SuggestHashtags searches the hashtag vocabulary, prefix matches first.
// A blank term lists the vocabulary alphabetically.
func (r *PostRepository) SuggestHashtags(ctx context.Context, term string, limit int) ([]models.Hashtag, error) {
	query := squirrel.Select("id", "hashtag").
		From("hashtags").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)
	if term == "" {
		query = query.OrderBy("hashtag")
	} else {
		query = query.
			Where("hashtag ILIKE ?", "%"+escapeLike(term)+"%").
			OrderByClause("(hashtag ILIKE ?) DESC, hashtag", escapeLike(term)+"%")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	tags := []models.Hashtag{}
	for rows.Next() {
		var h models.Hashtag
		if err := rows.Scan(&h.ID, &h.Name); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		tags = append(tags, h)
	}
	return tags, rows.Err()
}

// Delete removes a post; likes, comments and pin must already be gone
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	query := squirrel.Delete("posts").
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}

// DeleteByCommunity removes every post of a community
func (r *PostRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("posts").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// LikeRepository handles post likes
type LikeRepository struct {
	db DBTX
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db DBTX) *LikeRepository {
	return &LikeRepository{db: db}
}

// Add records a like; repeating it is a no-op
func (r *LikeRepository) Add(ctx context.Context, postID, userID int64) error {
	query := squirrel.Insert("post_likes").
		Columns("user_id", "post_id").
		Values(userID, postID).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	if _, err := execAffected(ctx, r.db, query); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrPostNotFound
		}
		return err
	}
	return nil
}

// Remove deletes a like
func (r *LikeRepository) Remove(ctx context.Context, postID, userID int64) (bool, error) {
	query := squirrel.Delete("post_likes").
		Where("post_id = ? AND user_id = ?", postID, userID).
		PlaceholderFormat(squirrel.Dollar)

	n, err := execAffected(ctx, r.db, query)
	return n > 0, err
}

// Count returns the number of likes on a post
func (r *LikeRepository) Count(ctx context.Context, postID int64) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}

// DeleteByPost removes all likes of a post
func (r *LikeRepository) DeleteByPost(ctx context.Context, postID int64) (int64, error) {
	query := squirrel.Delete("post_likes").
		Where("post_id = ?", postID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// DeleteByCommunity removes all likes on posts of a community
func (r *LikeRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("post_likes").
		Where("post_id IN (SELECT id FROM posts WHERE community_id = ?)", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// CommentRepository handles post comments
type CommentRepository struct {
	db DBTX
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db DBTX) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) (int64, error) {
	query := squirrel.Insert("comments").
		Columns("post_id", "user_id", "comment_text").
		Values(comment.PostID, comment.UserID, comment.Text).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.ErrPostNotFound
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return comment.ID, nil
}

// ListByPost retrieves the comments of a post oldest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	query := squirrel.Select("id", "post_id", "user_id", "comment_text", "created_at").
		From("comments").
		Where("post_id = ?", postID).
		OrderBy("created_at", "id").
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

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeleteByPost removes all comments of a post
func (r *CommentRepository) DeleteByPost(ctx context.Context, postID int64) (int64, error) {
	query := squirrel.Delete("comments").
		Where("post_id = ?", postID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}

// DeleteByCommunity removes all comments on posts of a community
func (r *CommentRepository) DeleteByCommunity(ctx context.Context, communityID int64) (int64, error) {
	query := squirrel.Delete("comments").
		Where("post_id IN (SELECT id FROM posts WHERE community_id = ?)", communityID).
		PlaceholderFormat(squirrel.Dollar)

	return execAffected(ctx, r.db, query)
}
