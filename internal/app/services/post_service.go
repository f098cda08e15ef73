package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/auth"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/repositories"
	"github.com/unihub/unihub/internal/pkg/apperrors"
	"github.com/unihub/unihub/internal/pkg/filestorage"
	"github.com/unihub/unihub/internal/pkg/helpers"
)

// Upload is a file received with a request
type Upload struct {
	Filename string
	Data     []byte
}

// CreatePostParams holds the fields of a new post. A nil CommunityID posts
// to the Global feed.
type CreatePostParams struct {
	CommunityID   *int64
	Text          *string
	IsMembersOnly bool
	Hashtags      []string
	Image         *Upload
}

// LikeState is the result of toggling a like
type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// PostService defines post, like and comment operations
type PostService interface {
	CreatePost(ctx context.Context, actorID int64, params CreatePostParams) (*models.Post, error)
	GetPost(ctx context.Context, postID, viewerID int64) (*models.Post, error)
	ListCommunityPosts(ctx context.Context, communityID, viewerID int64, page, size int) ([]models.Post, error)
	DeletePost(ctx context.Context, postID, actorID int64) error
	ToggleLike(ctx context.Context, postID, actorID int64) (*LikeState, error)
	AddComment(ctx context.Context, postID, actorID int64, text string) (*models.Comment, error)
	ListComments(ctx context.Context, postID, viewerID int64) ([]models.Comment, error)

	ListUserPosts(ctx context.Context, authorID, viewerID int64, page, size int) ([]models.Post, error)
	FollowingFeed(ctx context.Context, viewerID int64, page, size int) ([]models.Post, error)
	CommunitiesFeed(ctx context.Context, viewerID int64, page, size int) ([]models.Post, error)
	ListHashtagPosts(ctx context.Context, hashtag string, viewerID int64, page, size int) ([]models.Post, error)
	SuggestHashtags(ctx context.Context, term string) ([]models.Hashtag, error)
}

// Hashtag typeahead sizes: a search term narrows to a few matches, a blank
// term lists the start of the vocabulary.
const (
	hashtagMatchLimit = 5
	hashtagListLimit  = 10
)

type postServiceImpl struct {
	store   repositories.Store
	storage filestorage.BlobStorage
	logger  zerolog.Logger
}

// NewPostService creates a new PostService. storage may be nil when image
// uploads are disabled.
func NewPostService(store repositories.Store, storage filestorage.BlobStorage, logger zerolog.Logger) PostService {
	return &postServiceImpl{
		store:   store,
		storage: storage,
		logger:  logger.With().Str("service", "posts").Logger(),
	}
}

// CreatePost publishes a post to a community or the Global feed
func (s *postServiceImpl) CreatePost(ctx context.Context, actorID int64, params CreatePostParams) (*models.Post, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	text := optionalText(params.Text)
	hasImage := params.Image != nil && len(params.Image.Data) > 0
	if text == nil && !hasImage {
		return nil, apperrors.NewBadRequestError("a post needs text or an image")
	}

	repos := s.store.Repos()
	var community *models.Community
	var err error
	if params.CommunityID == nil {
		community, err = repos.Communities.GetGlobal(ctx)
	} else {
		community, err = repos.Communities.GetByID(ctx, *params.CommunityID)
	}
	if err != nil {
		return nil, err
	}
	if !community.Kind.IsGlobal() {
		if _, err := auth.RequireMember(ctx, repos, community.ID, actorID); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		CommunityID:   community.ID,
		UserID:        actorID,
		Text:          text,
		IsMembersOnly: params.IsMembersOnly && !community.Kind.IsGlobal(),
	}

	var objectPath string
	if hasImage {
		if s.storage == nil {
			return nil, apperrors.NewBadRequestError("image uploads are not enabled")
		}
		objectPath = filestorage.ObjectPath(fmt.Sprintf("posts/%d", community.ID), params.Image.Filename)
		url, err := s.storage.Store(ctx, objectPath, params.Image.Data)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to store image", err)
		}
		post.ImageURL = &url
	}

	hashtags := models.NormalizeTags(params.Hashtags)
	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Posts.Create(ctx, post); err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		if len(hashtags) > 0 {
			if err := repos.Posts.SetHashtags(ctx, post.ID, hashtags); err != nil {
				return fmt.Errorf("failed to store hashtags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if objectPath != "" {
			if derr := s.storage.Delete(context.WithoutCancel(ctx), objectPath); derr != nil {
				s.logger.Warn().Err(derr).Str("path", objectPath).Msg("Failed to remove image of rolled back post")
			}
		}
		return nil, err
	}

	post.Hashtags = hashtags
	s.logger.Debug().Int64("postID", post.ID).Int64("communityID", community.ID).Int64("userID", actorID).Msg("Post created")
	return post, nil
}

// canView enforces the members-only flag
func canView(ctx context.Context, repos *repositories.Repositories, post *models.Post, viewerID int64) error {
	if !post.IsMembersOnly {
		return nil
	}
	if viewerID <= 0 {
		return apperrors.ErrNotMember
	}
	_, err := auth.RequireMember(ctx, repos, post.CommunityID, viewerID)
	return err
}

// GetPost returns a post the viewer is allowed to see
func (s *postServiceImpl) GetPost(ctx context.Context, postID, viewerID int64) (*models.Post, error) {
	repos := s.store.Repos()
	post, err := repos.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := canView(ctx, repos, post, viewerID); err != nil {
		return nil, err
	}
	return post, nil
}

// ListCommunityPosts returns a page of posts, newest first. Members-only
// posts are included for members.
func (s *postServiceImpl) ListCommunityPosts(ctx context.Context, communityID, viewerID int64, page, size int) ([]models.Post, error) {
	repos := s.store.Repos()
	if _, err := repos.Communities.GetByID(ctx, communityID); err != nil {
		return nil, err
	}

	member := false
	if viewerID > 0 {
		var err error
		if member, err = auth.IsMember(ctx, repos, communityID, viewerID); err != nil {
			return nil, err
		}
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	posts, err := repos.Posts.ListByCommunity(ctx, communityID, member, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// DeletePost removes a post with its likes, comments and pin, then drops
// hashtags no other post uses. The author or the community owner may delete.
func (s *postServiceImpl) DeletePost(ctx context.Context, postID, actorID int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		post, err := repos.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.UserID != actorID {
			community, err := repos.Communities.GetByID(ctx, post.CommunityID)
			if err != nil {
				return err
			}
			if !community.Kind.IsOwnedBy(actorID) {
				return apperrors.NewForbiddenError("only the author or the community owner can delete this post")
			}
		}

		pin, err := repos.PinnedPosts.GetByPostID(ctx, postID)
		switch {
		case err == nil:
			if _, err := repos.Communities.LockByID(ctx, post.CommunityID); err != nil {
				return err
			}
			if pin, err = repos.PinnedPosts.GetByPostID(ctx, postID); err != nil {
				return err
			}
			if err := unpinLocked(ctx, repos, pin); err != nil {
				return err
			}
		case !errors.Is(err, apperrors.ErrNotFound):
			return fmt.Errorf("failed to check pin: %w", err)
		}

		if _, err := repos.Likes.DeleteByPost(ctx, postID); err != nil {
			return fmt.Errorf("failed to delete likes: %w", err)
		}
		if _, err := repos.Comments.DeleteByPost(ctx, postID); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := repos.Posts.Delete(ctx, postID); err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		if _, err := repos.Posts.DeleteUnusedHashtags(ctx, post.Hashtags); err != nil {
			return fmt.Errorf("failed to delete unused hashtags: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Int64("postID", postID).Int64("userID", actorID).Msg("Post deleted")
	return nil
}

// ToggleLike likes the post, or removes the actor's like if present
func (s *postServiceImpl) ToggleLike(ctx context.Context, postID, actorID int64) (*LikeState, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}

	state := &LikeState{}
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		post, err := repos.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if err := canView(ctx, repos, post, actorID); err != nil {
			return err
		}

		removed, err := repos.Likes.Remove(ctx, postID, actorID)
		if err != nil {
			return fmt.Errorf("failed to remove like: %w", err)
		}
		if !removed {
			if err := repos.Likes.Add(ctx, postID, actorID); err != nil {
				return fmt.Errorf("failed to add like: %w", err)
			}
			state.Liked = true
		}

		if state.LikeCount, err = repos.Likes.Count(ctx, postID); err != nil {
			return fmt.Errorf("failed to count likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// AddComment comments on a post the actor can see
func (s *postServiceImpl) AddComment(ctx context.Context, postID, actorID int64, text string) (*models.Comment, error) {
	if err := auth.RequireUser(actorID); err != nil {
		return nil, err
	}
	text, err := requiredText("comment", text)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	post, err := repos.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := canView(ctx, repos, post, actorID); err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: actorID, Text: text}
	if _, err := repos.Comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns a post's comments, oldest first
func (s *postServiceImpl) ListComments(ctx context.Context, postID, viewerID int64) ([]models.Comment, error) {
	repos := s.store.Repos()
	post, err := repos.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := canView(ctx, repos, post, viewerID); err != nil {
		return nil, err
	}
	comments, err := repos.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// ListUserPosts returns a page of one user's posts, newest first
func (s *postServiceImpl) ListUserPosts(ctx context.Context, authorID, viewerID int64, page, size int) ([]models.Post, error) {
	repos := s.store.Repos()
	if _, err := repos.Users.GetByID(ctx, authorID); err != nil {
		return nil, err
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	posts, err := repos.Posts.ListByAuthor(ctx, authorID, viewerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user posts: %w", err)
	}
	return posts, nil
}

// FollowingFeed returns a page of posts by the users the viewer follows
func (s *postServiceImpl) FollowingFeed(ctx context.Context, viewerID int64, page, size int) ([]models.Post, error) {
	if err := auth.RequireUser(viewerID); err != nil {
		return nil, err
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	posts, err := s.store.Repos().Posts.ListByFollowed(ctx, viewerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list following feed: %w", err)
	}
	return posts, nil
}

// CommunitiesFeed returns a page of other members' posts across the viewer's
// communities. The Global community is left out.
func (s *postServiceImpl) CommunitiesFeed(ctx context.Context, viewerID int64, page, size int) ([]models.Post, error) {
	if err := auth.RequireUser(viewerID); err != nil {
		return nil, err
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	posts, err := s.store.Repos().Posts.ListByJoinedCommunities(ctx, viewerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities feed: %w", err)
	}
	return posts, nil
}

// ListHashtagPosts returns a page of posts carrying hashtag, matched case-insensitively
func (s *postServiceImpl) ListHashtagPosts(ctx context.Context, hashtag string, viewerID int64, page, size int) ([]models.Post, error) {
	tag := models.NormalizeTag(hashtag)
	if tag == "" {
		return nil, apperrors.NewBadRequestError("hashtag is required")
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	posts, err := s.store.Repos().Posts.ListByHashtag(ctx, tag, viewerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list hashtag posts: %w", err)
	}
	return posts, nil
}

// SuggestHashtags completes a hashtag search term
func (s *postServiceImpl) SuggestHashtags(ctx context.Context, term string) ([]models.Hashtag, error) {
	term = models.NormalizeTag(term)
	limit := hashtagMatchLimit
	if term == "" {
		limit = hashtagListLimit
	}
	tags, err := s.store.Repos().Posts.SuggestHashtags(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest hashtags: %w", err)
	}
	return tags, nil
}
