package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/models"
	"github.com/unihub/unihub/internal/app/models/dto"
	"github.com/unihub/unihub/internal/app/services"
	"github.com/unihub/unihub/internal/middleware"
	"github.com/unihub/unihub/internal/pkg/filestorage"
	"github.com/unihub/unihub/internal/pkg/helpers"
)

// PostController handles posts, likes, comments and pinned posts
type PostController struct {
	postService services.PostService
	pinService  services.PinService
}

// NewPostController creates a new PostController
func NewPostController(postService services.PostService, pinService services.PinService) *PostController {
	return &PostController{
		postService: postService,
		pinService:  pinService,
	}
}

// CreatePost handles creating a post in a community or the Global feed
// @Summary Create post
// @Description Multipart form. Without communityId the post goes to the Global feed.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param communityId formData int false "Community ID"
// @Param text formData string false "Post text"
// @Param isMembersOnly formData bool false "Visible to members only"
// @Param hashtags formData string false "Comma separated hashtags"
// @Param image formData file false "Image"
// @Success 201 {object} dto.APIResponse{data=models.Post}
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Router /posts [post]
func (c *PostController) CreatePost(ctx *gin.Context) {
	var params services.CreatePostParams

	if raw := ctx.PostForm("communityId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid community ID").WithField("communityId")
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
		params.CommunityID = &id
	}
	if text, ok := ctx.GetPostForm("text"); ok {
		params.Text = &text
	}
	params.IsMembersOnly, _ = strconv.ParseBool(ctx.PostForm("isMembersOnly"))
	for _, raw := range ctx.PostFormArray("hashtags") {
		params.Hashtags = append(params.Hashtags, strings.Split(raw, ",")...)
	}

	if fileHeader, err := ctx.FormFile("image"); err == nil {
		data, err := filestorage.ReadUpload(fileHeader, maxUploadBytes)
		if err != nil {
			middleware.HandleBindingError(ctx, err)
			return
		}
		params.Image = &services.Upload{Filename: fileHeader.Filename, Data: data}
	}

	post, err := c.postService.CreatePost(ctx.Request.Context(), middleware.UserID(ctx), params)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(post))
}

// GetPost returns a single post
// @Summary Get post
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=models.Post}
// @Failure 403 {object} dto.ErrorResponse "Members-only post"
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /posts/{postId} [get]
func (c *PostController) GetPost(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}
	post, err := c.postService.GetPost(ctx.Request.Context(), postID, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// ListCommunityPosts lists the posts of a community visible to the caller
// @Summary List community posts
// @Tags posts
// @Produce json
// @Param id path int true "Community ID"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /communities/{id}/posts [get]
func (c *PostController) ListCommunityPosts(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	page, size := helpers.ParsePagination(ctx.Query("page"), ctx.Query("size"))

	posts, err := c.postService.ListCommunityPosts(ctx.Request.Context(), id, middleware.UserID(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      posts,
		Pagination: dto.PaginationInfo{CurrentPage: page, PageSize: size},
	}))
}

// DeletePost deletes the caller's post
// @Summary Delete post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Not the author"
// @Router /posts/{postId} [delete]
func (c *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}
	if err := c.postService.DeletePost(ctx.Request.Context(), postID, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Post deleted"))
}

// ToggleLike likes or unlikes a post
// @Summary Toggle like
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=services.LikeState}
// @Router /posts/{postId}/like [post]
func (c *PostController) ToggleLike(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}
	state, err := c.postService.ToggleLike(ctx.Request.Context(), postID, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(state))
}

// AddComment comments on a post
// @Summary Add comment
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param request body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} dto.APIResponse{data=models.Comment}
// @Router /posts/{postId}/comments [post]
func (c *PostController) AddComment(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}
	var req dto.CreateCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	comment, err := c.postService.AddComment(ctx.Request.Context(), postID, middleware.UserID(ctx), req.Text)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(comment))
}

// ListComments lists a post's comments
// @Summary List comments
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Comment}
// @Router /posts/{postId}/comments [get]
func (c *PostController) ListComments(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}
	comments, err := c.postService.ListComments(ctx.Request.Context(), postID, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(comments))
}

// ListPins lists a community's pinned posts in order
// @Summary List pinned posts
// @Tags pins
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=[]services.PinnedEntry}
// @Router /communities/{id}/pins [get]
func (c *PostController) ListPins(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	pins, err := c.pinService.List(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(pins))
}

// PinPost pins a post at the end of the community's pinned list
// @Summary Pin post
// @Tags pins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.PinPostRequest true "Post to pin"
// @Success 201 {object} dto.APIResponse{data=models.PinnedPost}
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 409 {object} dto.ErrorResponse "Already pinned or limit reached"
// @Router /communities/{id}/pins [post]
func (c *PostController) PinPost(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	var req dto.PinPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	pin, err := c.pinService.Pin(ctx.Request.Context(), id, req.PostID, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(pin))
}

// ReorderPins sets the order of a community's pinned posts
// @Summary Reorder pinned posts
// @Tags pins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.ReorderPinsRequest true "Pin ids in their new order"
// @Success 200 {object} dto.APIResponse{data=[]models.PinnedPost}
// @Failure 400 {object} dto.ErrorResponse "Not a permutation of the community's pin ids"
// @Router /communities/{id}/pins/order [put]
func (c *PostController) ReorderPins(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	var req dto.ReorderPinsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	pins, err := c.pinService.Reorder(ctx.Request.Context(), id, middleware.UserID(ctx), req.PinIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(pins))
}

// UnpinPost removes a post from its community's pinned list
// @Summary Unpin post
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Post is not pinned"
// @Router /posts/{postId}/pin [delete]
func (c *PostController) UnpinPost(ctx *gin.Context) {
	postID, ok := pathID(ctx, "postId", "post")
	if !ok {
		return
	}
	if err := c.pinService.Unpin(ctx.Request.Context(), postID, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Post unpinned"))
}

func (c *PostController) listPage(ctx *gin.Context, list func(page, size int) ([]models.Post, error)) {
	page, size := helpers.ParsePagination(ctx.Query("page"), ctx.Query("size"))
	posts, err := list(page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      posts,
		Pagination: dto.PaginationInfo{CurrentPage: page, PageSize: size},
	}))
}

// FollowingFeed lists posts by the users the caller follows
// @Summary Following feed
// @Tags feeds
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /feed/following [get]
func (c *PostController) FollowingFeed(ctx *gin.Context) {
	c.listPage(ctx, func(page, size int) ([]models.Post, error) {
		return c.postService.FollowingFeed(ctx.Request.Context(), middleware.UserID(ctx), page, size)
	})
}

// CommunitiesFeed lists other members' posts in the caller's communities
// @Summary Communities feed
// @Description Global feed posts and the caller's own posts are left out.
// @Tags feeds
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /feed/communities [get]
func (c *PostController) CommunitiesFeed(ctx *gin.Context) {
	c.listPage(ctx, func(page, size int) ([]models.Post, error) {
		return c.postService.CommunitiesFeed(ctx.Request.Context(), middleware.UserID(ctx), page, size)
	})
}

// ListUserPosts lists a user's posts visible to the caller
// @Summary List user posts
// @Tags posts
// @Produce json
// @Param id path int true "User ID"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/posts [get]
func (c *PostController) ListUserPosts(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	c.listPage(ctx, func(page, size int) ([]models.Post, error) {
		return c.postService.ListUserPosts(ctx.Request.Context(), id, middleware.UserID(ctx), page, size)
	})
}

// ListHashtagPosts lists the posts carrying a hashtag
// @Summary List hashtag posts
// @Tags posts
// @Produce json
// @Param tag path string true "Hashtag, with or without #"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /hashtags/{tag}/posts [get]
func (c *PostController) ListHashtagPosts(ctx *gin.Context) {
	c.listPage(ctx, func(page, size int) ([]models.Post, error) {
		return c.postService.ListHashtagPosts(ctx.Request.Context(), ctx.Param("tag"), middleware.UserID(ctx), page, size)
	})
}

// SuggestHashtags completes a hashtag prefix
// @Summary Suggest hashtags
// @Tags posts
// @Produce json
// @Param q query string false "Search term; blank lists the first hashtags by name"
// @Success 200 {object} dto.APIResponse{data=[]models.Hashtag}
// @Router /hashtags/suggestions [get]
func (c *PostController) SuggestHashtags(ctx *gin.Context) {
	hashtags, err := c.postService.SuggestHashtags(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(hashtags))
}
