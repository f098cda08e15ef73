package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/models/dto"
	"github.com/unihub/unihub/internal/app/services"
	"github.com/unihub/unihub/internal/middleware"
	"github.com/unihub/unihub/internal/pkg/filestorage"
	"github.com/unihub/unihub/internal/pkg/helpers"
)

// UserController handles profile, interest, achievement and follow endpoints
type UserController struct {
	userService        services.UserService
	followService      services.FollowService
	achievementService services.AchievementService
}

// NewUserController creates a new UserController
func NewUserController(userService services.UserService, followService services.FollowService, achievementService services.AchievementService) *UserController {
	return &UserController{
		userService:        userService,
		followService:      followService,
		achievementService: achievementService,
	}
}

// GetMyProfile returns the caller's profile
// @Summary Get my profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=services.Profile}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /users/me [get]
func (c *UserController) GetMyProfile(ctx *gin.Context) {
	userID := middleware.UserID(ctx)
	profile, err := c.userService.GetProfile(ctx.Request.Context(), userID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// GetProfile returns a user's public profile with badges
// @Summary Get user profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=services.Profile}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id} [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	profile, err := c.userService.GetProfile(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// UpdateProfile updates the caller's profile fields
// @Summary Update my profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.User}
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Router /users/me [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	user, err := c.userService.UpdateProfile(ctx.Request.Context(), middleware.UserID(ctx), services.UpdateProfileParams{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Bio:             req.Bio,
		AcademicProgram: req.AcademicProgram,
		AcademicYear:    req.AcademicYear,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(user))
}

// UpdateProfilePicture replaces the caller's profile picture
// @Summary Upload profile picture
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param picture formData file true "Image file"
// @Success 200 {object} dto.APIResponse{data=models.User}
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid image"
// @Router /users/me/picture [put]
func (c *UserController) UpdateProfilePicture(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("picture")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid or missing file").
			WithField("picture").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	data, err := filestorage.ReadUpload(fileHeader, maxUploadBytes)
	if err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	user, err := c.userService.UpdateProfilePicture(ctx.Request.Context(), middleware.UserID(ctx), services.Upload{
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(user))
}

// AddInterests adds interests to the caller's profile
// @Summary Add interests
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InterestsRequest true "Interests"
// @Success 200 {object} dto.APIResponse{data=dto.InterestsResponse}
// @Router /users/me/interests [post]
func (c *UserController) AddInterests(ctx *gin.Context) {
	var req dto.InterestsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	interests, err := c.userService.AddInterests(ctx.Request.Context(), middleware.UserID(ctx), req.Interests)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.InterestsResponse{Interests: interests}))
}

// SuggestInterests completes an interest search term
// @Summary Suggest interests
// @Tags users
// @Produce json
// @Param q query string true "Search term, at least 2 characters"
// @Success 200 {object} dto.APIResponse{data=dto.SuggestionsResponse}
// @Router /interests/suggestions [get]
func (c *UserController) SuggestInterests(ctx *gin.Context) {
	suggestions, err := c.userService.SuggestInterests(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuggestionsResponse{Suggestions: suggestions}))
}

// Follow makes the caller follow a user
// @Summary Follow user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 201 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Cannot follow yourself"
// @Failure 409 {object} dto.ErrorResponse "Already following"
// @Router /users/{id}/follow [post]
func (c *UserController) Follow(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	if err := c.followService.Follow(ctx.Request.Context(), middleware.UserID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("User followed"))
}

// Unfollow removes the caller's follow of a user
// @Summary Unfollow user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Not following"
// @Router /users/{id}/follow [delete]
func (c *UserController) Unfollow(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	if err := c.followService.Unfollow(ctx.Request.Context(), middleware.UserID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("User unfollowed"))
}

// FollowStatus reports whether the caller follows a user
// @Summary Follow status
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.FollowStatusResponse}
// @Router /users/{id}/follow [get]
func (c *UserController) FollowStatus(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	following, err := c.followService.IsFollowing(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FollowStatusResponse{IsFollowing: following}))
}

// ListFollowers lists the users following a user
// @Summary List followers
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=[]models.User}
// @Router /users/{id}/followers [get]
func (c *UserController) ListFollowers(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	users, err := c.followService.ListFollowers(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(users))
}

// ListFollowing lists the users a user follows
// @Summary List following
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=[]models.User}
// @Router /users/{id}/following [get]
func (c *UserController) ListFollowing(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	users, err := c.followService.ListFollowing(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(users))
}

// SearchUsers searches the user directory
// @Summary Search users
// @Description Matches names and bios. Every listed interest must be present. The caller is never listed.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string false "Text matched against names and bio"
// @Param university query int false "University ID"
// @Param interests query string false "Comma separated interests"
// @Param ordering query string false "last_name, first_name or date_joined, prefix - to reverse" default(last_name)
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /users [get]
func (c *UserController) SearchUsers(ctx *gin.Context) {
	university, ok := queryID(ctx, "university", "university")
	if !ok {
		return
	}
	page, size := helpers.ParsePagination(ctx.Query("page"), ctx.Query("size"))

	users, err := c.userService.SearchUsers(ctx.Request.Context(), middleware.UserID(ctx), services.UserSearchParams{
		Text:         ctx.Query("q"),
		UniversityID: university,
		Interests:    queryList(ctx, "interests"),
		Ordering:     ctx.Query("ordering"),
	}, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      users,
		Pagination: dto.PaginationInfo{CurrentPage: page, PageSize: size},
	}))
}

// ListMyAchievements lists the caller's achievements
// @Summary List my achievements
// @Tags achievements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Achievement}
// @Router /users/me/achievements [get]
func (c *UserController) ListMyAchievements(ctx *gin.Context) {
	c.listAchievements(ctx, 0)
}

// ListAchievements lists a user's achievements, most recent first
// @Summary List user achievements
// @Tags achievements
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Achievement}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/achievements [get]
func (c *UserController) ListAchievements(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	c.listAchievements(ctx, id)
}

func (c *UserController) listAchievements(ctx *gin.Context, userID int64) {
	achievements, err := c.achievementService.ListForUser(ctx.Request.Context(), userID, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(achievements))
}

// CreateAchievement adds an achievement to the caller's profile
// @Summary Add achievement
// @Tags achievements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAchievementRequest true "Achievement"
// @Success 201 {object} dto.APIResponse{data=models.Achievement}
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Router /users/me/achievements [post]
func (c *UserController) CreateAchievement(ctx *gin.Context) {
	var req dto.CreateAchievementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	params := services.AchievementParams{Title: req.Title, Description: req.Description}
	if req.DateAchieved != nil {
		// format already checked by the binding
		d, _ := time.Parse(dateLayout, *req.DateAchieved)
		params.DateAchieved = &d
	}

	achievement, err := c.achievementService.Create(ctx.Request.Context(), middleware.UserID(ctx), params)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(achievement))
}

// DeleteAchievement removes one of the caller's achievements
// @Summary Delete achievement
// @Tags achievements
// @Produce json
// @Security BearerAuth
// @Param achievementId path int true "Achievement ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Not your achievement"
// @Failure 404 {object} dto.ErrorResponse "Achievement not found"
// @Router /achievements/{achievementId} [delete]
func (c *UserController) DeleteAchievement(ctx *gin.Context) {
	id, ok := pathID(ctx, "achievementId", "achievement")
	if !ok {
		return
	}
	if err := c.achievementService.Delete(ctx.Request.Context(), id, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Achievement deleted"))
}
