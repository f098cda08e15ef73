package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/models/dto"
	"github.com/unihub/unihub/internal/app/services"
	"github.com/unihub/unihub/internal/middleware"
)

// CommunityController handles community lifecycle and membership endpoints
type CommunityController struct {
	communityService services.CommunityService
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService services.CommunityService) *CommunityController {
	return &CommunityController{
		communityService: communityService,
	}
}

// CreateCommunity handles creating a community
// @Summary Create community
// @Description Creates a community owned by the caller, who becomes its Leader.
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCommunityRequest true "Community"
// @Success 201 {object} dto.APIResponse{data=models.Community}
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /communities [post]
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	var req dto.CreateCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	community, err := c.communityService.Create(ctx.Request.Context(), middleware.UserID(ctx), services.CreateCommunityParams{
		Name:        req.Name,
		Description: req.Description,
		Rules:       req.Rules,
		Privacy:     req.Privacy,
		Keywords:    req.Keywords,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(community))
}

// GetCommunity handles retrieving a community as seen by the caller
// @Summary Get community by ID
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=services.CommunityDetail}
// @Failure 400 {object} dto.ErrorResponse "Invalid community ID"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{id} [get]
func (c *CommunityController) GetCommunity(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	detail, err := c.communityService.Get(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(detail))
}

// UpdateKeywords replaces a community's keywords
// @Summary Update community keywords
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.UpdateKeywordsRequest true "Keywords"
// @Success 200 {object} dto.APIResponse{data=models.Community}
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Router /communities/{id}/keywords [put]
func (c *CommunityController) UpdateKeywords(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	var req dto.UpdateKeywordsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	community, err := c.communityService.UpdateKeywords(ctx.Request.Context(), id, middleware.UserID(ctx), req.Keywords)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(community))
}

// DeleteCommunity deletes a community and everything in it
// @Summary Delete community
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{id} [delete]
func (c *CommunityController) DeleteCommunity(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	if err := c.communityService.Delete(ctx.Request.Context(), id, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Community deleted"))
}

// TransferOwnership hands the community to another member
// @Summary Transfer ownership
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body dto.TransferOwnershipRequest true "New owner"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid target"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Router /communities/{id}/transfer [post]
func (c *CommunityController) TransferOwnership(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	var req dto.TransferOwnershipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	if err := c.communityService.TransferOwnership(ctx.Request.Context(), id, middleware.UserID(ctx), req.NewOwnerID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Ownership transferred"))
}

// UpdateRole sets a member's role
// @Summary Update member role
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param userId path int true "Member user ID"
// @Param request body dto.UpdateRoleRequest true "Role"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid role"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Router /communities/{id}/members/{userId}/role [put]
func (c *CommunityController) UpdateRole(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	targetID, ok := pathID(ctx, "userId", "user")
	if !ok {
		return
	}
	var req dto.UpdateRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	if err := c.communityService.UpdateRole(ctx.Request.Context(), id, middleware.UserID(ctx), targetID, req.Role); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Role updated"))
}

// ListMembers lists a community's members
// @Summary List members
// @Tags communities
// @Produce json
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=[]services.Member}
// @Router /communities/{id}/members [get]
func (c *CommunityController) ListMembers(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	members, err := c.communityService.ListMembers(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(members))
}

// Join adds the caller to a public community
// @Summary Join community
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 201 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Community is private"
// @Failure 409 {object} dto.ErrorResponse "Already a member"
// @Router /communities/{id}/join [post]
func (c *CommunityController) Join(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	if err := c.communityService.Join(ctx.Request.Context(), id, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Joined community"))
}

// Leave removes the caller from a community
// @Summary Leave community
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Owner or Global community"
// @Router /communities/{id}/leave [post]
func (c *CommunityController) Leave(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	if err := c.communityService.Leave(ctx.Request.Context(), id, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Left community"))
}

// RequestJoin asks to join a private community
// @Summary Request to join
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 201 {object} dto.APIResponse{data=models.JoinRequest}
// @Failure 409 {object} dto.ErrorResponse "Already requested or member"
// @Router /communities/{id}/requests [post]
func (c *CommunityController) RequestJoin(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	request, err := c.communityService.RequestJoin(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(request))
}

// CancelRequest withdraws the caller's pending join request
// @Summary Cancel join request
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "No pending request"
// @Router /communities/{id}/requests [delete]
func (c *CommunityController) CancelRequest(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	if err := c.communityService.CancelRequest(ctx.Request.Context(), id, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Join request cancelled"))
}

// ListJoinRequests lists pending requests of a community
// @Summary List join requests
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=[]services.PendingRequest}
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Router /communities/{id}/requests [get]
func (c *CommunityController) ListJoinRequests(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	requests, err := c.communityService.ListJoinRequests(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(requests))
}

// ApproveRequest accepts a pending join request
// @Summary Approve join request
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Join request ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Router /join-requests/{requestId}/approve [post]
func (c *CommunityController) ApproveRequest(ctx *gin.Context) {
	requestID, ok := pathID(ctx, "requestId", "join request")
	if !ok {
		return
	}
	if err := c.communityService.ApproveRequest(ctx.Request.Context(), requestID, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Join request approved"))
}

// DenyRequest rejects a pending join request
// @Summary Deny join request
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Join request ID"
// @Success 200 {object} dto.APIResponse
// @Router /join-requests/{requestId}/deny [post]
func (c *CommunityController) DenyRequest(ctx *gin.Context) {
	requestID, ok := pathID(ctx, "requestId", "join request")
	if !ok {
		return
	}
	if err := c.communityService.DenyRequest(ctx.Request.Context(), requestID, middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Join request denied"))
}

// ListUserCommunities lists the communities a user belongs to
// @Summary List user communities
// @Tags communities
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Community}
// @Router /users/{id}/communities [get]
func (c *CommunityController) ListUserCommunities(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "user")
	if !ok {
		return
	}
	communities, err := c.communityService.ListUserCommunities(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(communities))
}

// SuggestKeywords completes a community keyword search term
// @Summary Suggest keywords
// @Tags communities
// @Produce json
// @Param q query string true "Search term, at least 2 characters"
// @Success 200 {object} dto.APIResponse{data=dto.SuggestionsResponse}
// @Router /keywords/suggestions [get]
func (c *CommunityController) SuggestKeywords(ctx *gin.Context) {
	suggestions, err := c.communityService.SuggestKeywords(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuggestionsResponse{Suggestions: suggestions}))
}
