package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/unihub/unihub/internal/app/services"
	"github.com/unihub/unihub/internal/middleware"
	"github.com/unihub/unihub/internal/pkg/websocket"
)

// FeedController upgrades subscribers to the community live feed
type FeedController struct {
	communityService services.CommunityService
	hub              *websocket.Hub
	logger           zerolog.Logger
}

// NewFeedController creates a new FeedController
func NewFeedController(communityService services.CommunityService, hub *websocket.Hub, logger zerolog.Logger) *FeedController {
	return &FeedController{
		communityService: communityService,
		hub:              hub,
		logger:           logger,
	}
}

// Subscribe godoc
// @Summary Subscribe to live community updates
// @Description Upgrades to a WebSocket that streams pin and announcement events. Browsers may pass the token as the "token" query parameter.
// @Tags communities, websocket
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} dto.ErrorResponse "Not signed in"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{id}/feed [get]
func (c *FeedController) Subscribe(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "community")
	if !ok {
		return
	}
	userID := middleware.UserID(ctx)
	if err := c.communityService.AuthorizeFeed(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.hub.Serve(ctx.Writer, ctx.Request, id, userID); err != nil {
		c.logger.Warn().Err(err).Int64("communityID", id).Int64("userID", userID).Msg("Feed subscription failed")
	}
}
