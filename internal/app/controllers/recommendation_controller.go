package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/models/dto"
	"github.com/unihub/unihub/internal/app/recommend"
	"github.com/unihub/unihub/internal/middleware"
	"github.com/unihub/unihub/internal/pkg/helpers"
)

// Recommender is the part of the recommendation engine the API exposes
type Recommender interface {
	RecommendCommunities(ctx context.Context, viewerID int64, limit int) ([]recommend.CommunityRecommendation, error)
	RecommendUsers(ctx context.Context, viewerID int64, limit int) (*recommend.UserRecommendations, error)
}

// RecommendationController serves community and user recommendations
type RecommendationController struct {
	recommender Recommender
}

// NewRecommendationController creates a new RecommendationController
func NewRecommendationController(recommender Recommender) *RecommendationController {
	return &RecommendationController{recommender: recommender}
}

// RecommendCommunities ranks communities for the caller
// @Summary Recommend communities
// @Description Communities sharing keywords with the caller's communities. Empty for anonymous callers.
// @Tags recommendations
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum results" default(5)
// @Success 200 {object} dto.APIResponse{data=[]recommend.CommunityRecommendation}
// @Router /recommendations/communities [get]
func (c *RecommendationController) RecommendCommunities(ctx *gin.Context) {
	recs, err := c.recommender.RecommendCommunities(ctx.Request.Context(), middleware.UserID(ctx), helpers.ParseLimit(ctx.Query("limit")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(recs))
}

// RecommendUsers returns both user recommendation channels
// @Summary Recommend users
// @Description Splits limit between the mutual-follow channel (ceil) and the interest channel (floor).
// @Tags recommendations
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum results across both channels" default(6)
// @Success 200 {object} dto.APIResponse{data=recommend.UserRecommendations}
// @Router /recommendations/users [get]
func (c *RecommendationController) RecommendUsers(ctx *gin.Context) {
	recs, err := c.recommender.RecommendUsers(ctx.Request.Context(), middleware.UserID(ctx), helpers.ParseLimit(ctx.Query("limit")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(recs))
}
