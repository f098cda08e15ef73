package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/unihub/unihub/internal/app/controllers"
	"github.com/unihub/unihub/internal/middleware"
)

// Controllers groups every controller the router mounts
type Controllers struct {
	Auth           *controllers.AuthController
	User           *controllers.UserController
	Community      *controllers.CommunityController
	Post           *controllers.PostController
	Event          *controllers.EventController
	Recommendation *controllers.RecommendationController
	Feed           *controllers.FeedController
	AuthMiddleware *middleware.AuthMiddleware
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers) {
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
	}

	// --- Read routes; a token is optional and personalises the result ---
	public := v1.Group("")
	public.Use(c.AuthMiddleware.OptionalJWTAuth())
	{
		public.GET("/users/:id", c.User.GetProfile)
		public.GET("/users/:id/followers", c.User.ListFollowers)
		public.GET("/users/:id/following", c.User.ListFollowing)
		public.GET("/users/:id/communities", c.Community.ListUserCommunities)
		public.GET("/users/:id/posts", c.Post.ListUserPosts)
		public.GET("/users/:id/achievements", c.User.ListAchievements)
		public.GET("/interests/suggestions", c.User.SuggestInterests)

		public.GET("/keywords/suggestions", c.Community.SuggestKeywords)
		public.GET("/communities/:id", c.Community.GetCommunity)
		public.GET("/communities/:id/members", c.Community.ListMembers)
		public.GET("/communities/:id/posts", c.Post.ListCommunityPosts)
		public.GET("/communities/:id/pins", c.Post.ListPins)
		public.GET("/communities/:id/events", c.Event.ListCommunityEvents)
		public.GET("/communities/:id/announcements", c.Event.ListAnnouncements)

		public.GET("/hashtags/suggestions", c.Post.SuggestHashtags)
		public.GET("/hashtags/:tag/posts", c.Post.ListHashtagPosts)

		public.GET("/posts/:postId", c.Post.GetPost)
		public.GET("/posts/:postId/comments", c.Post.ListComments)
		public.GET("/events/:eventId", c.Event.GetEvent)

		public.GET("/recommendations/communities", c.Recommendation.RecommendCommunities)
		public.GET("/recommendations/users", c.Recommendation.RecommendUsers)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(c.AuthMiddleware.JWTAuth())
	{
		me := authenticated.Group("/users/me")
		{
			me.GET("", c.User.GetMyProfile)
			me.PUT("", c.User.UpdateProfile)
			me.PUT("/picture", c.User.UpdateProfilePicture)
			me.POST("/interests", c.User.AddInterests)
			me.GET("/rsvps", c.Event.ListMyRSVPs)
			me.GET("/achievements", c.User.ListMyAchievements)
			me.POST("/achievements", c.User.CreateAchievement)
		}

		authenticated.GET("/users", c.User.SearchUsers)
		authenticated.GET("/events", c.Event.SearchEvents)
		authenticated.GET("/feed/following", c.Post.FollowingFeed)
		authenticated.GET("/feed/communities", c.Post.CommunitiesFeed)
		authenticated.DELETE("/achievements/:achievementId", c.User.DeleteAchievement)

		authenticated.GET("/users/:id/follow", c.User.FollowStatus)
		authenticated.POST("/users/:id/follow", c.User.Follow)
		authenticated.DELETE("/users/:id/follow", c.User.Unfollow)

		communities := authenticated.Group("/communities")
		{
			communities.POST("", c.Community.CreateCommunity)
			communities.DELETE("/:id", c.Community.DeleteCommunity)
			communities.PUT("/:id/keywords", c.Community.UpdateKeywords)
			communities.POST("/:id/transfer", c.Community.TransferOwnership)
			communities.PUT("/:id/members/:userId/role", c.Community.UpdateRole)

			communities.POST("/:id/join", c.Community.Join)
			communities.POST("/:id/leave", c.Community.Leave)
			communities.GET("/:id/requests", c.Community.ListJoinRequests)
			communities.POST("/:id/requests", c.Community.RequestJoin)
			communities.DELETE("/:id/requests", c.Community.CancelRequest)

			communities.POST("/:id/pins", c.Post.PinPost)
			communities.PUT("/:id/pins/order", c.Post.ReorderPins)

			communities.POST("/:id/events", c.Event.CreateEvent)
			communities.POST("/:id/announcements", c.Event.CreateAnnouncement)

			communities.GET("/:id/feed", c.Feed.Subscribe)
		}

		authenticated.POST("/join-requests/:requestId/approve", c.Community.ApproveRequest)
		authenticated.POST("/join-requests/:requestId/deny", c.Community.DenyRequest)

		posts := authenticated.Group("/posts")
		{
			posts.POST("", c.Post.CreatePost)
			posts.DELETE("/:postId", c.Post.DeletePost)
			posts.POST("/:postId/like", c.Post.ToggleLike)
			posts.POST("/:postId/comments", c.Post.AddComment)
			posts.DELETE("/:postId/pin", c.Post.UnpinPost)
		}

		authenticated.PUT("/events/:eventId/rsvp", c.Event.SetRSVP)
	}
}
