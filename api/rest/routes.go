package rest

import (
	"github.com/cinecircle/server/catalog"
	"github.com/cinecircle/server/scheduler"
	"github.com/cinecircle/server/social/badge"
	"github.com/cinecircle/server/social/content"
	"github.com/cinecircle/server/social/engagement"
	"github.com/cinecircle/server/social/friendship"
	"github.com/cinecircle/server/social/goal"
	"github.com/cinecircle/server/social/group"
	"github.com/cinecircle/server/social/message"
	"github.com/cinecircle/server/social/notify"
	"github.com/cinecircle/server/social/profile"
	"github.com/cinecircle/server/social/ranking"
	"github.com/cinecircle/server/social/watchlist"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services is everything the REST surface calls into.
type Services struct {
	Friends    *friendship.Service
	Content    *content.Service
	Engagement *engagement.Service
	Ranking    *ranking.Service
	Badges     *badge.Service
	Inbox      *notify.Inbox
	Messages   *message.Service
	Watchlist  *watchlist.Service
	Groups     *group.Service
	Goals      *goal.Service
	Profiles   *profile.Service
	Catalog    *catalog.Client
	// Scheduler is optional; it backs the admin task listing.
	Scheduler  *scheduler.Scheduler
}

// Register mounts the user routes on api, which must already authenticate
// the caller, and the administrator routes on admin.
func Register(api, admin *gin.RouterGroup, s Services, logger *zap.Logger) {
	friendH := NewFriendHandler(s.Friends, logger)
	contentH := NewContentHandler(s.Content, s.Engagement, logger)
	rankH := NewRankingHandler(s.Ranking, logger)
	badgeH := NewBadgeHandler(s.Badges, logger)
	notifH := NewNotificationHandler(s.Inbox, logger)
	msgH := NewMessageHandler(s.Messages, logger)
	watchH := NewWatchlistHandler(s.Watchlist, logger)
	groupH := NewGroupHandler(s.Groups, logger)
	goalH := NewGoalHandler(s.Goals, logger)
	profileH := NewProfileHandler(s.Profiles, logger)
	catH := NewCatalogHandler(s.Catalog, logger)
	adminH := NewAdminHandler(s.Scheduler)

	api.GET("/profile", profileH.Get)
	api.PUT("/profile", profileH.Save)

	friendsG := api.Group("/friends")
	friendsG.GET("", friendH.List)
	friendsG.GET("/pending", friendH.Pending)
	friendsG.GET("/search", friendH.Search)
	friendsG.POST("/requests", friendH.SendRequest)
	friendsG.POST("/requests/:id/respond", friendH.Respond)
	friendsG.DELETE("/:id", friendH.Remove)

	recsG := api.Group("/recommendations")
	recsG.GET("", contentH.List)
	recsG.POST("", contentH.Create)
	recsG.GET("/search", contentH.Search)
	recsG.GET("/:id", contentH.Get)
	recsG.DELETE("/:id", contentH.Delete)
	recsG.POST("/:id/like", contentH.ToggleLike)
	recsG.GET("/:id/comments", contentH.Comments)
	recsG.POST("/:id/comments", contentH.AddComment)
	api.DELETE("/comments/:id", contentH.DeleteComment)

	api.GET("/rankings", rankH.Top)
	api.GET("/rankings/weekly-pick", rankH.WeeklyPick)

	api.GET("/badges", badgeH.Catalog)
	api.GET("/users/:id/badges", badgeH.ForUser)

	notifG := api.Group("/notifications")
	notifG.GET("", notifH.List)
	notifG.GET("/unread", notifH.Unread)
	notifG.POST("/read", notifH.MarkAllRead)
	notifG.DELETE("", notifH.Clear)
	notifG.DELETE("/:id", notifH.Delete)

	msgG := api.Group("/messages")
	msgG.POST("", msgH.Send)
	msgG.GET("/unread", msgH.Unread)
	msgG.GET("/conversations", msgH.Conversations)
	msgG.GET("/:userId", msgH.Conversation)

	watchG := api.Group("/watchlist")
	watchG.GET("", watchH.List)
	watchG.POST("", watchH.Add)
	watchG.POST("/:id/watched", watchH.ToggleWatched)
	watchG.DELETE("/:id", watchH.Remove)

	groupsG := api.Group("/groups")
	groupsG.GET("", groupH.List)
	groupsG.POST("", groupH.Create)
	groupsG.GET("/:id", groupH.Get)
	groupsG.POST("/:id/leave", groupH.Leave)
	groupsG.GET("/:id/recommendations", groupH.Recommendations)
	groupsG.POST("/:id/recommendations", groupH.Recommend)
	groupsG.GET("/:id/messages", groupH.Messages)
	groupsG.POST("/:id/messages", groupH.Post)
	groupsG.GET("/:id/invitable", groupH.Invitable)
	groupsG.POST("/:id/members", groupH.Invite)

	goalsG := api.Group("/goals")
	goalsG.GET("", goalH.Board)
	goalsG.POST("", goalH.Create)
	goalsG.POST("/:id/toggle", goalH.Toggle)
	goalsG.DELETE("/:id", goalH.Delete)

	api.GET("/catalog/search", catH.Search)
	api.GET("/catalog/popular", catH.Popular)
	api.GET("/catalog/:type/:externalId", catH.Details)

	admin.PUT("/users/:id/badges", badgeH.Grant)
	admin.GET("/scheduler", adminH.SchedulerTasks)
}
