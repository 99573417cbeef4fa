package router

import (
	"time"

	"carmeet/config"
	"carmeet/internal/handler"
	"carmeet/internal/livemap"
	"carmeet/internal/middleware"
	"carmeet/internal/repository"
	"carmeet/internal/service"
	"carmeet/internal/stream"
	"carmeet/internal/ws"
	"carmeet/pkg/cloudinary"
	"carmeet/pkg/imagecache"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, broker stream.Broker, cloud cloudinary.Client, prefetch *imagecache.Prefetcher) (*gin.Engine, *livemap.Manager) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewSlidingWindowLimiter(100, 60*time.Second)))

	// GPS pings can arrive every few seconds; cap a runaway client at 2/s.
	pingLimiter := middleware.NewSlidingWindowLimiter(120, 60*time.Second)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)
	requestRepo := repository.NewFriendRequestRepository(db)
	locRepo := repository.NewLocationRepository(db)

	// Live map sessions
	sessions := livemap.NewManager(friendshipRepo, locRepo, profileRepo, prefetch, broker, livemap.Options{
		NearbyRadiusMeters: cfg.Map.NearbyRadiusMeters,
		MaxAge:             time.Duration(cfg.Map.StaleAfterMs) * time.Millisecond,
		Spread: livemap.SpreadOptions{
			BaseRadiusMeters:     cfg.Map.SpreadBaseRadius,
			ExtraPerMemberMeters: cfg.Map.SpreadExtraPerMember,
		},
	})

	mapHub := ws.NewHub()

	// Services and handlers
	authSvc := service.NewAuthService(cfg, userRepo, profileRepo)
	authHandler := handler.NewAuthHandler(authSvc, sessions)
	profileHandler := handler.NewProfileHandler(profileRepo, cloud, prefetch)
	friendHandler := handler.NewFriendHandler(friendshipRepo, requestRepo, profileRepo)
	locationHandler := handler.NewLocationHandler(locRepo, broker, sessions, mapHub)
	mapHandler := handler.NewMapHandler(sessions)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", middleware.AuthRequired(&cfg.JWT), authHandler.Logout)
		}

		authed := api.Group("")
		authed.Use(middleware.AuthRequired(&cfg.JWT))
		{
			authed.GET("/me/profile", profileHandler.GetMe)
			authed.PATCH("/me/profile", profileHandler.UpdateMe)
			authed.POST("/me/profile/photo", profileHandler.UploadPhoto)
			authed.GET("/profiles/:id", profileHandler.GetByID)

			authed.GET("/friends", friendHandler.ListFriends)
			authed.POST("/friends/requests", friendHandler.SendRequest)
			authed.GET("/friends/requests", friendHandler.ListPending)
			authed.POST("/friends/requests/:id/respond", friendHandler.Respond)

			authed.GET("/me/location", locationHandler.GetMyLocation)
			authed.PUT("/me/location", middleware.RateLimitByUser(pingLimiter), locationHandler.UpdateMyLocation)

			authed.GET("/map", mapHandler.GetMap)
			authed.POST("/map/refresh", mapHandler.RefreshMap)
		}
	}

	r.GET("/ws/map", ws.UpgradeMapWS(&cfg.JWT, &cfg.Map, mapHub, sessions))

	return r, sessions
}
