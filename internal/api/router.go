package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jengzang/permit-map-backend-go/internal/cache"
	"github.com/jengzang/permit-map-backend-go/internal/config"
	"github.com/jengzang/permit-map-backend-go/internal/handler"
	"github.com/jengzang/permit-map-backend-go/internal/metrics"
	"github.com/jengzang/permit-map-backend-go/internal/middleware"
	"github.com/jengzang/permit-map-backend-go/internal/repository"
	"github.com/jengzang/permit-map-backend-go/internal/service"
)

// SetupRouter wires repositories, services and handlers and registers the routes.
// rdb may be nil, which disables the geography cache. Background work stops when ctx is done.
func SetupRouter(ctx context.Context, cfg *config.Config, db *sql.DB, rdb *redis.Client) *gin.Engine {
	permitRepo := repository.NewPermitRepository(db)
	geoCache := cache.NewGeographyCache(rdb, permitRepo, cfg.GeoCacheTTL)

	sources := service.Sources{
		Summary:   permitRepo,
		Points:    permitRepo,
		Geography: geoCache,
	}
	limits := service.Limits{Points: cfg.PointFetchLimit, Geography: cfg.GeoFetchLimit}

	mapService := service.NewMapService(sources, cfg.LOD, limits)
	sessionService := service.NewSessionService(sources, cfg.LOD, limits, cfg.SessionTTL)
	sessionService.StartJanitor(ctx, time.Minute)
	permitService := service.NewPermitService(permitRepo, geoCache)

	mapHandler := handler.NewMapHandler(mapService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	permitHandler := handler.NewPermitHandler(permitService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:   []string{middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Permit Map API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	{
		mapGroup := api.Group("/map")
		{
			mapGroup.GET("/view", mapHandler.GetView)
			mapGroup.GET("/summary", mapHandler.GetSummary)
			mapGroup.GET("/points", mapHandler.GetPoints)
			mapGroup.GET("/geography", mapHandler.GetGeography)

			sessions := mapGroup.Group("/sessions")
			{
				sessions.POST("", sessionHandler.CreateSession)
				sessions.GET("/:id", sessionHandler.GetSession)
				sessions.PUT("/:id/filter", sessionHandler.UpdateFilter)
				sessions.DELETE("/:id", sessionHandler.DeleteSession)
			}
		}

		api.GET("/clusters", permitHandler.ListClusters)

		admin := api.Group("")
		admin.Use(middleware.AuthRequired(cfg.JWTSecret))
		{
			admin.POST("/permits", permitHandler.ImportPermits)
			admin.PUT("/clusters/:id", permitHandler.UpdateCluster)
		}
	}

	return r
}
