package main

import (
	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/middleware"
)

type routerConfig struct {
	auth    *middleware.Auth
	limiter *middleware.RateLimiter
	quota   middleware.WindowCounter
	logger  *logging.Logger
}

func setupRouter(api *API, rc routerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(rc.logger))

	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(rc.auth.JWTAuth(), middleware.RateLimit(rc.limiter))
	{
		write := rc.auth.JWTAuth(middleware.ScopeWrite)

		jobs := v1.Group("/jobs")
		{
			jobs.POST("", write, middleware.Quota(rc.quota, jobQuota, jobQuotaWindow), api.createJob)
			jobs.GET("", api.listJobs)
			jobs.GET("/:id", api.getJob)
			jobs.GET("/:id/videos", api.getJobVideos)
			jobs.GET("/:id/subtitles", api.getJobSubtitles)
		}

		v1.GET("/videos", api.listVideos)
		v1.GET("/videos/:id", api.getVideo)

		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("", write, api.createWebhook)
			webhooks.GET("", api.listWebhooks)
			webhooks.DELETE("/:id", write, api.deleteWebhook)
		}

		tl := v1.Group("/timeline")
		{
			tl.POST("/normalize", api.normalize)
			tl.POST("/subtitles", api.subtitles)
			tl.POST("/slots", api.slots)
		}
	}

	return router
}
