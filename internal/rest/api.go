package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApi registers the article, health and metrics routes on router.
func NewApi(router *gin.Engine, articles *ArticleHandler, health *HealthHandler) {
	articlesV1 := router.Group("/articles")
	{
		articlesV1.GET("", articles.ListPublished)
		articlesV1.POST("", articles.Create)
		articlesV1.GET("/:slug", articles.Get)
		articlesV1.PATCH("/:slug", articles.Update)
		articlesV1.POST("/:slug/publish", articles.Publish)
		articlesV1.POST("/:slug/unpublish", articles.Unpublish)
	}

	router.GET("/health", health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
