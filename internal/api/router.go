package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(chatHandler *ChatHandler, jwtSecret string) *Router {
	r := gin.Default()
	r.Use(TraceMiddleware())
	r.Use(MetricsMiddleware())

	// Public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/chat", chatHandler.Chat)
		auth.GET("/chat/status", chatHandler.Status)
		auth.DELETE("/chat/pending", chatHandler.CancelPending)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
