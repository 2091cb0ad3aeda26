package handler

import (
	"net/http"

	"gigfinder-ticketing/internal/handler/middleware"

	"github.com/gin-gonic/gin"
)

type routeRegistrar interface {
	RegisterRoutes(r *gin.Engine)
}

// NewRouter builds the engine with identity and request id middleware in front of every route.
func NewRouter(jwtSecret string, handlers ...routeRegistrar) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Identity(jwtSecret))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
	return router
}
