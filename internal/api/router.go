package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter mounts the message API under /api/messages. socket serves the
// realtime channel at /api/messages/socket.
func NewRouter(h *Handler, socket http.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	messages := router.Group("/api/messages")
	{
		messages.POST("", h.CreateMessage)
		messages.GET("/my-ip", h.MyIP)
		messages.GET("/nearby", h.Nearby)
		messages.GET("/inbox", h.Inbox)
		messages.GET("/sent", h.Sent)
		messages.GET("/socket", gin.WrapF(socket))
		messages.GET("/status/:status", h.ByStatus)
		messages.GET("/:id", h.GetMessage)
		messages.POST("/:id/cancel", h.CancelMessage)
		messages.DELETE("/:id", h.DeleteMessage)
	}
	return router
}
