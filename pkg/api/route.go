package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoute binds the handler to the v1 route group
func SetupRoute(r *gin.RouterGroup, hdlr Handler) {
	r.POST("/recommend", func(c *gin.Context) {
		resp, err := hdlr.Recommend(c)
		sendResponse(c, resp, err)
	})
	r.POST("/parse", func(c *gin.Context) {
		resp, err := hdlr.ParseLogs(c)
		sendResponse(c, resp, err)
	})
}
