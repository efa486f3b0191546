// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"rwpay/internal/infrastructure/http/v1/middleware"
)

// CRUDRouteHandler defines the handlers of a catalog resource.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterCRUDRoutes registers list/get under readPerm and create/update/delete under writePerm.
//
// Usage:
//
//	RegisterCRUDRoutes(v1.Group("/residents"), residentHandler, auth.PermResidentsRead, auth.PermResidentsWrite)
func RegisterCRUDRoutes(group *gin.RouterGroup, handler CRUDRouteHandler, readPerm, writePerm string) {
	group.GET("", middleware.RequirePermission(readPerm), handler.List)
	group.POST("", middleware.RequirePermission(writePerm), handler.Create)
	group.GET("/:id", middleware.RequirePermission(readPerm), handler.Get)
	group.PUT("/:id", middleware.RequirePermission(writePerm), handler.Update)
	group.DELETE("/:id", middleware.RequirePermission(writePerm), handler.Delete)
}
