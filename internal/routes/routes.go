package routes

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the booking API under /api and the operator pages at the
// root.
func RegisterRoutes(r *gin.Engine, d *Deps) {
	api := r.Group("/api")
	BookingApi(api, d)

	root := r.Group("/")
	ApprovePage(root)
	Health(root)
}
