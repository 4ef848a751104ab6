package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-equipment-api/controllers"
	"lab-equipment-api/logger"
	"lab-equipment-api/middleware"
	"lab-equipment-api/storage"
)

// multipart framing and the text fields on top of the photo itself
const formOverhead = 1 << 20

type Dependencies struct {
	Equipment      *controllers.EquipmentController
	Health         *controllers.HealthController
	Metrics        *middlewares.Metrics
	Logger         *zap.Logger
	AllowedOrigins []string
	MaxPhotoBytes  int64
	// UploadsDir is served under /uploads when photos are kept locally.
	UploadsDir string
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.MaxMultipartMemory = deps.MaxPhotoBytes

	r.Use(middlewares.Recovery(deps.Logger))
	r.Use(middlewares.RequestID())
	r.Use(logger.GinMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(corsMiddleware(deps.AllowedOrigins))

	r.NoRoute(middlewares.NotFound)

	r.GET("/health", deps.Health.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics.Handler())
	}

	SetupEquipmentRoutes(r, deps.Equipment, deps.MaxPhotoBytes+formOverhead)

	if deps.UploadsDir != "" {
		r.Static(storage.UploadsRoute, deps.UploadsDir)
	}
	return r
}

func SetupEquipmentRoutes(r *gin.Engine, h *controllers.EquipmentController, bodyLimit int64) {
	equipments := r.Group("/equipments", middlewares.BodyLimit(bodyLimit))
	equipments.GET("", h.List)
	equipments.POST("", h.Create)
	equipments.GET("/:id", h.Get)
	equipments.PUT("/:id", h.UpdateStatus)
	equipments.DELETE("/:id", h.Delete)
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        10 * time.Minute,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}
