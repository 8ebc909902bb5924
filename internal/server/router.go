package server

import (
	"github.com/nartay/alumbook/internal/album"
	"github.com/nartay/alumbook/internal/auth"
	"github.com/nartay/alumbook/internal/config"
	"github.com/nartay/alumbook/internal/logger"
	"github.com/nartay/alumbook/internal/media"
	"github.com/nartay/alumbook/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config       config.Config
	DB           *pgxpool.Pool
	ObjectStore  *minio.Client
	AuthService  *auth.Service
	AlbumService *album.Service
	MediaService *media.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)

		protected := api.Group("/")
		protected.Use(auth.Middleware(deps.AuthService))

		if deps.AlbumService != nil {
			album.RegisterRoutes(protected, deps.AlbumService)
		}
		if deps.MediaService != nil {
			media.RegisterRoutes(protected, deps.MediaService)

			admin := protected.Group("/admin")
			admin.Use(auth.RequireAdmin())
			media.RegisterAdminRoutes(admin, deps.MediaService)
		}
	}

	return router
}
