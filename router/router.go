package router

import (
	"posevault/config"
	"posevault/internal/app"
	"posevault/internal/handler"
	"posevault/internal/logger"
	"posevault/internal/metrics"
	"posevault/utils"

	"github.com/gin-gonic/gin"
)

// Handlers groups the route handlers.
type Handlers struct {
	Share    *handler.ShareHandler
	Object   *handler.ObjectHandler
	Owner    *handler.OwnerHandler
	Internal *handler.InternalHandler

	OwnerAuth   utils.Verifier
	ServiceAuth utils.Verifier
	ViewerLimit *utils.IPRateLimiter
}

// NewHandlers builds handlers over the app services.
func NewHandlers(a *app.App) Handlers {
	cfg := a.Config
	return Handlers{
		Share: &handler.ShareHandler{
			Shares:            a.Shares,
			Uploads:           a.Uploads,
			Proxy:             a.Proxy,
			MaxMultipartBytes: cfg.MaxMultipartBytes,
		},
		Object: &handler.ObjectHandler{Proxy: a.Proxy},
		Owner: &handler.OwnerHandler{
			Galleries:  a.Galleries,
			Manager:    a.Manager,
			Aggregator: a.Aggregator,
		},
		Internal: &handler.InternalHandler{
			Dispatcher: a.Dispatcher,
			Aggregator: a.Aggregator,
			Sweeper:    a.Sweeper,
		},
		OwnerAuth:   utils.NewJWTVerifier(cfg.JWTSecret),
		ServiceAuth: utils.NewServiceVerifier(cfg.ServiceToken),
		ViewerLimit: utils.NewIPRateLimiter(cfg.ViewerRate, cfg.ViewerBurst),
	}
}

// InitRouter builds API routes.
func InitRouter(cfg config.Config, h Handlers) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(utils.MethodNotAllowed)
	r.NoRoute(utils.RouteNotFound)
	r.Use(logger.Middleware(), gin.Recovery(), utils.CORSMiddleware())

	r.GET("/metrics", metrics.Handler())
	r.GET("/healthz", func(c *gin.Context) { utils.OK(c, nil) })

	api := r.Group("/api")
	{
		share := api.Group("/share")
		if h.ViewerLimit != nil {
			share.Use(utils.RateLimitMiddleware(h.ViewerLimit))
		}
		{
			share.POST("/gallery", h.Share.Gallery)
			share.GET("/image", h.Share.Image)
			share.POST("/upload", h.Share.Upload)
			share.POST("/viewer", h.Share.RegisterViewer)
			share.POST("/favorite", h.Share.Favorite)
			share.POST("/comment", h.Share.Comment)
		}

		owner := api.Group("")
		owner.Use(utils.AuthMiddleware(h.OwnerAuth))
		{
			owner.GET("/objects/*key", h.Object.Get)
			owner.DELETE("/objects/*key", h.Object.Delete)
			owner.POST("/objects", h.Object.Upload)

			owner.GET("/galleries", h.Owner.ListGalleries)
			owner.PUT("/galleries", h.Owner.PutGalleries)

			owner.POST("/shares", h.Owner.CreateShare)
			owner.POST("/shares/:id/deactivate", h.Owner.DeactivateShare)
			owner.GET("/shares/:id/activity", h.Owner.ShareActivity)
		}

		internal := api.Group("/internal")
		internal.Use(utils.AuthMiddleware(h.ServiceAuth))
		{
			internal.POST("/notifications", h.Internal.CreateNotification)
			internal.POST("/activity", h.Internal.Activity)
			internal.POST("/sweep", h.Internal.Sweep)
		}
	}
	return r
}
