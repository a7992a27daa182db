package http

import (
	"net/http"

	authzapp "github.com/astro-web3/coffee-drinks/internal/app/authz"
	"github.com/astro-web3/coffee-drinks/internal/config"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	permGetDrinksDetail = "get:drinks-detail"
	permPostDrinks      = "post:drinks"
	permPatchDrinks     = "patch:drinks"
	permDeleteDrinks    = "delete:drinks"
)

// NewRouter builds the drinks API. metrics may be nil when metrics are
// disabled.
func NewRouter(handler *Handler, authorizer authzapp.Service, cfg *config.Config, metrics http.Handler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(gin.Recovery())
	if cfg.Observability.TraceEnabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	router.GET("/", handler.ListDrinks)
	router.GET("/drinks", handler.ListDrinks)
	router.GET("/drinks-detail", requirePermission(authorizer, permGetDrinksDetail), handler.ListDrinkDetails)
	router.POST("/drinks", requirePermission(authorizer, permPostDrinks), handler.CreateDrink)
	router.PATCH("/drinks/:id", requirePermission(authorizer, permPatchDrinks), handler.UpdateDrink)
	router.DELETE("/drinks/:id", requirePermission(authorizer, permDeleteDrinks), handler.DeleteDrink)

	router.NoRoute(func(c *gin.Context) {
		writeError(c, errNotFound)
	})
	router.NoMethod(func(c *gin.Context) {
		writeError(c, errMethodNotAllowed)
	})

	return router
}
