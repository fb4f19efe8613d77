package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contactrelay/internal/session"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	contactHandler *ContactHandler,
	themeHandler *ThemeHandler,
	issuer *session.Issuer,
	pingers []Pinger,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware(), LoggerMiddleware(logger))

	// Health endpoints
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	head := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/healthz", ok)
	r.HEAD("/healthz", head)
	r.GET("/health", ok)
	r.HEAD("/health", head)

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for _, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": p.Name() + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/contact/session", contactHandler.NewSession)

		form := api.Group("/contact")
		form.Use(FormTokenMiddleware(issuer))
		{
			form.POST("", contactHandler.Submit)
			form.POST("/field", contactHandler.Field)
			form.GET("/status", contactHandler.Status)
		}

		api.GET("/theme", themeHandler.Get)
		api.PUT("/theme", themeHandler.Put)
		api.POST("/theme/toggle", themeHandler.Toggle)
	}

	return &Router{Engine: r}
}

func (r *Router) Handler() http.Handler {
	return r.Engine
}
