package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taskrank-backend-go/internal/handler"
	"github.com/jengzang/taskrank-backend-go/internal/middleware"
	"github.com/jengzang/taskrank-backend-go/pkg/response"
)

// RouterOptions holds what the router wires together
type RouterOptions struct {
	Tasks *handler.TaskHandler
	// Limiter is optional; nil disables rate limiting.
	Limiter      *middleware.RateLimiter
	MaxBodyBytes int64
}

// SetupRouter builds the gin engine. Every task route answers with and
// without its trailing slash.
func SetupRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "TaskRank API is running",
		})
	})

	api := r.Group("/api")
	api.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	if opts.Limiter != nil {
		api.Use(middleware.RateLimit(opts.Limiter))
	}
	{
		tasks := api.Group("/tasks")
		handle(tasks, http.MethodPost, "/analyze", opts.Tasks.Analyze)
		handle(tasks, http.MethodGet, "/suggest", opts.Tasks.Suggest)
		handle(tasks, http.MethodPost, "/suggest", opts.Tasks.SuggestInline)
		handle(tasks, http.MethodGet, "", opts.Tasks.List)
		handle(tasks, http.MethodDelete, "", opts.Tasks.Clear)
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	return r
}

// handle registers h at path and path + "/"
func handle(g *gin.RouterGroup, method, path string, h gin.HandlerFunc) {
	g.Handle(method, path+"/", h)
	g.Handle(method, path, h)
}
