package http

import (
	"time"

	"task_manager/internal/http/handlers"
	"task_manager/internal/http/middleware"
	"task_manager/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig carries the limits and origin used when wiring routes.
type RouteConfig struct {
	AllowedOrigin  string
	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
	WSRateLimit    int
	WSRateWindow   time.Duration
}

// NewRouter builds the engine with the global middleware chain.
func NewRouter(cfg RouteConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.Metrics(),
		middleware.CORS(cfg.AllowedOrigin),
	)
	r.NoRoute(handlers.NotFound)
	return r
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, hub *ws.Hub, cfg RouteConfig) {
	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live change events for the caller
	r.GET("/ws",
		middleware.RateLimit("ws", cfg.WSRateLimit, cfg.WSRateWindow),
		ws.HandleWS(hub, h.Auth, cfg.AllowedOrigin),
	)

	protect := middleware.Auth(h.Auth)
	authRL := middleware.RateLimit("auth", cfg.AuthRateLimit, cfg.AuthRateWindow)

	api := r.Group("/api")
	api.Use(middleware.RateLimit("api", cfg.APIRateLimit, cfg.APIRateWindow))

	auth := api.Group("/auth")
	{
		auth.POST("/register", authRL, h.Register)
		auth.POST("/login", authRL, h.Login)
		auth.GET("/users", protect, h.ListUsers)
		auth.GET("/me", protect, h.Me)
	}

	project := api.Group("/project", protect)
	{
		project.GET("", h.ListProjects)
		project.POST("", h.CreateProject)
		project.PUT("/:id", h.UpdateProject)
		project.DELETE("/:id", h.DeleteProject)
	}

	task := api.Group("/task", protect)
	{
		task.GET("/:projectId", h.ListTasks)
		task.POST("", h.CreateTask)
		task.PUT("/:taskId", h.UpdateTask)
		task.DELETE("/:taskId", h.DeleteTask)
	}
}
