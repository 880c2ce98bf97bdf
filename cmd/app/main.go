package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task_manager/internal/config"
	"task_manager/internal/db"
	httpServer "task_manager/internal/http"
	"task_manager/internal/http/handlers"
	"task_manager/internal/http/middleware"
	"task_manager/internal/logger"
	"task_manager/internal/repository"
	"task_manager/internal/repository/memstore"
	"task_manager/internal/repository/mongostore"
	"task_manager/internal/service"
	"task_manager/internal/ws"

	"github.com/gin-gonic/gin"
)

var version = "dev"

type stores struct {
	users    service.UserStore
	projects service.ProjectStore
	tasks    service.TaskStore
	pinger   handlers.Pinger
	close    func()
}

func openStores(cfg *config.Config) stores {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, database := db.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			logger.Fatal("failed to create mongo indexes", "error", err)
		}
		return stores{
			users:    mongostore.NewUserRepository(database),
			projects: mongostore.NewProjectRepository(database),
			tasks:    mongostore.NewTaskRepository(database),
			pinger:   db.MongoPinger{Client: client},
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}
	case config.StoreMemory:
		mem := memstore.New()
		return stores{
			users:    mem.Users(),
			projects: mem.Projects(),
			tasks:    mem.Tasks(),
			pinger:   mem,
			close:    func() {},
		}
	default:
		pool := db.Connect(cfg.DatabaseURL)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("failed to apply migrations", "error", err)
		}
		return stores{
			users:    repository.NewUserRepository(pool),
			projects: repository.NewProjectRepository(pool),
			tasks:    repository.NewTaskRepository(pool),
			pinger:   pool,
			close:    pool.Close,
		}
	}
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	st := openStores(cfg)
	defer st.close()

	hub := ws.NewHub()
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	h := handlers.NewHandler(
		service.NewAuthService(st.users, tokens, cfg.BcryptCost),
		service.NewProjectService(st.projects, hub),
		service.NewTaskService(st.projects, st.tasks, hub),
	)

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	routeCfg := httpServer.RouteConfig{
		AllowedOrigin:  cfg.AllowedOrigin,
		APIRateLimit:   cfg.APIRateLimit,
		APIRateWindow:  cfg.APIRateWindow,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		WSRateLimit:    cfg.WSRateLimit,
		WSRateWindow:   cfg.WSRateWindow,
	}
	r := httpServer.NewRouter(routeCfg)
	httpServer.RegisterRoutes(r, h, handlers.NewHealthHandler(st.pinger, cfg.StoreDriver, version, hub), hub, routeCfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
