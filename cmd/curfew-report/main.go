package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curfew-report/internal/config"
	"curfew-report/internal/database"
	httpapi "curfew-report/internal/http"
	"curfew-report/internal/logger"
	"curfew-report/internal/repository"
	"curfew-report/internal/service"
	"curfew-report/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 串行任务队列中相邻任务的间隔，给门禁系统留出会话冷却时间
const taskDelay = 30 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Redis 仅用于 Web 会话；未启用时用内存会话（单机部署）
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
		log.Info("Redis session store enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		kv = store.NewMemoryKV()
	}

	configRepo := repository.NewPostgresConfigRepository(db)
	usersRepo := repository.NewPostgresUsersRepository(db)
	opLogsRepo := repository.NewPostgresOperationLogsRepository(db)
	tasksRepo := repository.NewPostgresEmailTasksRepository(db)
	taskLogsRepo := repository.NewPostgresTaskLogsRepository(db)

	pipeline := service.NewPipeline(configRepo, cfg.Portal, cfg.Results.Root, log)
	sender := service.NewEmailSender(configRepo, log)
	runner := service.NewTaskRunner(pipeline, sender, taskLogsRepo, taskDelay, log)
	scheduler := service.NewScheduler(configRepo, tasksRepo, runner, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	sessions := httpapi.NewSessionManager(kv)
	router := httpapi.NewRouter(log)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(usersRepo, opLogsRepo, sessions, log))
	router.RegisterQueryRoutes(httpapi.NewQueryHandler(pipeline, usersRepo, opLogsRepo, sessions, cfg.Results.Root, log))
	router.RegisterAdminRoutes(httpapi.NewAdminHandler(
		usersRepo, configRepo, tasksRepo, taskLogsRepo, opLogsRepo,
		scheduler, runner, sessions, log,
	))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
		cancel()
	}

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
