package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/libraria-al/libraria/internal/auth"
	"github.com/libraria-al/libraria/internal/config"
	"github.com/libraria-al/libraria/internal/database"
	"github.com/libraria-al/libraria/internal/database/books"
	"github.com/libraria-al/libraria/internal/database/ledger"
	"github.com/libraria-al/libraria/internal/database/users"
	http_controllers "github.com/libraria-al/libraria/internal/http"
	"github.com/libraria-al/libraria/internal/quota"
	"github.com/libraria-al/libraria/internal/rental"
	"github.com/libraria-al/libraria/internal/scheduler"
	"github.com/libraria-al/libraria/internal/security"
	"github.com/libraria-al/libraria/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so in-flight transactions
	// can still commit.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the engine together and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Libraria access engine v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ledgerRepo := ledger.NewRepository(db.DB)
	booksRepo := books.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB, users.Defaults{
		Tier:          cfg.Quota.DefaultTier,
		MaxConcurrent: cfg.Quota.DefaultMaxConcurrent,
	})

	quotaEnforcer := quota.NewEnforcer(db.DB, ledgerRepo, usersRepo, booksRepo, cfg.Quota.AudiobookRentalDays)
	rentalService := rental.NewService(db.DB, ledgerRepo, booksRepo, cfg.Rental.DefaultRentalDays)
	securityMonitor := security.NewMonitor(db.DB, ledgerRepo)

	// Task queue for event retention
	var taskClient *tasks.Client
	var retention *scheduler.RetentionScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		taskClient.Register(tasks.NewCleanupAccessEventsQueue(ledgerRepo))

		taskCtx, taskCancel := context.WithCancel(context.Background())
		defer taskCancel()
		go taskClient.Start(taskCtx)

		retention = scheduler.NewRetentionScheduler(taskClient, cfg.Retention.EventRetentionDays)
		if err := retention.Start(cfg.Retention.Schedule); err != nil {
			log.Fatalf("Failed to start retention scheduler: %v", err)
		}
	}

	var sweeper *scheduler.ExpirySweeper
	if cfg.Sweep.Enabled {
		sweeper = scheduler.NewExpirySweeper(db.DB, ledgerRepo)
		if err := sweeper.Start(cfg.Sweep.Schedule); err != nil {
			log.Fatalf("Failed to start expiry sweeper: %v", err)
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Version:        version,
		AuthMiddleware: auth.NewMiddleware(usersRepo),
		Quota:          quotaEnforcer,
		Catalog:        booksRepo,
		Security:       securityMonitor,
		Rentals:        rentalService,
	})

	Serve(router, cfg, func(ctx context.Context) {
		if sweeper != nil {
			sweeper.Stop()
		}
		if retention != nil {
			retention.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskClient.Close()
		}
	})
}
