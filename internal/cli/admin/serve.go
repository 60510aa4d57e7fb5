package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/financelm/internal/api/handlers"
	"github.com/cloo-solutions/financelm/internal/jobs"
	"github.com/cloo-solutions/financelm/internal/server"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the finance-lm API server with the background import and embedding jobs",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from FINANCELM_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-jobs", false, "Do not run background jobs")
	cmd.Flags().Bool("watch", true, "Import files as soon as they land in the inbox directory")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	app, err := NewApp(ctx, appOptions{migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer app.Close()
	cfg := app.Config

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	var worker *jobs.Worker
	if noJobs, _ := cmd.Flags().GetBool("no-jobs"); !noJobs {
		worker = jobs.NewWorker(app.Scheduler, cfg.JobInterval)
		go worker.Start(ctx)
		log.Printf("job worker started (jobs: %v)", app.Scheduler.Jobs())

		if watch, _ := cmd.Flags().GetBool("watch"); watch && app.Inbox != nil {
			watcher := jobs.NewInboxWatcher(app.Inbox.Root(), jobs.DefaultWatchDebounce, app.Scheduler, app.ImportJob)
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					log.Printf("inbox watcher stopped: %v", err)
				}
			}()
		}
	}

	router := server.NewRouter(server.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(app.DB, handlers.VersionInfo{
			AppName:     cfg.AppName,
			AppVersion:  cfg.AppVersion,
			Environment: cfg.AppEnv,
		}),
		DocumentHandler: handlers.NewDocumentHandler(app.Ingestion, app.Documents),
		QAHandler:       handlers.NewQAHandler(app.QA),
		APIToken:        cfg.APIToken,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
