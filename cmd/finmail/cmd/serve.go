package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"finmail/internal/db"
	"finmail/internal/export"
	"finmail/internal/http/middleware"
	"finmail/internal/http/router"
	"finmail/internal/mailsync"
	"finmail/internal/security"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionSweepInterval = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API in the foreground.

When sync.schedule is set (cron format: minute hour day-of-month month
day-of-week) mail sync also runs on that schedule. Manual syncs are always
available through POST /api/sync.

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ctx := cmd.Context()

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	auth, err := security.NewAuthenticator(database, security.NewBcryptVerifier(0))
	if err != nil {
		return fmt.Errorf("create authenticator: %w", err)
	}
	store, err := security.NewStore(cfg.StoreConfig(), database)
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}

	sched := mailsync.NewScheduler(mailsync.NewStubSyncer(), logger)
	if err := sched.SetSchedule(cfg.Sync.Schedule); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	limiter := middleware.NewRateLimiter(cfg.Server.LoginRate, cfg.Server.LoginBurst)
	defer limiter.Close()

	handler := router.Setup(router.Deps{
		DB:             database,
		Auth:           auth,
		Sessions:       security.NewSessionManager(store),
		Exporter:       export.NewDriveExporter(cfg.Export.DriveBaseURL),
		Sync:           sched,
		LoginLimiter:   limiter,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	if cfg.Session.Backend == security.BackendDatabase {
		go sweepSessions(ctx, database, sessionSweepInterval)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("server started",
		"addr", srv.Addr,
		"driver", database.Driver(),
		"session_backend", cfg.Session.Backend,
		"sync_schedule", cfg.Sync.Schedule,
	)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// sweepSessions deletes expired server-side sessions until ctx is done.
func sweepSessions(ctx context.Context, database *db.DB, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := database.DeleteExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("session sweep failed", "error", err)
			}
		}
	}
}
