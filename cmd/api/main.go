package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"radiology-worklist/internal/config"
	"radiology-worklist/internal/logger"
	"radiology-worklist/internal/pacs"
	"radiology-worklist/internal/report"
	"radiology-worklist/internal/session"
	"radiology-worklist/internal/store"
	"radiology-worklist/internal/worklist"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "radiology-worklist"

func main() {
	rootCmd := &cobra.Command{
		Use:   "worklist-server",
		Short: "Radiology worklist and reporting server",
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the worklist web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional env file; environment variables take precedence")
	return cmd
}

func runServer(envFile string) error {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := buildServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	go srv.views.Run(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", httpServer.Addr), zap.String("archive", cfg.ArchiveRoot))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// buildServer wires the archive client, stores and session handling from
// cfg. Postgres and Redis are used when configured, in-memory stores
// otherwise.
func buildServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	policy, err := worklist.ParseAbsentPolicy(cfg.AbsentFieldPolicy)
	if err != nil {
		return nil, nil, err
	}

	accounts, err := session.ParseAccounts(cfg.Accounts)
	if err != nil {
		return nil, nil, fmt.Errorf("ACCOUNTS: %w", err)
	}
	if len(accounts) == 0 {
		log.Warn("no accounts configured; nobody can sign in")
	}
	secret := cfg.SessionSecret
	if secret == "" {
		secret = randomSecret()
		log.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	tokens := session.NewTokens(secret, cfg.SessionTTL)

	archive := pacs.NewClient(pacs.Config{
		ArchiveRoot: cfg.ArchiveRoot,
		ViewerRoot:  cfg.ViewerRoot,
		Timeout:     cfg.RequestTimeout,
	}, log.Named("pacs"))

	var drafts report.DraftStore = store.NewMemoryDraftStore()
	if cfg.RedisURL != "" {
		rdb, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { rdb.Close() })
		drafts = store.NewRedisDraftStore(rdb, cfg.DraftTTL)
		log.Info("drafts stored in redis")
	}

	var submissions report.SubmissionLog = store.NewMemorySubmissionLog()
	if cfg.DatabaseURL != "" {
		conn, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { conn.Close() })
		submissions = store.NewPostgresSubmissionLog(conn)
		log.Info("submission log stored in postgres")
	}

	composer := report.NewComposer(report.Observer{
		Organization: cfg.VerifyingOrganization,
		Name:         cfg.VerifyingObserverName,
	})
	modalities := cfg.Modalities()
	viewLog := log.Named("worklist")

	srv := &server{
		logger:  log,
		render:  newRenderer(cfg.TemplateDir, log),
		archive: archive,
		views: worklist.NewRegistry(func() *worklist.View {
			return worklist.NewView(archive, worklist.ViewConfig{
				Modalities: modalities,
				Location:   loc,
				Policy:     policy,
			}, viewLog)
		}, cfg.ViewIdleTimeout, viewLog),
		reports:    report.NewService(archive, drafts, submissions, composer, log.Named("report")),
		gate:       session.NewGate(session.NewStaticAuthenticator(accounts)),
		sessions:   session.NewManager(tokens, !cfg.IsDev()),
		modalities: modalities,
		loc:        loc,
		secure:     !cfg.IsDev(),
	}
	return srv, cleanup, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
