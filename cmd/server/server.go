package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/axellelanca/magiccode/cmd"
	"github.com/axellelanca/magiccode/internal/api"
	"github.com/axellelanca/magiccode/internal/assets"
	"github.com/axellelanca/magiccode/internal/auth"
	"github.com/axellelanca/magiccode/internal/database"
	"github.com/axellelanca/magiccode/internal/idcipher"
	"github.com/axellelanca/magiccode/internal/monitor"
	"github.com/axellelanca/magiccode/internal/repository"
	"github.com/axellelanca/magiccode/internal/services"
	"github.com/axellelanca/magiccode/internal/shortcode"
)

const shutdownTimeout = 15 * time.Second

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the Magic Code HTTP server and its background workers.",
	Long: `This command opens and migrates the database, starts the asset cleanup
workers and the orphan sweeper, then serves the public and API routes.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}

func run() error {
	cfg := cmd.Cfg

	db, err := cmd.OpenDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	recordRepo := repository.NewRecordRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	log.Info().Msg("Repositories initialised")

	ids, err := idcipher.New(cfg.Security.IDSecret)
	if err != nil {
		return fmt.Errorf("security.id_secret: %w", err)
	}
	jwtManager, err := auth.NewManager(cfg.Security.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return fmt.Errorf("security.jwt_secret: %w", err)
	}

	uploads, err := assets.New(assets.Config{
		RootDir:     cfg.Storage.UploadDir,
		WorkerCount: cfg.Cleanup.WorkerCount,
		BufferSize:  cfg.Cleanup.BufferSize,
	})
	if err != nil {
		return err
	}
	defer uploads.Close()

	resolver := services.NewResolver(recordRepo, cfg.Server.BaseURL, cfg.Cache.Size, cfg.CacheTTL())
	recordService := services.NewRecordService(recordRepo, accountRepo, shortcode.NewGenerator(), uploads, resolver)
	recordService.ReserveCodes(api.ReservedCodes(uploads.URLPrefix())...)
	adminService := services.NewAdminService(accountRepo, recordRepo, ids)
	log.Info().Msg("Services initialised")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Cleanup.SweepIntervalMinutes > 0 {
		sweeper := monitor.NewAssetSweeper(recordRepo, uploads,
			time.Duration(cfg.Cleanup.SweepIntervalMinutes)*time.Minute,
			time.Duration(cfg.Cleanup.GraceMinutes)*time.Minute)
		go sweeper.Start(ctx)
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(api.RequestID(), api.Recovery(), api.Logger(), api.Metrics())
	api.SetupRoutes(router, api.Dependencies{
		Resolver:        resolver,
		Records:         recordService,
		Admin:           adminService,
		Uploads:         uploads,
		Auth:            jwtManager,
		BaseURL:         cfg.Server.BaseURL,
		MaxUploadBytes:  cfg.MaxUploadBytes(),
		RecordsPerPage:  cfg.Admin.RecordsPerPage,
		AccountsPerPage: cfg.Admin.AccountsPerPage,
	})
	log.Info().Msg("Routes configured")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Forced server shutdown")
	}
	log.Info().Msg("Waiting for pending asset removals")
	return nil
}
