package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/iam"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/printjobs"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/repairs"
	"github.com/meridian-erp/meridian-erp/internal/reports"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/vendors"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	resolver := authz.NewResolver(authz.NewRepository(pool))
	guard := authz.Guard{Logger: logger}

	recorder := audit.NewRecorder(audit.NewRepository(pool), logger)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	revoked := auth.NewRevocationList(redisClient)
	authService := auth.NewService(auth.NewRepository(pool), resolver, issuer, revoked)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Issuer: issuer, Revoked: revoked, Logger: logger}

	iamHandler := iam.NewHandler(iam.NewService(iam.NewRepository(pool), recorder), guard)
	auditHandler := audit.NewHandler(audit.NewRepository(pool), guard)
	salesHandler := sales.NewHandler(sales.NewService(sales.NewRepository(pool), recorder), guard)
	printJobsHandler := printjobs.NewHandler(printjobs.NewService(printjobs.NewRepository(pool), recorder), guard)
	procurementHandler := procurement.NewHandler(procurement.NewService(procurement.NewRepository(pool), recorder), guard)
	repairsHandler := repairs.NewHandler(repairs.NewService(repairs.NewRepository(pool), recorder), guard)
	accountingHandler := accounting.NewHandler(accounting.NewService(accounting.NewRepository(pool), recorder), guard)
	catalogHandler := catalog.NewHandler(catalog.NewService(catalog.NewRepository(pool), recorder), guard)
	vendorsHandler := vendors.NewHandler(vendors.NewService(vendors.NewRepository(pool), recorder), guard)
	inventoryHandler := inventory.NewHandler(inventory.NewService(inventory.NewRepository(pool), recorder), guard)
	reportsHandler := reports.NewHandler(reports.NewService(reports.NewRepository(pool)), guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Auth:               authMiddleware,
		AuthHandler:        authHandler,
		IAMHandler:         iamHandler,
		AuditHandler:       auditHandler,
		SalesHandler:       salesHandler,
		PrintJobsHandler:   printJobsHandler,
		ProcurementHandler: procurementHandler,
		RepairsHandler:     repairsHandler,
		AccountingHandler:  accountingHandler,
		CatalogHandler:     catalogHandler,
		VendorsHandler:     vendorsHandler,
		InventoryHandler:   inventoryHandler,
		ReportsHandler:     reportsHandler,
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
