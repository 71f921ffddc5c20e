package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rent-billing/internal/auth"
	billinghttp "rent-billing/internal/billing/interfaces/http"
	notificationshttp "rent-billing/internal/notifications/interfaces/http"
	occupancyhttp "rent-billing/internal/occupancy/interfaces/http"
)

const (
	dispatchInterval = 5 * time.Second
	shutdownTimeout  = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the job scheduler and the outbox dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		if err := cfg.RequireServe(); err != nil {
			return err
		}
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, err := a.routes()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.dispatcher.Run(ctx, dispatchInterval)
	a.scheduler.Start()
	a.logger.Info("billing jobs registered", zap.Strings("jobs", a.jobs.Names()), zap.Bool("scheduled", a.cfg.SchedulerEnabled))

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown failed", zap.Error(err))
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop failed", zap.Error(err))
	}
	return serveErr
}

func (a *app) routes() (http.Handler, error) {
	loc := a.cfg.Location()
	invoiceHandler, err := billinghttp.NewInvoiceHandler(a.invoices, a.generator, a.audit, loc, a.logger)
	if err != nil {
		return nil, err
	}
	configHandler, err := billinghttp.NewConfigHandler(a.configs, a.audit, a.logger)
	if err != nil {
		return nil, err
	}
	jobsHandler, err := billinghttp.NewJobsHandler(a.jobs, a.scheduler, a.audit, a.logger)
	if err != nil {
		return nil, err
	}
	unitHandler, err := occupancyhttp.NewUnitHandler(a.occupancy, a.audit, a.logger)
	if err != nil {
		return nil, err
	}
	inboxHandler, err := notificationshttp.NewHandler(a.inbox, a.logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/invoices", invoiceHandler)
	mux.Handle("/api/v1/invoices/", invoiceHandler)
	mux.Handle("/api/v1/billing-config", configHandler)
	mux.Handle("/api/v1/jobs", jobsHandler)
	mux.Handle("/api/v1/jobs/", jobsHandler)
	mux.Handle("/api/v1/units/", unitHandler)
	mux.Handle("/api/v1/notifications", inboxHandler)
	mux.Handle("/api/v1/notifications/", inboxHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", a.healthz)

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(a.cfg.JWTSecret), policy)
	return loggingMiddleware(authMiddleware.Wrap(mux), a.logger), nil
}

func (a *app) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.db.PingContext(ctx); err != nil {
		http.Error(w, "db unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
