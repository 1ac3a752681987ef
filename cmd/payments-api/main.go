// cmd/payments-api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/payment-settlement/internal/carclient"
	"github.com/example/payment-settlement/internal/config"
	"github.com/example/payment-settlement/internal/httpapi"
	"github.com/example/payment-settlement/internal/payment"
	"github.com/example/payment-settlement/internal/queue"
	"github.com/example/payment-settlement/internal/worker"
	"github.com/example/payment-settlement/pkg/logging"
)

const serviceName = "payments-api"

var Version = "dev"

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Payment service: accepts payments and settles them in the background",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCarCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the settlement workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg := config.LoadPayments()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	return cmd
}

func serve(parent context.Context, cfg config.Payments) error {
	logger, err := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(orBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := queue.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Queue, logger.Named("publisher"))
	if err := publisher.Connect(ctx); err != nil {
		return err
	}
	defer publisher.Close()

	store := payment.NewMemoryStore()
	pool := worker.NewPool(cfg.SettlementWorkers, logger.Named("pool"))
	settler := payment.NewSettler(store, publisher, cfg.SettlementDelay, logger.Named("settlement"))
	svc := payment.NewService(store, pool, settler, payment.Options{
		Currency:            cfg.Currency,
		ConfirmationBaseURL: cfg.ConfirmationBaseURL,
	}, logger.Named("orchestrator"))

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewPaymentsRouter(httpapi.PaymentsDeps{
			Service:         svc,
			Auth:            httpapi.NewAuthenticator(cfg.Auth.SecretKey, cfg.Auth.Algorithm, logger.Named("auth")),
			DefaultAmount:   cfg.DefaultAmount,
			BrokerConnected: publisher.Connected,
			Logger:          logger.Named("http"),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr),
			zap.Duration("settlement_delay", cfg.SettlementDelay),
			zap.Int("settlement_workers", cfg.SettlementWorkers))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", zap.Error(err))
		}
		if err := pool.Shutdown(shutdownCtx); err != nil {
			logger.Warn("settlement tasks still running at exit", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func checkCarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-car [car_id]",
		Short: "Ask car-service whether a car exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg := config.LoadPayments()
			logger, err := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer logger.Sync()

			exists := carclient.New(cfg.CarServiceURL, logger.Named("car-client")).Exists(orBackground(cmd.Context()), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "car %s exists: %t\n", args[0], exists)
			return nil
		},
	}
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
