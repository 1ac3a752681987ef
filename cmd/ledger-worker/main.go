// cmd/ledger-worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gp "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/payment-settlement/internal/config"
	"github.com/example/payment-settlement/internal/httpapi"
	"github.com/example/payment-settlement/internal/ledger"
	"github.com/example/payment-settlement/internal/queue"
	"github.com/example/payment-settlement/pkg/logging"
)

const serviceName = "ledger-worker"

var Version = "dev"

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Ledger service: credits bonuses from settlement events",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(balanceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var httpAddr, grpcAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume settlement events and serve balances over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg := config.LoadLedger()
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if grpcAddr != "" {
				cfg.GRPCAddr = grpcAddr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides GRPC_ADDR)")
	return cmd
}

func serve(parent context.Context, cfg config.Ledger) error {
	logger, err := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(orBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := ledger.NewService(ledger.NewMemoryBalances(), logger.Named("ledger"))

	// declaring is idempotent; both services may race to create the queue
	if err := queue.DeclareTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Queue); err != nil {
		logger.Error("declare queue", zap.String("queue", cfg.Kafka.Queue), zap.Error(err))
		return err
	}
	consumer := queue.NewConsumer(queue.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Queue:   cfg.Kafka.Queue,
		GroupID: cfg.ConsumerGroup,
	}, svc.SettlementHandler(cfg.AccrualRate), logger.Named("consumer"))
	defer consumer.Close()

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(gp.UnaryServerInterceptor),
		grpc.StreamInterceptor(gp.StreamServerInterceptor),
	)
	ledger.RegisterGRPC(grpcServer, svc)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ledger.GRPCServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	gp.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewLedgerRouter(httpapi.LedgerDeps{
			Service:         svc,
			Auth:            httpapi.NewAuthenticator(cfg.Auth.SecretKey, cfg.Auth.Algorithm, logger.Named("auth")),
			ConsumerRunning: consumer.Running,
			Logger:          logger.Named("http"),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("consuming", zap.String("queue", cfg.Kafka.Queue),
			zap.String("group", cfg.ConsumerGroup),
			zap.Float64("accrual_rate", cfg.AccrualRate))
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("serving gRPC", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		healthServer.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func balanceCmd() *cobra.Command {
	var grpcAddr string
	cmd := &cobra.Command{
		Use:   "balance [user_id]",
		Short: "Query a running ledger for a user's bonus balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			if grpcAddr == "" {
				grpcAddr = config.LoadLedger().GRPCAddr
			}

			conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("connect ledger %s: %w", grpcAddr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(orBackground(cmd.Context()), 5*time.Second)
			defer cancel()
			balance, err := ledger.NewBalanceClient(conn).GetBalance(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get balance: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", args[0], balance)
			return nil
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "ledger gRPC address (defaults to GRPC_ADDR)")
	return cmd
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
