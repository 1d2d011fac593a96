package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/messaging"
	"github.com/Govind-619/MemberSphere/metrics"
	"github.com/Govind-619/MemberSphere/routes"
	"github.com/Govind-619/MemberSphere/scheduler"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/Govind-619/MemberSphere/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// app holds what every command needs once the store is ready
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	ledger     *services.Ledger
	membership *services.MembershipService
	wallet     *services.WalletService
}

// bootstrap loads configuration, initializes logging and prepares the
// database with its seed catalog
func bootstrap() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := utils.InitLogger(cfg.LogDir, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		return nil, err
	}
	if err := config.SeedPlans(db); err != nil {
		return nil, err
	}

	clock := utils.SystemClock{}
	ledger := services.NewLedger(db)
	return &app{
		cfg:        cfg,
		db:         db,
		ledger:     ledger,
		membership: services.NewMembershipService(db, ledger, clock),
		wallet:     services.NewWalletService(db, ledger, clock),
	}, nil
}

func (a *app) reconciler() *scheduler.Reconciler {
	return scheduler.NewReconciler(a.db, a.ledger, utils.SystemClock{},
		scheduler.WithSchedule(a.cfg.RenewalSchedule),
		scheduler.WithMetrics(metrics.Default()),
	)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		utils.LogInfo("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	utils.LogInfo("Shutting down HTTP server on %s", srv.Addr)
	return srv.Shutdown(shutdownCtx)
}

func newServeCommand() *cobra.Command {
	var withScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			if withScheduler {
				r := a.reconciler()
				if err := r.Start(ctx); err != nil {
					return err
				}
				defer func() { <-r.Stop().Done() }()
			}

			router := routes.SetupRouter(routes.Dependencies{
				Membership: a.membership,
				Wallet:     a.wallet,
				JWTSecret:  a.cfg.JWTSecret,
				CORSOrigin: a.cfg.CORSOrigin,
			})
			return serveHTTP(ctx, &http.Server{Addr: ":" + a.cfg.Port, Handler: router})
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the renewal reconciler in this process")
	return cmd
}

func newWorkerCommand() *cobra.Command {
	var withScheduler bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume commands from the core queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			transport, err := messaging.DialAMQP(messaging.AMQPConfig{
				URLs:     a.cfg.RabbitMQURIs,
				Queue:    a.cfg.CoreQueue,
				Durable:  a.cfg.QueueDurable,
				Prefetch: a.cfg.Prefetch,
			})
			if err != nil {
				return err
			}
			defer transport.Close()

			// the sweep command is always served; the timer runs only where
			// asked, normally in a single `reconcile` process
			reconciler := a.reconciler()
			if withScheduler {
				if err := reconciler.Start(ctx); err != nil {
					return err
				}
				defer func() { <-reconciler.Stop().Done() }()
			}

			router := messaging.NewRouter()
			worker.NewHandlers(a.membership, a.wallet, reconciler).Register(router)
			consumer := messaging.NewConsumer(transport, router, messaging.ConsumerConfig{
				Concurrency: a.cfg.WorkerConcurrency,
				Timeout:     a.cfg.WorkerTimeout,
			}, metrics.Default())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return consumer.Run(gctx) })
			if a.cfg.MetricsAddr != "" {
				g.Go(func() error {
					mux := http.NewServeMux()
					mux.Handle("/metrics", metrics.Handler())
					return serveHTTP(gctx, &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux})
				})
			}
			utils.LogInfo("Worker consuming %s with %d handlers", a.cfg.CoreQueue, len(router.Commands()))
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the renewal timer in this process")
	return cmd
}

func newReconcileCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Renew or expire due subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			r := a.reconciler()
			if once {
				result, err := r.Sweep(ctx)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}

			if err := r.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			<-r.Stop().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and print its result")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed the default plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bootstrap(); err != nil {
				return err
			}
			utils.LogInfo("Database is up to date")
			return nil
		},
	}
}
