package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/config"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
	"github.com/chandarr7/SmartParkIntelligence/internal/notify"
	"github.com/chandarr7/SmartParkIntelligence/internal/payments"
	"github.com/chandarr7/SmartParkIntelligence/internal/pricing"
	"github.com/chandarr7/SmartParkIntelligence/internal/storage/memory"
	"github.com/chandarr7/SmartParkIntelligence/internal/storage/postgres"
	"github.com/chandarr7/SmartParkIntelligence/internal/storage/sqlite"
	transporthttp "github.com/chandarr7/SmartParkIntelligence/internal/transport/http"
	"github.com/chandarr7/SmartParkIntelligence/migrations"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reservation engine daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// stores groups the three repositories regardless of backend.
type stores struct {
	zones    app.ZoneRepository
	permits  app.PermitRepository
	waitlist app.WaitlistRepository
	close    func()
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := log.Default()

	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st, err := openStores(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if err := seedZones(startupCtx, st.zones, cfg.Zones, logger); err != nil {
		return err
	}

	calendar, err := cfg.AcademicCalendar()
	if err != nil {
		return err
	}

	clk := clock.NewSystem()
	led := ledger.New()
	resolver := pricing.NewResolver(cfg.Rates(), pricing.DefaultAddOns())
	notifier := &notify.LogEmitter{Logger: logger}
	gateway := &payments.LogGateway{Logger: logger}

	reservations := app.NewReservationService(
		st.zones, st.permits, led, resolver, calendar, gateway, notifier, clk, logger,
		app.WithPaymentWindow(cfg.Engine.PaymentWindow.Std()),
	)
	waitlist := app.NewWaitlistManager(
		st.waitlist, led, notifier, clk, logger,
		app.WithClaimWindow(cfg.Engine.ClaimWindow.Std()),
	)
	cancels := app.NewCancellationService(st.permits, led, gateway, notifier, clk, logger)
	admin := app.NewAdminService(st.zones, led, clk, logger)

	reservations.SetWaitlist(waitlist)
	cancels.SetWaitlist(waitlist)
	waitlist.SetPlacer(reservations)

	if err := app.Bootstrap(startupCtx, st.zones, st.permits, led, waitlist, clk, logger); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runSweeper(sweepCtx, cfg, reservations, waitlist, led, clk, logger)

	handler := transporthttp.NewRouter(transporthttp.Services{
		Reservations:  reservations,
		Cancellations: cancels,
		Waitlist:      waitlist,
		Admin:         admin,
	}, clk, cfg.API.CORSOrigins, logger)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	logger.Printf("engine listening on %s backend=%s", cfg.Addr(), cfg.Storage.Backend)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		logger.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server shutdown error: %v", err)
	}
	logger.Printf("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg config.Config, logger *log.Logger) (stores, error) {
	switch cfg.Storage.Backend {
	case "memory":
		s := memory.New()
		return stores{zones: s, permits: s, waitlist: s, close: func() {}}, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return stores{}, fmt.Errorf("open sqlite store: %w", err)
		}
		return stores{zones: s, permits: s, waitlist: s, close: func() {
			if err := s.Close(); err != nil {
				logger.Printf("WARN: close sqlite store: %v", err)
			}
		}}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return stores{}, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("db ping: %w", err)
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("apply migrations: %w", err)
		}
		s := postgres.NewStore(pool)
		return stores{zones: s.Zones, permits: s.Permits, waitlist: s.Waitlist, close: pool.Close}, nil
	default:
		return stores{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// seedZones creates the configured zones on first boot. A store that
// already has zones is left alone.
func seedZones(ctx context.Context, zones app.ZoneRepository, seeds []config.ZoneSeed, logger *log.Logger) error {
	existing, err := zones.ListZones(ctx)
	if err != nil {
		return fmt.Errorf("list zones: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, seed := range seeds {
		zone := domain.Zone{
			ID:       uuid.NewString(),
			Name:     seed.Name,
			Capacity: seed.Capacity,
		}
		if err := zones.CreateZone(ctx, zone); err != nil {
			return fmt.Errorf("seed zone %s: %w", seed.Name, err)
		}
		logger.Printf("seeded zone %s capacity=%d", seed.Name, seed.Capacity)
	}
	return nil
}

// runSweeper drives the periodic maintenance passes: payment-deadline
// releases, offer expiry, expiration warnings, and ledger day GC.
func runSweeper(
	ctx context.Context,
	cfg config.Config,
	reservations *app.ReservationService,
	waitlist *app.WaitlistManager,
	led *ledger.Ledger,
	clk clock.Clock,
	logger *log.Logger,
) {
	interval := cfg.Engine.SweepInterval.Std()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if released, err := reservations.SweepExpiredHolds(ctx); err != nil {
				logger.Printf("WARN: sweep expired holds: %v", err)
			} else if released > 0 {
				logger.Printf("sweep released %d expired holds", released)
			}
			if expired := waitlist.SweepExpiredOffers(ctx); expired > 0 {
				logger.Printf("sweep expired %d waitlist offers", expired)
			}
			if err := reservations.SweepExpirationWarnings(ctx, cfg.Engine.ExpiryWarnWindow.Std()); err != nil {
				logger.Printf("WARN: sweep expiration warnings: %v", err)
			}
			led.CollectBefore(domain.DayOf(clk.Now().Add(-cfg.Engine.LedgerGCRetention.Std())))
		}
	}
}
