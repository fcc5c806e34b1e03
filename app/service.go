package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/config"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/allocation"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/audit"
	coreauth "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/auth"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/crew"
	coremetrics "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/metrics"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/monitoring"
	corenotify "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/sweep"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/auth"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/logger"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/metrics"
	inframon "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/monitoring"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/redis"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/memory"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/postgres"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

// Service wires the store, notifiers and observers around the allocation,
// crew and sweep components.
type Service struct {
	Store     store.Gateway
	Allocator *allocation.Allocator
	Crew      *crew.Dispatcher
	Sweeper   *sweep.Sweeper
	Audit     audit.Store
	// Tokens is nil when no auth secret is configured.
	Tokens *auth.JWTResolver

	cfg      *config.Config
	bus      eventbus.EventBus
	sink     coremetrics.MetricsSink
	notifier corenotify.Notifier
	log      logger.Logger
	closers  []func() error
	cancel   context.CancelFunc
	done     []<-chan struct{}
}

// New creates a Service from the configuration. Observers start with Start.
func New(ctx context.Context, cfg *config.Config) (svc *Service, err error) {
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Console); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	s := &Service{cfg: cfg, log: logger.New("service")}
	defer func() {
		if err != nil {
			_ = s.closeAll()
		}
	}()

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)
	s.closers = append(s.closers, func() error { monitoring.Flush(2 * time.Second); return nil })

	if s.Store, err = openStore(ctx, cfg.Store); err != nil {
		return nil, err
	}
	s.closers = append(s.closers, s.Store.Close)

	var (
		guard sweep.AlertGuard
		lease sweep.Lease
	)
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, rdb.Close)
		guard = redis.NewAlertGuard(rdb, cfg.Redis)
		lease = redis.NewLease(rdb, cfg.Redis)
	}

	if s.notifier, err = notify.New(cfg.Notify.Sinks, logger.New("notify")); err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	if c, ok := s.notifier.(io.Closer); ok {
		s.closers = append(s.closers, c.Close)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if s.Audit, err = audit.Open(cfg.Audit); err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	s.closers = append(s.closers, s.Audit.Close)

	if cfg.Auth.Secret != "" {
		if s.Tokens, err = auth.NewJWTResolver(cfg.Auth); err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	} else {
		s.log.Warnf("auth.secret not set: bearer tokens are rejected")
	}

	s.bus = eventbus.New()
	s.Allocator = allocation.NewAllocator(s.Store, cfg.Allocation, s.bus, logger.New("allocator"))
	s.Crew = crew.NewDispatcher(s.Store, s.notifier, cfg.Crew, s.bus, logger.New("crew"))
	s.Sweeper = sweep.NewSweeper(s.Store, s.notifier, guard, lease, cfg.Sweep,
		time.Duration(cfg.Allocation.LockHours)*time.Hour, s.bus, logger.New("sweep"))
	return s, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Gateway, error) {
	var fixture *memory.Fixture
	if cfg.Fixture != "" {
		f, err := memory.LoadFixture(cfg.Fixture)
		if err != nil {
			return nil, fmt.Errorf("fixture: %w", err)
		}
		fixture = &f
	}
	switch cfg.Driver {
	case "postgres":
		st, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if fixture != nil {
			if err := st.Seed(ctx, *fixture); err != nil {
				_ = st.Close()
				return nil, fmt.Errorf("seed: %w", err)
			}
		}
		return st, nil
	default:
		st := memory.New()
		if fixture != nil {
			st.Load(*fixture)
		}
		return st, nil
	}
}

// Resolver returns the bearer token resolver, or nil when auth is off.
func (s *Service) Resolver() coreauth.Resolver {
	if s.Tokens == nil {
		return nil
	}
	return s.Tokens
}

// Start launches the metrics collector and the audit recorder.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = append(s.done,
		metrics.StartEventCollector(ctx, s.bus, s.sink),
		audit.StartRecorder(ctx, s.bus, s.Audit, logger.New("audit")),
	)
}

// Close drains the observers and releases every resource.
func (s *Service) Close() error {
	if s.bus != nil {
		s.bus.Close()
	}
	for _, d := range s.done {
		<-d
	}
	if s.cancel != nil {
		s.cancel()
	}
	return s.closeAll()
}

func (s *Service) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
