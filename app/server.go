package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api/allocations"
	apiaudit "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api/audit"
	apicrew "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api/crew"
	apisweep "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api/sweep"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/monitoring"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/metrics"
)

// Handler returns the API routes behind bearer authentication.
func (s *Service) Handler(clock api.Clock) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/allocations/finalize", allocations.NewFinalizeHandler(s.Allocator, clock))
	mux.Handle("/api/allocations/remove-vehicle", allocations.NewRemoveVehicleHandler(s.Allocator, clock))
	mux.Handle("/api/crew/assign", apicrew.NewAssignHandler(s.Crew, clock))
	mux.Handle("/api/crew/decline", apicrew.NewDeclineHandler(s.Crew, clock))
	mux.Handle("/api/sweep/run", apisweep.NewHandler(s.Sweeper, clock))
	mux.Handle("/api/audit", apiaudit.NewHandler(s.Audit))
	mux.Handle("/api/exceptions", apiaudit.NewExceptionsHandler(s.Store))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	return api.Authenticate(s.Resolver(), mux)
}

// Run serves the API and runs the sweep on its interval until ctx is
// canceled. The Prometheus endpoint is served when a prometheus sink is
// configured.
func (s *Service) Run(ctx context.Context) error {
	s.Start(ctx)
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.Handler(time.Now),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.HTTP.WriteTimeoutSeconds) * time.Second,
	}
	g.Go(func() error {
		s.log.Infof("serving api on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if s.cfg.Metrics.HasSink("prometheus") {
		g.Go(func() error { return metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr) })
	}
	g.Go(func() error {
		s.sweepLoop(ctx)
		return nil
	})
	return g.Wait()
}

func (s *Service) sweepLoop(ctx context.Context) {
	interval := s.Sweeper.Config().Interval()
	if interval <= 0 {
		s.log.Infof("scheduled sweep disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			monitoring.Guard(func() {
				res, err := s.Sweeper.Run(ctx, now)
				if err != nil {
					s.log.Errorf("scheduled sweep: %v", err)
					monitoring.CaptureException(err, monitoring.Tags("component", "t24_sweep"))
					return
				}
				if !res.Skipped {
					s.log.Infof("sweep confirmed %d lead(s) for %s..%s", res.ConfirmedCount,
						res.Window.From.Format(time.RFC3339), res.Window.To.Format(time.RFC3339))
				}
			})
		}
	}
}
