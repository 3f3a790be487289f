// Package app wires the configured components into the cockpit service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/tellocmd/config"
	"github.com/kilianp07/tellocmd/core/cockpit"
	"github.com/kilianp07/tellocmd/core/drone"
	"github.com/kilianp07/tellocmd/core/journal"
	coremetrics "github.com/kilianp07/tellocmd/core/metrics"
	coremon "github.com/kilianp07/tellocmd/core/monitoring"
	"github.com/kilianp07/tellocmd/core/telemetry"
	"github.com/kilianp07/tellocmd/infra/logger"
	"github.com/kilianp07/tellocmd/infra/metrics"
	"github.com/kilianp07/tellocmd/infra/monitoring"
	"github.com/kilianp07/tellocmd/infra/mqtt"
	"github.com/kilianp07/tellocmd/infra/udp"
)

// Service owns the cockpit session and its observers.
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	sink     coremetrics.Sink
	recorder *journal.Recorder
	session  *cockpit.Session
	bridge   *mqtt.Bridge
	prom     *metrics.PromServer

	closeOnce sync.Once
	closeErr  error
}

// New creates a Service from the configuration. Nothing talks to the
// drone until the session is connected.
func New(cfg *config.Config) (*Service, error) {
	s := &Service{cfg: cfg, log: logger.New("service")}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	s.sink, err = coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if cfg.Metrics.PrometheusAddr != "" {
		s.prom, err = metrics.ListenPromServer(cfg.Metrics.PrometheusAddr, nil)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("prom server: %w", err)
		}
	}

	store, err := journal.Open(cfg.Journal)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("journal: %w", err)
	}
	if store != nil {
		s.recorder = journal.NewRecorder(store, cfg.Journal.Buffer, logger.New("journal"))
	}

	s.session = cockpit.NewSession(cockpit.Config{
		PollingInterval: cfg.Drone.PollingInterval(),
		StepCM:          uint8(cfg.Drone.MoveStepCM),
	}, s.connect, logger.New("cockpit"), cockpit.WithTrend(telemetry.NewTrend(telemetry.DefaultWindow)))

	if cfg.MQTT.Enabled {
		s.bridge, err = mqtt.NewBridge(cfg.MQTT, s.session)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
	}
	return s, nil
}

// Session exposes the cockpit for in-process callers.
func (s *Service) Session() *cockpit.Session { return s.session }

// MetricsAddr is the bound Prometheus address, empty when disabled.
func (s *Service) MetricsAddr() string {
	if s.prom == nil {
		return ""
	}
	return s.prom.Addr()
}

// Dial opens a drone connection carrying the service observers. The
// caller owns the returned client.
func (s *Service) Dial(obs ...drone.TelemetryObserver) (*drone.Client, error) {
	ep, err := s.cfg.Drone.Endpoint()
	if err != nil {
		return nil, err
	}
	session := uuid.NewString()
	observer := coremetrics.NewObserver(s.sink, session, logger.New("metrics"))
	exchangeObs := []drone.ExchangeObserver{observer}
	if s.recorder != nil {
		exchangeObs = append(exchangeObs, s.recorder)
	}
	c, err := udp.Connect(ep,
		udp.WithLocalPort(s.cfg.Drone.LocalPort),
		udp.WithClientOptions(
			drone.WithSessionID(session),
			drone.WithLogger(logger.New("drone")),
			drone.WithExchangeObserver(exchangeObs...),
			drone.WithTelemetryObserver(append(obs, observer)...),
		),
	)
	if err != nil {
		return nil, err
	}
	s.log.Infof("connected to %s (session %s)", ep, session)
	return c, nil
}

func (s *Service) connect(_ context.Context, obs drone.TelemetryObserver) (cockpit.Pilot, error) {
	c, err := s.Dial(obs)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run serves metrics, optionally connects the drone and bridges the
// cockpit to MQTT until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	if s.prom != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer coremon.Recover()
			if err := s.prom.Serve(ctx); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.Drone.AutoConnect {
		if err := s.session.ToggleComm(ctx); err != nil {
			s.log.Warnf("auto connect: %v", err)
		}
	}
	if s.bridge != nil {
		return s.bridge.Run(ctx)
	}
	<-ctx.Done()
	return nil
}

// Close disconnects the drone, flushes the journal and releases sinks.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.bridge != nil {
			s.bridge.Close()
		}
		if s.session != nil {
			if err := s.session.Close(); err != nil {
				errs = append(errs, fmt.Errorf("session: %w", err))
			}
		}
		s.release()
		if s.recorder != nil {
			if err := s.recorder.Close(); err != nil {
				errs = append(errs, fmt.Errorf("journal: %w", err))
			}
		}
		coremon.Flush(2 * time.Second)
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *Service) release() {
	if s.prom != nil {
		_ = s.prom.Close()
	}
	if s.sink != nil {
		coremetrics.CloseSink(s.sink)
	}
}
