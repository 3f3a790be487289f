package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/tellocmd/infra/logger"
)

// PromServer exposes /metrics on a dedicated mux.
type PromServer struct {
	srv *http.Server
	ln  net.Listener
	log logger.Logger
}

// ListenPromServer binds addr. A nil gatherer serves the default registry.
func ListenPromServer(addr string, g prometheus.Gatherer) (*PromServer, error) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &PromServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
		log: logger.New("prometheus"),
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *PromServer) Addr() string { return s.ln.Addr().String() }

// Serve blocks until ctx is cancelled.
func (s *PromServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("prom server shutdown: %v", err)
		}
	}()
	s.log.Infof("serving metrics on %s", s.Addr())
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the listener of a server that is not serving yet.
func (s *PromServer) Close() error {
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// StartPromServer serves the default registry on addr until ctx is cancelled.
func StartPromServer(ctx context.Context, addr string) error {
	s, err := ListenPromServer(addr, nil)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}
