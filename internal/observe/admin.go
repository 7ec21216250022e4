package observe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteRegistrar adds routes to an admin mux. *health.Handler satisfies it.
type RouteRegistrar interface {
	Register(mux *http.ServeMux)
}

// AdminServer is the optional HTTP listener exposing /metrics and any
// registered routes (typically /healthz and /readyz) for the lifetime of a
// job.
type AdminServer struct {
	srv *http.Server
	ln  net.Listener
}

// NewAdminServer builds the admin mux: Prometheus /metrics from gatherer
// (normally [Telemetry.Registry]) plus the routes of every registrar, all
// wrapped in [Middleware].
func NewAdminServer(addr string, m *Metrics, gatherer prometheus.Gatherer, registrars ...RouteRegistrar) *AdminServer {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	for _, r := range registrars {
		r.Register(mux)
	}
	return &AdminServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Middleware(m)(mux),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the fully wrapped admin handler.
func (a *AdminServer) Handler() http.Handler {
	return a.srv.Handler
}

// Start binds the listen address and serves in the background. It returns
// once the socket is bound so that a bad address fails fast.
func (a *AdminServer) Start() error {
	ln, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return err
	}
	a.ln = ln
	slog.Info("admin listener started", "addr", ln.Addr().String())
	go func() {
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("admin listener stopped", "err", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (a *AdminServer) Addr() string {
	if a.ln != nil {
		return a.ln.Addr().String()
	}
	return a.srv.Addr
}

// Shutdown gracefully stops the listener.
func (a *AdminServer) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}
