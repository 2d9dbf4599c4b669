package metrics

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var indexPage = template.Must(template.New("index").Parse(`<html><body>
<h1>Dataset Ingestion Metrics</h1>
<p><a href="/metrics">/metrics</a></p>
<table>{{range .}}<tr><td><code>{{.GetName}}</code></td><td>{{.GetHelp}}</td></tr>{{end}}</table>
</body></html>`))

// Server exposes the scrape endpoint on its own port so scrapes never queue
// behind long-running uploads.
type Server struct {
	server   *http.Server
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewServer serves the metrics gathered from g on port.
func NewServer(port int, g prometheus.Gatherer) *Server {
	s := &Server{
		gatherer: g,
		logger:   slog.Default().With("component", "metrics-server"),
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("GET /{$}", s.index)
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// index lists every registered metric family with its help text.
func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	families, err := s.gatherer.Gather()
	if err != nil {
		s.logger.Warn("gathering metric families", "error", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, families); err != nil {
		s.logger.Error("rendering index", "error", err)
	}
}

// Run listens until ctx is done, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	s.logger.Info("metrics server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- s.server.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
