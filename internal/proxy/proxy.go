// Package proxy implements the public-facing reverse proxy: it serves the
// collected static assets and uploaded media directly and forwards
// everything else to the API server, with gzip compression and rotated
// access logs. With a domain configured it terminates TLS via Let's Encrypt.
package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Server is the assembled proxy.
type Server struct {
	cfg     *Config
	lg      *zap.Logger
	handler http.Handler
	closers []io.Closer
}

// New builds the proxy handler chain.
func New(cfg *Config, lg *zap.Logger) (*Server, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, errors.Wrap(err, "parse upstream URL")
	}

	forward := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			lg.Warn("Upstream request failed",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))
	mux.Handle("/", forward)

	s := &Server{cfg: cfg, lg: lg}
	s.handler = s.accessLog(gzhttp.GzipHandler(mux))
	return s, nil
}

// accessLog writes one line per request to the rotated log file and mirrors
// it to the process logger.
func (s *Server) accessLog(next http.Handler) http.Handler {
	var sink io.Writer
	if s.cfg.AccessLog.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   s.cfg.AccessLog.Path,
			MaxSize:    s.cfg.AccessLog.MaxSizeMB,
			MaxBackups: s.cfg.AccessLog.MaxBackups,
			MaxAge:     s.cfg.AccessLog.MaxAgeDays,
			Compress:   true,
		}
		s.closers = append(s.closers, lj)
		sink = lj
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		took := time.Since(start)

		s.lg.Info("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Int64("bytes", rec.written),
			zap.Duration("took", took),
		)
		if sink != nil {
			line := r.RemoteAddr + " \"" + r.Method + " " + r.URL.RequestURI() + " " + r.Proto + "\" " +
				http.StatusText(rec.status) + " " + took.String() + "\n"
			_, _ = io.WriteString(sink, time.Now().UTC().Format(time.RFC3339)+" "+line)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// Flush keeps streaming responses working through the access-log wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Handler exposes the assembled chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled. Without a domain it serves plain HTTP
// on Addr; with one it obtains certificates for the domain, serves HTTPS on
// TLSAddr, and answers ACME challenges plus redirects on Addr.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		for _, c := range s.closers {
			_ = c.Close()
		}
	}()

	if s.cfg.Domain == "" {
		srv := &http.Server{
			Addr:              s.cfg.Addr,
			Handler:           s.handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		return serveUntilDone(ctx, s.lg, srv, func() error { return srv.ListenAndServe() })
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(s.cfg.Domain),
		Cache:      autocert.DirCache(s.cfg.CertCacheDir),
		Email:      s.cfg.ACMEEmail,
	}

	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           manager.HTTPHandler(nil), // ACME challenges + redirect to HTTPS
		ReadHeaderTimeout: 5 * time.Second,
	}
	tlsSrv := &http.Server{
		Addr:              s.cfg.TLSAddr,
		Handler:           s.handler,
		TLSConfig:         manager.TLSConfig(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveUntilDone(ctx, s.lg, httpSrv, func() error { return httpSrv.ListenAndServe() })
	})
	g.Go(func() error {
		return serveUntilDone(ctx, s.lg, tlsSrv, func() error { return tlsSrv.ListenAndServeTLS("", "") })
	})
	return g.Wait()
}

func serveUntilDone(ctx context.Context, lg *zap.Logger, srv *http.Server, listen func() error) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("Proxy shutdown error", zap.Error(err))
		}
	}()

	lg.Info("Proxy listening", zap.String("addr", srv.Addr))
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "proxy server")
	}
	return nil
}
