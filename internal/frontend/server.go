package frontend

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"

	"github.com/sourcerer-app/sourcerer/internal/config"
	api "github.com/sourcerer-app/sourcerer/internal/frontend/api/v1"
	"github.com/sourcerer-app/sourcerer/internal/frontend/metrics"
	pkgmiddleware "github.com/sourcerer-app/sourcerer/internal/frontend/middleware"
	"github.com/sourcerer-app/sourcerer/internal/logger"
)

// Server hosts the configuration API.
type Server struct {
	api        *api.API
	config     *config.Config
	httpServer *http.Server
	listener   net.Listener
}

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithListener sets a pre-bound listener. The server then serves on it
// instead of binding the configured address, which lets tests pick a
// free port without racing.
func WithListener(l net.Listener) ServerOption {
	return func(s *Server) {
		s.listener = l
	}
}

// NewServer creates the server around the given API and configuration.
func NewServer(apiHandler *api.API, cfg *config.Config, opts ...ServerOption) *Server {
	srv := &Server{api: apiHandler, config: cfg}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Serve assembles the router, starts listening and blocks until the
// context is cancelled or a termination signal arrives.
func (srv *Server) Serve(ctx context.Context) error {
	requestLogger := httplog.NewLogger("http", httplog.Options{
		LogLevel:         slog.LevelDebug,
		JSON:             srv.config.Core.LogFormat == "json",
		Concise:          true,
		RequestHeaders:   true,
		MessageFieldName: "msg",
		ResponseHeaders:  true,
	})

	r := chi.NewMux()
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(withRecoverer)
	if srv.config.Server.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   srv.config.Server.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "Content-Encoding", "Accept"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if srv.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(srv.config.Server.RequestTimeout))
	}

	srv.setupAuth()

	basePath := path.Join(srv.config.Server.BasePath, srv.config.Server.APIBasePath)
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	r.Route(basePath, func(r chi.Router) {
		srv.api.ConfigureRoutes(r, pkgmiddleware.AuthChain()...)
	})

	addr := net.JoinHostPort(srv.config.Server.Host, strconv.Itoa(srv.config.Server.Port))
	srv.httpServer = &http.Server{
		Handler:           r,
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metrics.StartUptime(ctx)

	logger.Info(ctx, "Server is starting", "addr", addr, "basePath", basePath)
	go srv.startServer(ctx)

	srv.gracefulShutdown(ctx)
	return nil
}

func (srv *Server) setupAuth() {
	var opts pkgmiddleware.Options
	auth := srv.config.Server.Auth
	if auth.Basic.Enabled() {
		opts.AuthBasic = &pkgmiddleware.AuthBasic{
			Username: auth.Basic.Username,
			Password: auth.Basic.Password,
		}
	}
	if auth.Token.Enabled() {
		opts.AuthToken = &pkgmiddleware.AuthToken{Token: auth.Token.Value}
	}
	pkgmiddleware.Setup(&opts)
}

func (srv *Server) startServer(ctx context.Context) {
	var err error
	tls := srv.config.Server.TLS
	switch {
	case srv.listener != nil && tls != nil:
		logger.Info(ctx, "Starting TLS server on pre-bound listener", "cert", tls.CertFile)
		err = srv.httpServer.ServeTLS(srv.listener, tls.CertFile, tls.KeyFile)
	case srv.listener != nil:
		logger.Info(ctx, "Starting server on pre-bound listener")
		err = srv.httpServer.Serve(srv.listener)
	case tls != nil:
		logger.Info(ctx, "Starting TLS server", "cert", tls.CertFile)
		err = srv.httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
	default:
		err = srv.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		logger.Error(ctx, "Failed to start server", "err", err)
	}
}

// Shutdown stops the server without waiting for a signal.
func (srv *Server) Shutdown(ctx context.Context) error {
	if srv.httpServer == nil {
		return nil
	}
	logger.Info(ctx, "Server is shutting down", "addr", srv.httpServer.Addr)
	shutdownCtx, cancel := context.WithTimeout(ctx, srv.shutdownTimeout())
	defer cancel()
	srv.httpServer.SetKeepAlivesEnabled(false)
	return srv.httpServer.Shutdown(shutdownCtx)
}

func (srv *Server) gracefulShutdown(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-ctx.Done():
		logger.Info(ctx, "Context done, shutting down server")
	case sig := <-quit:
		logger.Info(ctx, "Received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout())
	defer cancel()

	srv.httpServer.SetKeepAlivesEnabled(false)
	if err := srv.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Failed to shutdown server", "err", err)
	}

	logger.Info(ctx, "Server shutdown complete")
}

func (srv *Server) shutdownTimeout() time.Duration {
	if d := srv.config.Server.ShutdownTimeout; d > 0 {
		return d
	}
	return 10 * time.Second
}

// This function is adapted from the `recoverer` middleware from the `chi` package.
func withRecoverer(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					// we don't recover http.ErrAbortHandler so the response
					// to the client is aborted, this should not be logged
					panic(rvr)
				}

				st := string(debug.Stack())
				logger.Error(r.Context(), "Panic occurred", "err", rvr, "st", st)

				if r.Header.Get("Connection") != "Upgrade" {
					w.WriteHeader(http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}
