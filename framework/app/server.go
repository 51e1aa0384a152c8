package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/logger"
	"github.com/km-arc/go-kernel/framework/providers"
)

// ServeHTTP processes r with a fresh response from the container and writes
// the result to w.
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := a.Logger()

	res, err := container.Resolve[*gohttp.Response](a.Container, providers.ResponseID)
	if err == nil {
		res, err = a.Process(gohttp.NewRequest(r), res)
	}
	if err != nil {
		log.ErrorContext(r.Context(), "request not handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := gohttp.Emit(w, r, res, a.settingsOrDefault().ResponseChunkSize); err != nil {
		log.WarnContext(r.Context(), "response not fully written", logger.Error(err))
	}
}

// Handler returns the application wrapped with chi's RequestID, RealIP and
// Recoverer middleware. Recoverer only sees panics raised outside the
// pipeline, such as while writing the response.
func (a *Application) Handler() http.Handler {
	return chi.Chain(middleware.RequestID, middleware.RealIP, middleware.Recoverer).Handler(a)
}

// Execute processes the request stored under "request" with the response
// stored under "response" and writes the result to w.
func (a *Application) Execute(w http.ResponseWriter) (*gohttp.Response, error) {
	req, err := container.Resolve[*gohttp.Request](a.Container, providers.RequestID)
	if err != nil {
		return nil, fmt.Errorf("app: execute: %w", err)
	}
	res, err := container.Resolve[*gohttp.Response](a.Container, providers.ResponseID)
	if err != nil {
		return nil, fmt.Errorf("app: execute: %w", err)
	}

	res, err = a.Process(req, res)
	if err != nil {
		return nil, err
	}
	if err := gohttp.Emit(w, req.Raw(), res, a.settingsOrDefault().ResponseChunkSize); err != nil {
		return res, err
	}
	return res, nil
}

// Run boots the providers and serves HTTP on the configured address until
// ctx is done or the process receives SIGINT or SIGTERM, then shuts down
// gracefully within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return err
	}
	settings, err := a.Settings()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", settings.Addr())
	if err != nil {
		return err
	}
	return a.serve(ctx, ln, settings.ShutdownTimeout)
}

// serve runs the server on ln until ctx is done.
func (a *Application) serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	log := a.Logger()
	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			slog.String("address", ln.Addr().String()),
			slog.String("env", a.Environment()),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := <-errCh; err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		log.Error("shutdown completed with errors")
		return errors.Join(errs...)
	}
	log.Info("shutdown completed")
	return nil
}
