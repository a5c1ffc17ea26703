package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/superapp/apiclient/auth/mock"
	"github.com/superapp/apiclient/config"
	"github.com/superapp/apiclient/internal/logging"
)

type options struct {
	Config string `short:"c" long:"config" description:"config file"`
	Addr   string `short:"a" long:"addr" description:"listen address, overrides mock.host/mock.port"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	opts := &options{}
	if _, err := flags.Parse(opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)

	serviceOptions := []mock.Option{
		mock.WithLogger(logger),
		mock.WithAccessTTL(cfg.Mock.AccessTTL),
		mock.WithOTP(cfg.Mock.OTP),
	}
	if cfg.Mock.Secret != "" {
		serviceOptions = append(serviceOptions, mock.WithSecret([]byte(cfg.Mock.Secret)))
	}
	service, err := mock.New(serviceOptions...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", service.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	addr := cfg.Mock.Addr()
	if opts.Addr != "" {
		addr = opts.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mockapi_listening", slog.String("addr", addr), slog.String("base_path", mock.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info("shutdown_signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("mockapi_stopped")
	return nil
}
