package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/animal-classify/internal/classifier"
	"github.com/example/animal-classify/internal/config"
	"github.com/example/animal-classify/internal/handlers"
	"github.com/example/animal-classify/internal/logging"
	"github.com/example/animal-classify/internal/metrics"
	"github.com/example/animal-classify/internal/ui"
	"github.com/example/animal-classify/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := newRouter(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("classification front-end listening",
		zap.String("addr", cfg.Addr),
		zap.String("classifier_url", cfg.ClassifierURL),
		zap.Duration("classifier_timeout", cfg.ClassifierTimeout))
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, logger *zap.Logger) (*gin.Engine, error) {
	tmpl, err := ui.Templates()
	if err != nil {
		return nil, logging.NewOperationError("ui.templates", "", err)
	}

	m := metrics.New()
	client := classifier.NewHTTPClient(cfg.ClassifierURL, nil, logger)
	uc := usecase.NewClassificationUseCase(client, m, cfg.ClassifierTimeout, logger)

	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), handlers.AccessLog(logger), m.Middleware())

	handlers.RegisterRoutes(r, uc, handlers.Options{
		MaxUploadSize: cfg.MaxUploadBytes,
		Metrics:       m.Handler(),
		Logger:        logger,
	})
	return r, nil
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
