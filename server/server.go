package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mediashelf/config"
	"mediashelf/core/prewarm"
	"mediashelf/core/subtitle"
	"mediashelf/logger"
	"mediashelf/metrics"
	"mediashelf/telemetry"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "mediashelf"

// NewRouter 注册所有路由并套上中间件
func NewRouter(d *Deps) http.Handler {
	fsHandler := NewFileSystemHandler(d.Resolver, d.Lister)
	videoHandler := NewVideoHandler(d.Resolver, d.Engine)
	subHandler := NewSubtitleHandler(d.Resolver, d.Pipeline, d.Index)
	cacheHandler := NewCacheHandler(d.Config.SubtitleCacheDir, d.Mirror)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	router.Handle("/api/filesystem", fsHandler).Methods(http.MethodGet)

	router.Handle("/api/videos", videoHandler).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix(videoRESTPrefix).Handler(videoHandler).Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/api/extract-subtitles", subHandler.Extract).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/api/video-subtitles", subHandler.List).Methods(http.MethodGet)
	router.HandleFunc("/api/video-subtitles/sidecar", subHandler.Sidecar).Methods(http.MethodGet)
	router.HandleFunc("/api/subtitle-file", subHandler.File).Methods(http.MethodGet, http.MethodHead)

	router.PathPrefix(subtitle.URLPrefix + "/").Handler(cacheHandler).Methods(http.MethodGet, http.MethodHead)

	if d.Toolchain != nil {
		router.Handle("/api/health/toolchain", NewHealthHandler(d.Toolchain)).Methods(http.MethodGet)
	}
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	traced := otelhttp.NewHandler(loggingMiddleware(router), serviceName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && !strings.HasPrefix(r.URL.Path, subtitle.URLPrefix)
		}),
	)
	return recoveryMiddleware(requestIDMiddleware(
		rateLimitMiddleware(d.Config.RateLimitRPS, d.Config.RateLimitBurst,
			metricsMiddleware(corsMiddleware(traced)))))
}

// Start initializes and starts the HTTP server. It blocks until SIGINT or
// SIGTERM and then shuts down gracefully.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ensureDirExists(cfg.SubtitleCacheDir)

	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint, cfg.TraceSampleRate)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	metrics.Register(prometheus.DefaultRegisterer)

	deps, cleanup, err := BuildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.WatchEnabled {
		w, err := prewarm.NewWatcher(deps.Resolver, deps.Pipeline, cfg.WatchDebounce)
		if err != nil {
			logger.Warn("prewarm watcher disabled", logger.ErrorField(err))
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Warn("prewarm watcher stopped", logger.ErrorField(err))
				}
			}()
		}
	}

	// 视频流可能持续很久，不设置 WriteTimeout
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", cfg.HTTPAddr),
			logger.Strings("allowedPaths", cfg.Paths.AllowedBasePaths),
			logger.Bool("enforceAllowedPaths", cfg.Paths.EnforceAllowedPaths))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 等待中断信号
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("Failed to create directory", logger.String("path", path), logger.ErrorField(err))
		}
	} else if err != nil {
		logger.Fatal("Failed to check directory", logger.String("path", path), logger.ErrorField(err))
	}
}
