package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/BaSui01/lexrag/internal/cache"
	"github.com/BaSui01/lexrag/internal/metrics"
	"github.com/BaSui01/lexrag/internal/queue"
	"github.com/BaSui01/lexrag/internal/results"
	"github.com/BaSui01/lexrag/internal/server"
	"github.com/BaSui01/lexrag/internal/telemetry"
	"github.com/BaSui01/lexrag/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// runWorker 启动队列 worker 进程。与网关共用同一套管线构建逻辑,
// 但不监听业务端口，只消费作业流
func runWorker(args []string) {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	configPath := fs.String("config", "", "配置文件路径 (YAML)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting lexrag worker",
		zap.String("version", Version),
		zap.String("stream", cfg.Queue.Stream),
		zap.String("group", cfg.Queue.Group),
	)

	providers, err := telemetry.Init(telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  cfg.Telemetry.ServiceName + "-worker",
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRate:   cfg.Telemetry.SampleRate,
	}, logger)
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
	}
	defer func() {
		if providers != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = providers.Shutdown(shutdownCtx)
		}
	}()

	ctx, stop := signalContext()
	defer stop()

	collector := metrics.NewCollector("lexrag", nil, logger)

	// worker 必须能写回结果，Redis 不可达直接失败
	cacheManager, err := cache.NewManager(cacheConfig(cfg), logger)
	if err != nil {
		logger.Fatal("redis unavailable", zap.Error(err))
	}
	defer func() { _ = cacheManager.Close() }()

	jobQueue, err := queue.New(queueConfig(cfg), logger)
	if err != nil {
		logger.Fatal("job queue unavailable", zap.Error(err))
	}
	defer func() { _ = jobQueue.Close() }()

	resultStore := results.NewStore(cacheManager, cfg.Redis.ResultTTL, logger)

	service, err := buildAnswerService(ctx, cfg, cacheManager, collector, logger)
	if err != nil {
		logger.Fatal("failed to build answer service", zap.Error(err))
	}

	// metrics 端口与网关一致，部署时各进程用不同端口
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsManager := server.NewManager(metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 5 * time.Second,
	}, logger)
	if err := metricsManager.Start(); err != nil {
		logger.Warn("failed to start metrics server", zap.Error(err))
		metricsManager = nil
	}

	w := worker.New(jobQueue, service, observedResults{
		store:     resultStore,
		collector: collector,
	}, worker.Config{
		PollWait:   cfg.Worker.PollWait,
		ErrorPause: cfg.Worker.ErrorPause,
	}, logger)

	err = w.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited with error", zap.Error(err))
	}

	if metricsManager != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsManager.Shutdown(shutdownCtx)
	}

	logger.Info("lexrag worker stopped")
}

// observedResults 在写结果的同时上报作业指标
type observedResults struct {
	store     *results.Store
	collector *metrics.Collector
}

func (o observedResults) MarkCompleted(ctx context.Context, jobID, answer, source string) error {
	if err := o.store.MarkCompleted(ctx, jobID, answer, source); err != nil {
		return err
	}
	o.collector.RecordJobCompleted()
	return nil
}

func (o observedResults) MarkFailed(ctx context.Context, jobID, reason string) error {
	if err := o.store.MarkFailed(ctx, jobID, reason); err != nil {
		return err
	}
	o.collector.RecordJobFailed()
	return nil
}
