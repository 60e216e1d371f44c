package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"chunkrelay/internal/chunker"
	"chunkrelay/internal/config"
	"chunkrelay/internal/convert"
	"chunkrelay/internal/delivery"
	"chunkrelay/internal/handlers"
	"chunkrelay/internal/http"
	"chunkrelay/internal/llm"
	"chunkrelay/internal/metrics"
	"chunkrelay/internal/service"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	if missing := cfg.Missing(); len(missing) > 0 {
		slog.Warn("Required settings are not configured; requests will fail until they are set", "missing", missing)
	}

	// Picture description client shared by both engines
	describer := llm.NewClient(cfg.LLMDescriptionURL, cfg.LLMBearerToken, cfg.LLMModel, cfg.LLMMaxCompletionTokens, cfg.LLMTimeout)
	convertOpts := convert.DefaultOptions(describer)

	var converter convert.Converter
	var pinger handlers.Pinger
	switch cfg.ConverterEngine {
	case config.EngineNative:
		converter = convert.NewNativeConverter(describer, convertOpts)
	default:
		docling := convert.NewDoclingClient(cfg.DoclingURL, convertOpts)
		converter = docling
		pinger = docling
	}
	slog.Info("Converter initialized", "engine", cfg.ConverterEngine, "docling_url", cfg.DoclingURL, "extensions", convert.SupportedExtensions())

	hybrid := chunker.NewHybridChunker(cfg.ChunkerMaxTokens, chunker.DefaultTokenizer())
	serializer := chunker.NewSerializer(hybrid)

	sshConfig := delivery.Config{
		Host:       cfg.SSHHost,
		Port:       cfg.SSHPort,
		User:       cfg.SSHUser,
		Password:   cfg.SSHPassword,
		PrivateKey: cfg.SSHPrivateKey,
		KnownHosts: cfg.SSHKnownHosts,
	}
	uploader, err := delivery.NewSFTPClient(sshConfig)
	if err != nil {
		slog.Warn("SFTP settings are invalid; uploads will fail until they are fixed", "error", err)
		uploader = delivery.NewUnavailableClient(sshConfig, err)
	}
	if cfg.SSHKnownHosts == "" {
		slog.Warn("SSH_KNOWN_HOSTS not set; remote host keys are not verified")
	}
	slog.Info("SFTP delivery configured", "addr", uploader.Addr(), "target_path", cfg.SSHTargetPath)

	m := metrics.MustNewMetrics(prometheus.DefaultRegisterer)

	convertService := service.NewConvertService(converter, serializer, uploader, service.ConvertConfig{
		TempDir:    cfg.TempDir,
		TargetBase: cfg.SSHTargetPath,
	}, m)

	router := http.NewRouter(&http.Deps{
		ConvertService: convertService,
		Converter:      pinger,
		ConverterName:  cfg.ConverterEngine,
		Gatherer:       prometheus.DefaultGatherer,
	})

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	// Start API server
	slog.Info("Starting API server", "addr", server.Addr)
	slog.Debug("Description service configuration", "url", cfg.LLMDescriptionURL, "model", cfg.LLMModel, "max_tokens", hybrid.MaxTokens())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("API server stopped")
}
