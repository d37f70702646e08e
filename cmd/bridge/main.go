package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vituali/sgp_bridge/internal/api"
	"github.com/vituali/sgp_bridge/internal/bridge"
	"github.com/vituali/sgp_bridge/internal/browser"
	"github.com/vituali/sgp_bridge/internal/config"
	"github.com/vituali/sgp_bridge/internal/netutil"
	"github.com/vituali/sgp_bridge/internal/notify"
	"github.com/vituali/sgp_bridge/internal/relay"
	"github.com/vituali/sgp_bridge/internal/sgp"
	"github.com/vituali/sgp_bridge/internal/statestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("bridge config loaded",
		"primary_url", cfg.PrimaryBaseURL,
		"fallback_url", cfg.FallbackBaseURL,
		"cdp_url", cfg.CDPURL(),
		"bind_addr", cfg.BindAddr,
		"probe_timeout_ms", cfg.ProbeTimeoutMS,
		"form_cache_ttl_min", cfg.FormCacheTTLMin,
		"state_dir", cfg.StateDir,
		"log_level", cfg.LogLevel,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		slog.Error("failed to create cookie jar", "error", err)
		os.Exit(1)
	}
	httpClient := &http.Client{Jar: jar}

	store, err := statestore.NewStore(cfg.StateDir)
	if err != nil {
		slog.Error("failed to open state store", "state_dir", cfg.StateDir, "error", err)
		os.Exit(1)
	}

	navigator := browser.NewNavigator(cfg.CDPURL(), time.Duration(cfg.EvalTimeoutMS)*time.Millisecond)
	if err := navigator.Connect(context.Background()); err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.CDPURL(), "error", err)
		os.Exit(1)
	}
	defer navigator.Close()

	prober := sgp.NewProber(httpClient, time.Duration(cfg.ProbeTimeoutMS)*time.Millisecond, cfg.PrimaryBaseURL, cfg.FallbackBaseURL)
	sessions := sgp.NewSessionCache(store, prober)
	resolver := sgp.NewResolver(httpClient)
	forms := sgp.NewFormFetcher(httpClient, sessions, time.Duration(cfg.FormCacheTTLMin)*time.Minute)
	broker := relay.NewBroker()
	ntfy := notify.NewNtfy(cfg.NtfyEndpoint, nil)

	svc := bridge.NewService(sessions, resolver, forms, navigator, store, broker, ntfy, jar, cfg.Origins())
	h := api.NewServer(svc, broker)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("bridge listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("bridge server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("bridge shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
