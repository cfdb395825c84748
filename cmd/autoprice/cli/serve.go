package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/autoprice/autoprice/internal/auth"
	"github.com/autoprice/autoprice/internal/cache"
	"github.com/autoprice/autoprice/internal/config"
	"github.com/autoprice/autoprice/internal/handler"
	"github.com/autoprice/autoprice/internal/predictor"
	"github.com/autoprice/autoprice/internal/server"
	"github.com/autoprice/autoprice/internal/store"
)

func newServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the autoprice API server",
		Long:  "Start the HTTP server that exposes the authenticated prediction and account APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(version)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().String("model", "", "path to the model artifact (overrides config)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("model.path", cmd.Flags().Lookup("model"))

	return cmd
}

func runServe(version string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store opened", "driver", cfg.Database.Driver)

	var predictionCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect cache: %w", err)
		}
		defer redisCache.Close()
		predictionCache = redisCache
		logger.Info("prediction cache connected", "addr", cfg.Redis.Addr)
	}

	scorer, err := predictor.Load(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	logger.Info("model loaded", "path", cfg.Model.Path, "version", scorer.Version())

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}
	hasher := auth.NewHasher()
	gate := auth.NewGate(cfg.Auth.APIKey)
	authn := auth.NewAuthenticator(tokens, st)

	authHandler := handler.NewAuthHandler(st, hasher, tokens, cfg.Auth.TokenTTLMinutes, logger)
	predictHandler := handler.NewPredictHandler(st, predictionCache, scorer, cfg.Cache.TTL, logger)

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		LoginRatePerMin: cfg.Server.LoginRatePerMin,
		Version:         version,
	}
	srv := server.New(srvCfg, st, predictionCache, scorer, authn, gate, authHandler, predictHandler, logger)

	fmt.Printf("→ autoprice %s\n", version)
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:  http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Metrics: http://%s:%d/metrics\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
