package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mannmitra/backend/internal/community"
	"github.com/mannmitra/backend/internal/companions"
	"github.com/mannmitra/backend/internal/config"
	"github.com/mannmitra/backend/internal/contact"
	"github.com/mannmitra/backend/internal/database"
	"github.com/mannmitra/backend/internal/journal"
	"github.com/mannmitra/backend/internal/kvstore"
	"github.com/mannmitra/backend/internal/logging"
	"github.com/mannmitra/backend/internal/profile"
	"github.com/mannmitra/backend/internal/scope"
	"github.com/mannmitra/backend/internal/screening"
	"github.com/mannmitra/backend/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mannmitra-api",
		Short: "MannMitra wellness backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().StringSlice("allowed-origins", defaults.GetStringSlice("http.allowed_origins"), "CORS allowed origins")
	cmd.PersistentFlags().String("store-driver", defaults.GetString("store.driver"), "Storage driver (sqlite, redis, memory)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address for the redis store")
	cmd.PersistentFlags().String("redis-key-prefix", defaults.GetString("redis.key_prefix"), "Key namespace for the redis store")
	cmd.PersistentFlags().Int("scope-ttl-hours", defaults.GetInt("scope.ttl_hours"), "Scope token TTL in hours")
	cmd.PersistentFlags().Int("page-size", defaults.GetInt("community.page_size"), "Community posts per page")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Scope token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "store.driver", "store-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "redis.key_prefix", "redis-key-prefix")
	bindFlag(cmd, "scope.ttl_hours", "scope-ttl-hours")
	bindFlag(cmd, "community.page_size", "page-size")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "scope.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// openBackend builds the storage backend for the configured driver. The
// returned closer releases its connections.
func openBackend(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (kvstore.Backend, func(), error) {
	switch appConfig.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return kvstore.NewMemoryBackend(), func() {}, nil
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddress})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", appConfig.RedisAddress, err)
		}
		backend, err := kvstore.NewRedisBackend(client, appConfig.RedisKeyPrefix)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logger.Info("redis store connected", zap.String("address", appConfig.RedisAddress))
		return backend, func() { _ = client.Close() }, nil
	default:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		backend, err := kvstore.NewSQLiteBackend(db, time.Now)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return backend, func() { _ = sqlDB.Close() }, nil
	}
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	backend, closeBackend, err := openBackend(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer closeBackend()
	adapter := kvstore.NewAdapter(backend, logger.Named("kvstore"))

	scopeTokens, err := scope.NewManager(scope.ManagerConfig{
		SigningSecret: []byte(appConfig.ScopeSigningSecret),
		TokenTTL:      appConfig.ScopeTokenTTL,
	})
	if err != nil {
		return err
	}

	dispatcher := server.NewRealtimeDispatcher()
	communityService, err := community.NewService(community.ServiceConfig{
		Adapter:  adapter,
		Clock:    time.Now,
		PageSize: appConfig.CommunityPageSize,
		Seeds:    community.DefaultSeedPosts,
		Notifier: dispatcher,
		Logger:   logger.Named("community"),
	})
	if err != nil {
		return err
	}

	catalog, err := screening.DefaultCatalog()
	if err != nil {
		return err
	}
	personas, err := companions.DefaultCatalog()
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		ScopeTokens:    scopeTokens,
		Storage:        adapter,
		Community:      communityService,
		Screening:      catalog,
		Journal:        journal.New(journal.Config{Adapter: adapter, Location: time.Local, Logger: logger.Named("journal")}),
		Profiles:       profile.NewStore(profile.Config{Adapter: adapter, Logger: logger.Named("profile")}),
		Contact:        contact.NewInbox(contact.Config{Adapter: adapter, Logger: logger.Named("contact")}),
		Companions:     personas,
		Realtime:       dispatcher,
		AllowedOrigins: appConfig.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress), zap.String("store", appConfig.StoreDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
