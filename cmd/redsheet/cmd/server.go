package cmd

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/clearmind/redsheet/access"
	"github.com/clearmind/redsheet/api"
	"github.com/clearmind/redsheet/feeds"
	"github.com/clearmind/redsheet/internal/config"
	"github.com/clearmind/redsheet/internal/util"
	"github.com/clearmind/redsheet/notify"
	"github.com/clearmind/redsheet/storage"
	bboltstorage "github.com/clearmind/redsheet/storage/bbolt"
	memorystorage "github.com/clearmind/redsheet/storage/memory"
	postgresstorage "github.com/clearmind/redsheet/storage/postgres"
	"github.com/clearmind/redsheet/web"
)

var (
	configPath      string
	port            int
	host            string
	dataDir         string
	tlsCert         string
	tlsKey          string
	auditWebhookURL string
	feedURLs        []string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the engagement workspace server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := buildLogger(cfg.Logging)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		repo, closeRepo, err := openRepository(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer closeRepo()

		secret, err := loadTokenSecret(cfg)
		if err != nil {
			return err
		}

		bus := notify.NewBus()
		defer bus.Close()

		opts := []api.Option{
			api.WithLogger(logger),
			api.WithBus(bus),
			api.WithTokenTTL(cfg.Auth.TokenTTL),
		}
		if cfg.Audit.WebhookURL != "" {
			webhook := access.NewAuditPinger(cfg.Audit.WebhookURL, nil)
			defer webhook.Close()
			opts = append(opts, api.WithAuditWebhook(webhook))
		}
		a := api.New(repo, secret, opts...)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		webHandler, err := web.Handler()
		if err != nil {
			return err
		}
		r.Handle("/*", webHandler)

		tlsConfig, err := buildTLSConfig(cfg.Server)
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		ctx, stopFeeds := context.WithCancel(cmd.Context())
		defer stopFeeds()
		if len(cfg.Feeds.Sources) > 0 {
			sources := make([]feeds.Feed, 0, len(cfg.Feeds.Sources))
			for _, s := range cfg.Feeds.Sources {
				sources = append(sources, feeds.Feed{Name: s.Name, URL: s.URL})
			}
			fetcher := feeds.NewFetcher(repo, sources, feeds.WithInterval(cfg.Feeds.Interval))
			go fetcher.Run(ctx)
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Listening on https://%s:%d (storage: %s)\n",
			cfg.Server.Host, cfg.Server.Port, cfg.Storage.Backend)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			stopFeeds()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// loadServerConfig reads the config file if given, then lets explicit flags
// override it.
func loadServerConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Storage.Path = dataDir
	}
	if cmd.Flags().Changed("tls-cert") {
		cfg.Server.TLSCert = tlsCert
	}
	if cmd.Flags().Changed("tls-key") {
		cfg.Server.TLSKey = tlsKey
	}
	if cmd.Flags().Changed("audit-webhook") {
		cfg.Audit.WebhookURL = auditWebhookURL
	}
	if cmd.Flags().Changed("feed") {
		cfg.Feeds.Sources = cfg.Feeds.Sources[:0]
		for i, u := range feedURLs {
			cfg.Feeds.Sources = append(cfg.Feeds.Sources, config.FeedSource{
				Name: fmt.Sprintf("feed-%d", i+1),
				URL:  u,
			})
		}
	}
	return cfg, cfg.Validate()
}

func buildLogger(lc config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch lc.Format {
	case "json", "":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", lc.Format)
	}
}

func openRepository(ctx context.Context, sc config.StorageConfig) (storage.Repository, func(), error) {
	switch sc.Backend {
	case "memory":
		return memorystorage.NewRepository(), func() {}, nil
	case "postgres":
		store, err := postgresstorage.NewRepositoryFromDSN(ctx, sc.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return store, store.Close, nil
	default:
		if err := os.MkdirAll(sc.Path, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		store, err := bboltstorage.NewRepositoryFromFile(filepath.Join(sc.Path, "redsheet.db"), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("opening storage: %w", err)
		}
		return store, func() { store.Close() }, nil
	}
}

// loadTokenSecret returns the configured signing secret, or generates one
// and persists it next to the bbolt data so sessions survive restarts.
func loadTokenSecret(cfg config.Config) ([]byte, error) {
	if cfg.Auth.TokenSecret != "" {
		return []byte(cfg.Auth.TokenSecret), nil
	}
	if cfg.Storage.Backend != "bbolt" {
		secret, err := util.RandomBytes(32)
		if err != nil {
			return nil, fmt.Errorf("generating token secret: %w", err)
		}
		return secret, nil
	}

	path := filepath.Join(cfg.Storage.Path, "token.secret")
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return data, nil
	}
	secret, err := util.RandomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("generating token secret: %w", err)
	}
	encoded := []byte(hex.EncodeToString(secret))
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return nil, fmt.Errorf("persisting token secret: %w", err)
	}
	return encoded, nil
}

func buildTLSConfig(sc config.ServerConfig) (*tls.Config, error) {
	if sc.TLSCert != "" && sc.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(sc.TLSCert, sc.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("loading TLS key pair: %w", err)
		}
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}, nil
	}

	cert, err := util.GenerateSelfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("generating self-signed certificate: %w", err)
	}
	fmt.Println("Using self-signed runtime generated certificate for TLS")
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	serverCmd.Flags().IntVarP(&port, "port", "p", 8443, "Port to listen on")
	serverCmd.Flags().StringVar(&host, "host", "127.0.0.1", "Address to bind")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serverCmd.Flags().StringVar(&auditWebhookURL, "audit-webhook", "", "URL receiving security audit events")
	serverCmd.Flags().StringSliceVar(&feedURLs, "feed", nil, "News feed URL (repeatable)")
}
