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

	"github.com/Sternrassler/seo-insights/pkg/batch"
	"github.com/Sternrassler/seo-insights/pkg/client"
	"github.com/Sternrassler/seo-insights/pkg/credits"
	"github.com/Sternrassler/seo-insights/pkg/gated"
	"github.com/Sternrassler/seo-insights/pkg/gsc"
	"github.com/Sternrassler/seo-insights/pkg/logging"
	"github.com/Sternrassler/seo-insights/pkg/pages"
	"github.com/Sternrassler/seo-insights/pkg/seo"
	"github.com/Sternrassler/seo-insights/pkg/settings"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var version = "0.1.0"

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "seo-gateway",
		Usage:   "Serve the credit-gated SEO results pages",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: "8080", EnvVars: []string{"PORT"}, Usage: "HTTP listen port"},
			&cli.StringFlag{Name: "redis-addr", Value: "localhost:6379", EnvVars: []string{"REDIS_URL"}, Usage: "Redis address for credits, cache and OAuth state"},
			&cli.StringFlag{Name: "supabase-url", EnvVars: []string{"SUPABASE_URL"}, Usage: "Supabase project URL serving the Edge Functions"},
			&cli.StringFlag{Name: "supabase-key", EnvVars: []string{"SUPABASE_ANON_KEY"}, Usage: "Supabase API key"},
			&cli.StringFlag{Name: "google-client-id", EnvVars: []string{"GOOGLE_CLIENT_ID"}, Usage: "OAuth client id for Search Console"},
			&cli.StringFlag{Name: "google-client-secret", EnvVars: []string{"GOOGLE_CLIENT_SECRET"}, Usage: "OAuth client secret for Search Console"},
			&cli.StringSliceFlag{Name: "allowed-origin", EnvVars: []string{"ALLOWED_ORIGINS"}, Usage: "Frontend origins allowed as OAuth redirect targets"},
			&cli.StringFlag{Name: "pages-config", Value: "pages.yaml", EnvVars: []string{"PAGES_CONFIG"}, Usage: "YAML file with page cost and policy overrides"},
			&cli.StringFlag{Name: "insufficient-policy", EnvVars: []string{"INSUFFICIENT_POLICY"}, Usage: "Override the config: silent or error"},
			&cli.IntFlag{Name: "concurrency", Value: batch.DefaultConfig().MaxConcurrency, EnvVars: []string{"TRAFFIC_SHARE_CONCURRENCY"}, Usage: "Parallel SERP lookups per traffic share report"},
			&cli.StringFlag{Name: "log-level", Value: string(logging.LevelInfo), EnvVars: []string{"LOG_LEVEL"}, Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "pretty", EnvVars: []string{"LOG_PRETTY"}, Usage: "Human-readable console logs"},
		},
		Action: serveAction,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Gateway failed")
	}
}

func serveAction(c *cli.Context) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(c.String("log-level"))
	logCfg.Pretty = c.Bool("pretty")
	logger := logging.Setup(logCfg)

	pagesCfg, err := pages.LoadConfig(c.String("pages-config"))
	if err != nil {
		return err
	}
	if policy := c.String("insufficient-policy"); policy != "" {
		pagesCfg.InsufficientPolicy = policy
		if err := pagesCfg.Validate(); err != nil {
			return err
		}
	}

	redisAddr := c.String("redis-addr")
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", redisAddr, err)
	}
	logger.Info().Str("addr", redisAddr).Msg("Connected to Redis")

	clientCfg := client.DefaultConfig(c.String("supabase-url"), c.String("supabase-key"))
	clientCfg.Redis = redisClient
	clientCfg.UserAgent = "seo-gateway/" + version
	functions, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create function client: %w", err)
	}
	defer functions.Close()

	batchCfg := batch.DefaultConfig()
	batchCfg.MaxConcurrency = c.Int("concurrency")

	ledger := credits.NewLedger(redisClient, logging.NewLogger("credits"))

	d := deps{
		Service:  seo.NewService(functions, batchCfg),
		Invoker:  functions,
		Credits:  func(userID string) gated.Credits { return ledger.Account(userID) },
		Balances: ledger,
		Settings: settings.NewStore(redisClient, logging.NewLogger("settings")),
		Pages:    pagesCfg,
		Ready:    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	if id := c.String("google-client-id"); id != "" {
		gscCfg := gsc.DefaultConfig(id, c.String("google-client-secret"))
		gscCfg.AllowedOrigins = c.StringSlice("allowed-origin")
		connector, err := gsc.NewConnector(gscCfg, gsc.NewRedisStateStore(redisClient))
		if err != nil {
			return fmt.Errorf("create search console connector: %w", err)
		}
		d.Connector = connector
	} else {
		logger.Warn().Msg("GOOGLE_CLIENT_ID not set, Search Console connect disabled")
	}

	srv := &http.Server{
		Addr:              ":" + c.String("port"),
		Handler:           newServer(d).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("insufficient_policy", pagesCfg.InsufficientPolicy).
			Dur("fetch_timeout", pagesCfg.Controller().FetchTimeout).
			Msg("Starting SEO gateway")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
