// Package main is the entry point for the provider-browser CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zatekoja/provider-browser/internal/adapters/cache"
	"github.com/zatekoja/provider-browser/internal/adapters/catalog"
	"github.com/zatekoja/provider-browser/internal/application/services"
	"github.com/zatekoja/provider-browser/internal/cli"
	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/domain/providers"
	"github.com/zatekoja/provider-browser/internal/infrastructure/clients/catalogapi"
	"github.com/zatekoja/provider-browser/internal/infrastructure/clients/redis"
	"github.com/zatekoja/provider-browser/internal/infrastructure/observability"
	"github.com/zatekoja/provider-browser/internal/loaders"
	"github.com/zatekoja/provider-browser/pkg/config"
	"github.com/zatekoja/provider-browser/pkg/retry"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd starts an interactive browse session.
var rootCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the provider catalog from the terminal",
	Long: `browse opens an interactive session over the provider catalog. Results can be
swiped through one card at a time, paged through as a grid, or listed with
their map locations. Favorites are saved to the signed-in account when
BROWSE_SESSION_TOKEN is set.

Configuration comes from the environment (CATALOG_*, SESSION_*, FAVORITES_*,
REDIS_*, OTEL_*); flags override the initial filters and presentation.`,
	SilenceUsage: true,
	RunE:         runBrowse,
}

func init() {
	rootCmd.Flags().String("mode", "", "initial view: swipe, grid or map (default from SESSION_VIEW_MODE)")
	rootCmd.Flags().String("query", "", "free-text query")
	rootCmd.Flags().StringSlice("spec", nil, "specializations to match (comma-separated)")
	rootCmd.Flags().StringSlice("lang", nil, "languages to match (comma-separated)")
	rootCmd.Flags().StringSlice("avail", nil, "availability tags to match (comma-separated)")
	rootCmd.Flags().String("location", "", "location query")
	rootCmd.Flags().Float64("min-rating", 0, "minimum rating, 0 to 5")
	rootCmd.Flags().Bool("favorites", false, "only show favorited providers")
	rootCmd.Flags().Bool("rtl", false, "right-to-left presentation (mirrors left/right)")
	rootCmd.Flags().Int("width", 60, "card width in columns")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "browse", version)
	},
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		}
		if shutdown != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	var catalogService providers.CatalogService = catalogapi.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.RequestTimeout)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			// The shared cache is optional; browse straight against the catalog.
			logger.Warn().Err(err).Msg("running without shared cache")
		} else {
			defer redisClient.Close()
			catalogService = catalog.NewCachedCatalog(catalogService, cache.NewRedisAdapter(redisClient.Client()), cfg.Catalog.SharedCacheTTL)
			logger.Debug().Str("addr", cfg.Redis.RedisAddr()).Msg("shared cache enabled")
		}
	}

	width, _ := cmd.Flags().GetInt("width")
	out := cmd.OutOrStdout()
	var outMu sync.Mutex
	renderer := cli.NewRenderer(out, cli.DefaultTheme, width)

	mode, _ := entities.ParseViewMode(cfg.Session.InitialViewMode)
	seedRetry := retry.DefaultConfig()
	seedRetry.MaxAttempts = cfg.Favorites.SeedMaxAttempts

	session := services.NewBrowseSession(services.BrowseSessionDeps{
		Catalog:   catalogService,
		Auth:      cli.NewStaticAuth(cfg.Auth.UserID, cfg.Auth.SessionToken, out, &outMu),
		Detail:    cli.NewDetailPresenter(loaders.NewLoaders(catalogService), renderer, out, &outMu),
		Direction: cli.Direction(cfg.Session.TextDirection),
		Metrics:   metrics,
	}, services.BrowseSessionConfig{
		InitialMode:        mode,
		GridPageSize:       cfg.Session.GridPageSize,
		FetchAllPageSize:   cfg.Catalog.FetchAllPageSize,
		AnimationBudget:    cfg.Session.AnimationBudget,
		ModeSwitchDebounce: cfg.Session.ModeSwitchDebounce,
		RequestTimeout:     cfg.Catalog.RequestTimeout,
		ResultCacheSize:    cfg.Catalog.ResultCacheSize,
		ResultCacheTTL:     cfg.Catalog.ResultCacheTTL,
		MutationDeadline:   cfg.Favorites.MutationDeadline,
		SeedRetry:          seedRetry,
	})
	defer session.End()

	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}
	handle, err := session.Start(ctx, filters)
	if err != nil {
		return err
	}
	// A failed first search is shown by the REPL with a retry hint.
	_, _ = handle.Wait(ctx)

	repl := cli.NewREPL(session, renderer, cmd.InOrStdin(), out, &outMu, 4*cfg.Session.AnimationBudget)
	if err := repl.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// applyFlags overrides presentation settings from explicitly set flags
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("mode") {
		raw, _ := cmd.Flags().GetString("mode")
		mode, ok := entities.ParseViewMode(raw)
		if !ok {
			return fmt.Errorf("unknown view mode %q", raw)
		}
		cfg.Session.InitialViewMode = string(mode)
	}
	if rtl, _ := cmd.Flags().GetBool("rtl"); rtl {
		cfg.Session.TextDirection = string(entities.TextDirectionRTL)
	}
	return nil
}

func filtersFromFlags(cmd *cobra.Command) (entities.FilterSet, error) {
	flags := cmd.Flags()
	query, _ := flags.GetString("query")
	specs, _ := flags.GetStringSlice("spec")
	langs, _ := flags.GetStringSlice("lang")
	avail, _ := flags.GetStringSlice("avail")
	location, _ := flags.GetString("location")
	rating, _ := flags.GetFloat64("min-rating")
	onlyFavorited, _ := flags.GetBool("favorites")

	f := entities.FilterSet{
		FreeTextQuery:    strings.TrimSpace(query),
		Specializations:  specs,
		Languages:        langs,
		AvailabilityTags: avail,
		LocationQuery:    strings.TrimSpace(location),
		MinRating:        rating,
		OnlyFavorited:    onlyFavorited,
	}
	return f, f.Validate()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
