package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tarifario/price-tracker/config"
	phttp "github.com/tarifario/price-tracker/internal/http"
	"github.com/tarifario/price-tracker/internal/http/ratelimit"
	"github.com/tarifario/price-tracker/internal/source"
	"github.com/tarifario/price-tracker/internal/storage"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "price-tracker",
	Short: "Price Tracker CLI - Portuguese electricity tariff prices",
	Long: `A CLI tool for fetching and inspecting quarter-hourly electricity prices
for Portuguese indexed tariffs. Prices come from the public tariff table
maintained on GitHub and are cached locally per day.`,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Config is optional for some commands, don't fail here
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes the logger
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()
	return nil
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.WarnLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Always use console format for CLI
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stdout
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

// buildFetcher wires the fetcher from the loaded config.
func buildFetcher() (*source.Fetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	loc, err := time.LoadLocation(cfg.Source.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Source.Timezone, err)
	}

	store, err := storage.NewLocalStorage(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache storage: %w", err)
	}

	client := phttp.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		InitialBackoff:    time.Duration(cfg.RateLimit.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.RateLimit.MaxBackoffMs) * time.Millisecond,
		AttemptTimeout:    time.Duration(cfg.RateLimit.AttemptTimeoutMs) * time.Millisecond,
	})

	return source.NewFetcher(source.Config{
		RawBaseURL:      cfg.Source.RawBaseURL,
		APIBaseURL:      cfg.Source.APIBaseURL,
		FilePath:        cfg.Source.FilePath,
		MemoryTTL:       cfg.Source.MemoryTTL,
		DownloadTimeout: cfg.Source.DownloadTimeout,
	}, client, store, loc), nil
}

// resolveDay parses a --date flag in the configured timezone. An empty
// value means today.
func resolveDay(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now().In(loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
