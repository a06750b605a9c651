package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yourusername/kuco/internal/app"
	"k8s.io/klog/v2"
)

var (
	// Version will be set by build flags, default to timestamp
	Version = "dev-" + time.Now().Format("20060102-150405")
	// BuildTime will be set by build flags
	BuildTime = "unknown"

	// Global flags
	configFile   string
	kubeconfig   string
	kubeContext  string
	cacheBackend string
	cachePath    string
	verbose      bool
	locale       string

	// cache subcommand flags
	cacheTable string
)

var rootCmd = &cobra.Command{
	Use:   "kuco",
	Short: "A read-only Kubernetes console backed by a local cache",
	Long: `kuco browses namespaces, pods, containers and container logs of a
Kubernetes cluster. A background synchronizer mirrors the cluster into a
local key-value cache (SQLite or Redis) and the console reads only from it.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive console",
	Long:  `Launch the TUI console together with the background cache synchronizer`,
	RunE:  runConsole,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the cache synchronizer without a UI",
	Long:  `Keep the cache up to date until interrupted, so consoles can start warm`,
	RunE:  runSync,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the local cache",
}

var cacheDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every cache entry as YAML",
	RunE:  runCacheDump,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache entry",
	RunE:  runCacheClear,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check cluster permissions and cache freshness",
	RunE:  runDoctor,
}

func init() {
	// klog writes to stderr by default, which pollutes the TUI
	klog.InitFlags(nil)
	flag.Set("logtostderr", "false")
	flag.Set("alsologtostderr", "false")
	flag.Set("stderrthreshold", "FATAL")
	flag.Set("v", "0")

	// Add Go flags to pflag so Cobra can parse them
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(consoleCmd, syncCmd, cacheCmd, doctorCmd)
	cacheCmd.AddCommand(cacheDumpCmd, cacheClearCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&kubeconfig, "kubeconfig", "k", "", "path to kubeconfig file (default: $HOME/.kube/config)")
	rootCmd.PersistentFlags().StringVarP(&kubeContext, "context", "c", "", "kubernetes context to use")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache-backend", "", "cache backend (sqlite, redis)")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache-path", "", "SQLite cache file, :memory: for a transient cache")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&locale, "locale", "l", "en", "interface language (en, zh)")

	consoleCmd.Flags().Duration("fast-interval", 0, "namespace and pod sync interval (default 10s)")
	consoleCmd.Flags().Duration("slow-interval", 0, "container sync interval (default 20s)")
	syncCmd.Flags().AddFlagSet(consoleCmd.Flags())

	cacheCmd.PersistentFlags().StringVar(&cacheTable, "table", "", "cache table (default: cache.table from config)")
}

// loadConfig loads the config file and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*app.Config, error) {
	config, err := app.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if kubeconfig != "" {
		config.Kubeconfig = kubeconfig
	}
	if kubeContext != "" {
		config.Context = kubeContext
	}
	if cacheBackend != "" {
		config.CacheBackend = cacheBackend
	}
	if cachePath != "" {
		config.CachePath = cachePath
	}
	// Only override locale if user explicitly specified it
	if cmd.Flags().Changed("locale") {
		config.Locale = locale
	}
	if verbose {
		config.LogLevel = "debug"
	}
	if d, err := cmd.Flags().GetDuration("fast-interval"); err == nil && d > 0 {
		config.FastInterval = d
	}
	if d, err := cmd.Flags().GetDuration("slow-interval"); err == nil && d > 0 {
		config.SlowInterval = d
	}

	if err := config.Normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// withApp builds the application, runs fn with a context cancelled on SIGINT/SIGTERM and shuts down
func withApp(cmd *cobra.Command, fn func(ctx context.Context, application *app.App, config *app.Config) error) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	application, err := app.New(config, Version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, application, config)
}

func runConsole(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.App, _ *app.Config) error {
		if err := application.RunConsole(ctx); err != nil {
			return fmt.Errorf("application error: %w", err)
		}
		return nil
	})
}

func runSync(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.App, config *app.Config) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Syncing into %s cache (%s), press Ctrl+C to stop\n", config.CacheBackend, config.CachePath)
		return application.RunSync(ctx)
	})
}

func runCacheDump(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.App, _ *app.Config) error {
		entries, err := application.DumpCache(ctx, cacheTable)
		if err != nil {
			return err
		}
		out, err := renderEntries(entries)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.App, config *app.Config) error {
		table := cacheTable
		if table == "" {
			table = config.CacheTable
		}
		if err := application.ClearCache(ctx, table); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared table %s\n", table)
		return nil
	})
}

func runDoctor(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.App, config *app.Config) error {
		report, err := application.Diagnose(ctx)
		if err != nil {
			return err
		}
		writeReport(cmd.OutOrStdout(), report, config.Locale)
		if !report.Healthy() {
			cmd.SilenceUsage = true
			return fmt.Errorf("doctor found problems")
		}
		return nil
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
