package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SergeyParamoshkin/blog/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagAddr     string
	flagDiagAddr string
	flagSource   string
	flagSiteURL  string
	flagDebug    bool
	flagRoutes   bool
)

var rootCmd = &cobra.Command{
	Use:   "blog",
	Short: "Notion-backed blog server",
	Long: "blog serves posts written in a Notion database as a small website, " +
		"a sitemap and a JSON API. Posts are read from a cache file written by `blog cache`, " +
		"from Notion directly, or from an exported markdown directory.",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "development logging")

	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "application address")
	rootCmd.Flags().StringVar(&flagDiagAddr, "diag-addr", "", "diagnostics address serving /metrics")
	rootCmd.Flags().StringVar(&flagSource, "source", "", "post source: cache, live or markdown")
	rootCmd.Flags().StringVar(&flagSiteURL, "site-url", "", "absolute site URL used in links and the sitemap")
	rootCmd.Flags().BoolVar(&flagRoutes, "routes", false, "print router documentation and exit")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "blog %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops the server or an in-flight cache build.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// loadConfig resolves the config file and environment, then applies the
// flags that were set explicitly on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = flagDebug
	}
	if flags.Changed("addr") {
		cfg.Addr = flagAddr
	}
	if flags.Changed("diag-addr") {
		cfg.DiagAddr = flagDiagAddr
	}
	if flags.Changed("source") {
		cfg.Source = flagSource
	}
	if flags.Changed("site-url") {
		cfg.SiteURL = flagSiteURL
	}
	if flags.Changed("out") {
		cfg.CachePath = flagOut
	}
	if flags.Changed("markdown-dir") {
		cfg.MarkdownDir = flagMarkdownDir
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
