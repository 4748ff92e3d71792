package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/internal/config"
	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/postcache"
)

var (
	flagOut         string
	flagMarkdownDir string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Snapshot every published post into the cache file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.Debug)
		if err != nil {
			return err
		}
		defer logger.Sync() // nolint

		if err := CachePosts(cmd.Context(), cfg, cmd.OutOrStdout(), logger); err != nil {
			logger.Error("error caching posts", zap.Error(err))

			return err
		}

		return nil
	},
}

func init() {
	cacheCmd.Flags().StringVar(&flagOut, "out", "", "cache file path (default "+postcache.DefaultPath+")")
	cacheCmd.Flags().StringVar(&flagMarkdownDir, "markdown-dir", "", "also export one markdown file per post into this directory")
}

// CachePosts resolves every published post and writes the snapshot to
// cfg.CachePath, plus a markdown export when cfg.MarkdownDir is set. The
// success line goes to out.
func CachePosts(ctx context.Context, cfg config.Config, out io.Writer, logger *zap.Logger) error {
	builder, err := newBuilder(cfg, logger, nil)
	if err != nil {
		return err
	}

	report, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	if err := postcache.Write(cfg.CachePath, report.Posts); err != nil {
		return err
	}

	if cfg.MarkdownDir != "" {
		n, err := postcache.ExportMarkdown(cfg.MarkdownDir, report.Posts)
		if err != nil {
			return err
		}
		logger.Info("exported markdown", zap.String("dir", cfg.MarkdownDir), zap.Int("posts", n))
	}

	if len(report.Skipped) > 0 {
		logger.Warn("some posts were skipped",
			zap.Int("malformed", report.Malformed()),
			zap.Int("failed", report.Failed()),
		)
	}

	_, err = fmt.Fprintf(out, "Successfully cached %d posts.\n", len(report.Posts))

	return err
}
