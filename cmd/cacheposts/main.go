// Command cacheposts snapshots every published Notion post into
// posts-cache.json. It takes no arguments; settings come from the
// environment and the optional config file.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/cmd"
	"github.com/SergeyParamoshkin/blog/internal/config"
	"github.com/SergeyParamoshkin/blog/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load("")
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error caching posts:", err)

		return 1
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error caching posts:", err)

		return 1
	}
	defer logger.Sync() // nolint

	if err := cmd.CachePosts(context.Background(), cfg, os.Stdout, logger); err != nil {
		logger.Error("error caching posts", zap.Error(err))

		return 1
	}

	return 0
}
