package cmd

import (
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/client"
	"github.com/SergeyParamoshkin/blog/internal/config"
	"github.com/SergeyParamoshkin/blog/internal/convert"
	"github.com/SergeyParamoshkin/blog/internal/metrics"
	"github.com/SergeyParamoshkin/blog/internal/postcache"
)

// newBuilder wires the Notion client, the converter and the worker pool.
// m may be nil.
func newBuilder(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*postcache.Builder, error) {
	if err := cfg.ValidateNotion(); err != nil {
		return nil, err
	}

	clientOpts := []client.Option{
		client.WithAddr(cfg.NotionAddr),
		client.WithDatabase(cfg.DatabaseID),
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RateLimit, cfg.Burst),
	}
	builderOpts := []postcache.Option{
		postcache.WithConcurrency(cfg.Concurrency),
		postcache.WithLogger(logger),
	}
	if m != nil {
		clientOpts = append(clientOpts, client.WithObserver(m))
		builderOpts = append(builderOpts, postcache.WithRecorder(m))
	}

	notion := client.New(cfg.NotionToken, clientOpts...)
	converter := convert.New(notion, logger)

	return postcache.NewBuilder(notion, converter, builderOpts...), nil
}
