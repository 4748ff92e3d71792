package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/docgen"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/internal/config"
	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/metrics"
	"github.com/SergeyParamoshkin/blog/internal/post"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync() // nolint
	sugar := logger.Sugar()

	exporter, err := metrics.NewExporter()
	if err != nil {
		sugar.Errorw("failed to initialize prometheus exporter", "error", err)

		return err
	}
	m := metrics.New()

	source, err := newSource(cfg, logger, m)
	if err != nil {
		sugar.Errorw("failed to set up post source", "error", err)

		return err
	}

	h, err := post.NewHandler(source, cfg.SiteURL)
	if err != nil {
		return err
	}
	r := post.NewRouter(h, sugar, m)

	// Passing --routes generates docs for the router definition above.
	if flagRoutes {
		fmt.Fprintln(cmd.OutOrStdout(), docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
			ProjectPath: "github.com/SergeyParamoshkin/blog",
			Intro:       "Routes served by the blog.",
		}))

		return nil
	}

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", exporter.ServeHTTP)

	servers := []*http.Server{
		{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 5 * time.Second},
		{Addr: cfg.DiagAddr, Handler: diagRouter, ReadHeaderTimeout: 5 * time.Second},
	}

	return serve(cmd.Context(), sugar, servers, cfg.Source)
}

// serve runs every server until ctx is cancelled or one of them fails, then
// shuts all of them down.
func serve(ctx context.Context, logger *zap.SugaredLogger, servers []*http.Server, source string) error {
	errc := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Infow("listening", "addr", srv.Addr, "source", source)
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			if err != nil {
				err = fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			errc <- err
		}(srv)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}
	logger.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		err = multierr.Append(err, srv.Shutdown(shutdownCtx))
	}

	return err
}

// newSource picks the post source named by cfg.Source.
func newSource(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (post.Source, error) {
	switch cfg.Source {
	case config.SourceLive:
		builder, err := newBuilder(cfg, logger, m)
		if err != nil {
			return nil, err
		}

		return post.LiveSource{Builder: builder}, nil
	case config.SourceMarkdown:
		return post.MarkdownSource{Dir: cfg.MarkdownDir}, nil
	default:
		return post.CacheSource{Path: cfg.CachePath}, nil
	}
}
