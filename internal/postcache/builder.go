// Package postcache builds, writes and reads the on-disk post snapshot.
package postcache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/client"
	"github.com/SergeyParamoshkin/blog/internal/convert"
	"github.com/SergeyParamoshkin/blog/internal/model"
)

const DefaultConcurrency = 4

// Lister lists the published source records, newest first.
type Lister interface {
	FetchPublishedPosts(ctx context.Context) ([]client.Page, error)
}

// Resolver resolves one record into a post.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*model.Post, error)
}

// Recorder receives the outcome of every build.
type Recorder interface {
	RecordBuild(ctx context.Context, cached, malformed, failed int)
}

// Skipped is a record that produced no post.
type Skipped struct {
	ID        string
	Malformed bool
	Err       error
}

type Report struct {
	Posts   []model.Post
	Skipped []Skipped
}

// Malformed counts records dropped for missing required properties.
func (r *Report) Malformed() int {
	n := 0
	for _, s := range r.Skipped {
		if s.Malformed {
			n++
		}
	}

	return n
}

// Failed counts records dropped because fetching them failed.
func (r *Report) Failed() int {
	return len(r.Skipped) - r.Malformed()
}

type Builder struct {
	lister      Lister
	resolver    Resolver
	logger      *zap.Logger
	recorder    Recorder
	concurrency int
}

type Option func(*Builder)

func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

func NewBuilder(lister Lister, resolver Resolver, opts ...Option) *Builder {
	b := &Builder{
		lister:      lister,
		resolver:    resolver,
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build lists every published record and resolves it with at most
// concurrency requests in flight. A listing failure or a cancelled ctx
// aborts the build; a record that fails to resolve is skipped and reported.
// Posts keep the listing order.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	pages, err := b.lister.FetchPublishedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing published posts: %w", err)
	}

	var (
		wg      sync.WaitGroup
		sem     = make(chan struct{}, b.concurrency)
		posts   = make([]*model.Post, len(pages))
		errs    = make([]error, len(pages))
		stopped bool
	)
	for i := range pages {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			stopped = true
		}
		if stopped {
			break
		}

		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			posts[i], errs[i] = b.resolver.Resolve(ctx, id)
		}(i, pages[i].ID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolving posts: %w", err)
	}

	report := &Report{Posts: make([]model.Post, 0, len(pages))}
	for i, page := range pages {
		if errs[i] != nil || posts[i] == nil {
			skipped := Skipped{ID: page.ID, Malformed: convert.IsMalformed(errs[i]), Err: errs[i]}
			report.Skipped = append(report.Skipped, skipped)
			b.logger.Warn("post skipped",
				zap.String("id", page.ID),
				zap.Bool("malformed", skipped.Malformed),
				zap.Error(errs[i]),
			)

			continue
		}
		report.Posts = append(report.Posts, *posts[i])
	}

	if b.recorder != nil {
		b.recorder.RecordBuild(ctx, len(report.Posts), report.Malformed(), report.Failed())
	}

	return report, nil
}

// Posts builds and returns only the resolved posts.
func (b *Builder) Posts(ctx context.Context) ([]model.Post, error) {
	report, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}

	return report.Posts, nil
}
