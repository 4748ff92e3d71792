package post

import (
	"context"

	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/model"
	"github.com/SergeyParamoshkin/blog/internal/postcache"
)

// Source yields the published posts, newest first.
type Source interface {
	Posts(ctx context.Context) ([]model.Post, error)
}

// CacheSource reads the snapshot file on every call. A missing file is
// empty. Entries that fail validation are logged and left out so one bad
// entry does not take every page down.
type CacheSource struct {
	Path string
}

func (s CacheSource) Posts(ctx context.Context) ([]model.Post, error) {
	posts, bad, err := postcache.LoadEntries(s.Path)
	if err != nil {
		return nil, err
	}
	if len(bad) > 0 {
		logger := logging.FromContext(ctx)
		for _, e := range bad {
			logger.Warnw("cache entry skipped", "path", s.Path, "error", e)
		}
	}

	return posts, nil
}

// LiveSource resolves every published record from Notion per call.
type LiveSource struct {
	Builder *postcache.Builder
}

func (s LiveSource) Posts(ctx context.Context) ([]model.Post, error) {
	return s.Builder.Posts(ctx)
}

// MarkdownSource reads a directory written by the markdown export.
type MarkdownSource struct {
	Dir string
}

func (s MarkdownSource) Posts(ctx context.Context) ([]model.Post, error) {
	return postcache.ReadMarkdownDir(s.Dir)
}

// FindBySlug returns the first post whose slug matches.
func FindBySlug(posts []model.Post, slug string) (*model.Post, bool) {
	for i := range posts {
		if posts[i].Slug == slug {
			return &posts[i], true
		}
	}

	return nil, false
}
