package postcache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/SergeyParamoshkin/blog/internal/model"
)

type frontMatter struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Slug        string   `yaml:"slug"`
	Date        string   `yaml:"date"`
	Description string   `yaml:"description"`
	CoverImage  string   `yaml:"cover_image,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	WordCount   int      `yaml:"word_count,omitempty"`
}

// ExportMarkdown writes one markdown file with YAML front matter per post
// into dir. Posts sharing a slug get the page id appended to the file name.
func ExportMarkdown(dir string, posts []model.Post) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating export dir: %w", err)
	}

	used := make(map[string]bool, len(posts))
	for i, p := range posts {
		name := fileName(p.Slug, p.ID)
		if used[name] {
			name = fileName(p.Slug+"-"+shortID(p.ID), p.ID)
		}
		used[name] = true

		data, err := MarshalMarkdown(p)
		if err != nil {
			return i, err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return i, fmt.Errorf("writing %s: %w", name, err)
		}
	}

	return len(posts), nil
}

// MarshalMarkdown renders p as a front matter document.
func MarshalMarkdown(p model.Post) ([]byte, error) {
	meta, err := yaml.Marshal(frontMatter{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Date:        p.Date,
		Description: p.Description,
		CoverImage:  p.CoverImage,
		Author:      p.Author,
		Tags:        p.Tags,
		Category:    p.Category,
		WordCount:   p.WordCount,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding front matter for %s: %w", p.ID, err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(p.Content)
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

// UnmarshalMarkdown parses a document written by MarshalMarkdown.
func UnmarshalMarkdown(data []byte) (model.Post, error) {
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return model.Post{}, fmt.Errorf("parse front matter: %w", err)
	}

	return model.Post{
		ID:          meta.ID,
		Title:       meta.Title,
		Slug:        meta.Slug,
		CoverImage:  meta.CoverImage,
		Description: meta.Description,
		Date:        meta.Date,
		Content:     strings.Trim(string(body), "\n"),
		Author:      meta.Author,
		Tags:        meta.Tags,
		Category:    meta.Category,
		WordCount:   meta.WordCount,
	}, nil
}

// ReadMarkdownDir loads every *.md file in dir, newest date first.
func ReadMarkdownDir(dir string) ([]model.Post, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}

	var (
		posts []model.Post
		errs  error
	)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		p, err := UnmarshalMarkdown(data)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		posts = append(posts, p)
	}
	if errs != nil {
		return nil, errs
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Date == posts[j].Date {
			return posts[i].Slug < posts[j].Slug
		}
		return model.Newer(posts[i].Date, posts[j].Date)
	})

	return posts, nil
}

func fileName(slug, id string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '-'
		}
		return r
	}, slug)
	name = strings.Trim(name, ".")
	if name == "" {
		name = shortID(id)
	}

	return name + ".md"
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
