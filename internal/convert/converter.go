// Package convert resolves Notion pages into blog posts.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/client"
	"github.com/SergeyParamoshkin/blog/internal/model"
)

// maxDepth bounds block tree recursion.
const maxDepth = 8

// ErrMalformedRecord marks a page that lacks a required property.
var ErrMalformedRecord = errors.New("malformed record")

// PageSource is the subset of the Notion client the converter needs.
type PageSource interface {
	RetrievePage(ctx context.Context, pageID string) (*client.Page, error)
	BlockChildren(ctx context.Context, blockID string) ([]client.Block, error)
}

// Node is a block together with its resolved children.
type Node struct {
	Block    client.Block
	Children []Node
}

type Converter struct {
	pages  PageSource
	logger *zap.Logger
}

func New(pages PageSource, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Converter{pages: pages, logger: logger}
}

// Resolve turns the page id into a fully populated post. A page missing
// Title, Date or Description fails with ErrMalformedRecord; fetch failures
// are returned wrapped as they are.
func (c *Converter) Resolve(ctx context.Context, id string) (*model.Post, error) {
	page, err := c.pages.RetrievePage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("retrieving page %s: %w", id, err)
	}

	props, err := ExtractProperties(page)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", page.ID, err)
	}

	nodes, err := c.Tree(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("page %s content: %w", page.ID, err)
	}
	content := Markdown(nodes)

	return &model.Post{
		ID:          page.ID,
		Title:       props.Title,
		Slug:        model.Slugify(props.Title),
		CoverImage:  CoverOf(page).URL,
		Description: props.Description,
		Date:        props.Date,
		Content:     content,
		Author:      props.Author,
		Tags:        props.Tags,
		Category:    props.Category,
		WordCount:   WordCount(content),
	}, nil
}

// GetPost is Resolve with failures collapsed into a nil post. The error is
// logged and otherwise dropped.
func (c *Converter) GetPost(ctx context.Context, id string) *model.Post {
	post, err := c.Resolve(ctx, id)
	if err != nil {
		c.logger.Error("error getting post", zap.String("id", id), zap.Error(err))

		return nil
	}

	return post
}

// Tree fetches the block tree below blockID.
func (c *Converter) Tree(ctx context.Context, blockID string) ([]Node, error) {
	return c.tree(ctx, blockID, 0)
}

func (c *Converter) tree(ctx context.Context, blockID string, depth int) ([]Node, error) {
	blocks, err := c.pages.BlockChildren(ctx, blockID)
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(blocks))
	for _, b := range blocks {
		n := Node{Block: b}
		if b.HasChildren && b.Type != "child_page" && b.Type != "child_database" {
			if depth+1 >= maxDepth {
				c.logger.Warn("block tree too deep, children skipped", zap.String("block", b.ID))
			} else {
				children, err := c.tree(ctx, b.ID, depth+1)
				if err != nil {
					return nil, err
				}
				n.Children = children
			}
		}
		nodes = append(nodes, n)
	}

	return nodes, nil
}

// IsMalformed reports whether err came from a page missing required properties.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// WordCount counts whitespace separated tokens holding a letter or digit.
func WordCount(markdown string) int {
	n := 0
	for _, field := range strings.Fields(markdown) {
		if strings.IndexFunc(field, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}) >= 0 {
			n++
		}
	}

	return n
}
