package model

import (
	"strings"
	"time"
)

// Post is a render-ready blog post resolved from a published Notion page.
// The JSON shape is the cache file format.
type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	CoverImage  string   `json:"coverImage,omitempty"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Content     string   `json:"content"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	WordCount   int      `json:"wordCount,omitempty"`
}

// Slugify lowercases title and replaces every space with a hyphen.
// Colliding titles yield colliding slugs.
func Slugify(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

// dateLayouts are the shapes Notion uses for date.start.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
}

// ParseDate parses an ISO-ish post date. ok is false when no layout matches.
func ParseDate(value string) (t time.Time, ok bool) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

// Newer reports whether date a sorts before date b in newest-first order.
// Unparseable dates fall back to string comparison.
func Newer(a, b string) bool {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	if okA && okB {
		return ta.After(tb)
	}

	return a > b
}

// CoverKind tags which representation a page cover came from.
type CoverKind int

const (
	CoverNone CoverKind = iota
	CoverExternal
	CoverFile
)

func (k CoverKind) String() string {
	switch k {
	case CoverExternal:
		return "external"
	case CoverFile:
		return "file"
	default:
		return "none"
	}
}

// Cover is the resolved cover image of a page.
type Cover struct {
	Kind CoverKind
	URL  string
}
