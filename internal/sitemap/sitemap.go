// Package sitemap builds the sitemaps.org document for the blog.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/SergeyParamoshkin/blog/internal/model"
)

const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type Entry struct {
	URL             string
	LastModified    time.Time
	ChangeFrequency string
	Priority        float64
}

// Build returns the home entry followed by one entry per post, in the
// order given. Slugs are path-escaped in post URLs. A post date that does not parse leaves lastmod unset.
func Build(siteURL string, posts []model.Post, now time.Time) []Entry {
	site := strings.TrimRight(siteURL, "/")

	entries := make([]Entry, 0, len(posts)+1)
	entries = append(entries, Entry{
		URL:             site,
		LastModified:    now,
		ChangeFrequency: "daily",
		Priority:        1,
	})

	for _, p := range posts {
		lastmod, _ := model.ParseDate(p.Date)
		entries = append(entries, Entry{
			URL:             site + "/posts/" + url.PathEscape(p.Slug),
			LastModified:    lastmod,
			ChangeFrequency: "weekly",
			Priority:        0.8,
		})
	}

	return entries
}

type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

func Encode(w io.Writer, entries []Entry) error {
	set := urlset{Xmlns: Namespace, URLs: make([]urlEntry, 0, len(entries))}
	for _, e := range entries {
		u := urlEntry{
			Loc:        e.URL,
			ChangeFreq: e.ChangeFrequency,
			Priority:   fmt.Sprintf("%.1f", e.Priority),
		}
		if !e.LastModified.IsZero() {
			u.LastMod = e.LastModified.UTC().Format(time.RFC3339)
		}
		set.URLs = append(set.URLs, u)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}

	return enc.Flush()
}
