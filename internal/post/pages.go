package post

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/markdown"
	"github.com/SergeyParamoshkin/blog/internal/model"
	"github.com/SergeyParamoshkin/blog/internal/sitemap"
)

// DateLayout is how post dates are shown on pages.
const DateLayout = "January 2, 2006"

//go:embed templates
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Handler serves the blog pages and the JSON API from a Source.
type Handler struct {
	source   Source
	siteURL  string
	pages    *template.Template
	markdown *markdown.Renderer
	now      func() time.Time
}

type Option func(*Handler)

// WithClock overrides time.Now, used for the sitemap home entry.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(source Source, siteURL string, opts ...Option) (*Handler, error) {
	pages, err := template.New("").Funcs(template.FuncMap{
		"date":     FormatDate,
		"postPath": PostPath,
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	h := &Handler{
		source:   source,
		siteURL:  siteURL,
		pages:    pages,
		markdown: markdown.New(markdown.Options{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// FormatDate renders a post date as "January 2, 2006". Values that are not
// dates are shown as they are.
func FormatDate(value string) string {
	t, ok := model.ParseDate(value)
	if !ok {
		return value
	}

	return t.Format(DateLayout)
}

// PostPath is the page path for slug. Slugs keep any punctuation from the
// title, so they are escaped as one path segment.
func PostPath(slug string) string {
	return "/posts/" + url.PathEscape(slug)
}

type page struct {
	Title string
	Posts []model.Post
	Post  *model.Post
	Body  template.HTML
	Year  int
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	posts, err := h.source.Posts(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Errorw("load posts", "error", err)
		h.serverError(w, r, err)

		return
	}

	h.render(w, r, http.StatusOK, "home.html", page{Title: "Blog", Posts: posts})
}

// ShowPost renders the Post loaded by PageCtx.
func (h *Handler) ShowPost(w http.ResponseWriter, r *http.Request) {
	post := FromContext(r.Context())

	body, err := h.markdown.Render(post.Content)
	if err != nil {
		logging.FromContext(r.Context()).Errorw("render post", "slug", post.Slug, "error", err)
		h.serverError(w, r, err)

		return
	}

	h.render(w, r, http.StatusOK, "post.html", page{Title: post.Title, Post: post, Body: body})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound.html", page{Title: "Post Not Found"})
}

func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := h.source.Posts(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Errorw("load posts", "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)

		return
	}

	var buf bytes.Buffer
	if err := sitemap.Encode(&buf, sitemap.Build(h.siteURL, posts, h.now())); err != nil {
		logging.FromContext(r.Context()).Errorw("encode sitemap", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, _ error) {
	h.render(w, r, http.StatusInternalServerError, "error.html", page{Title: "Something went wrong"})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	data.Year = h.now().Year()

	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		logging.FromContext(r.Context()).Errorw("execute template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}

// Static returns the embedded stylesheet directory.
func Static() http.FileSystem {
	fsys, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	return http.FS(fsys)
}
