package post

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/model"
	"github.com/SergeyParamoshkin/blog/internal/postcache"
)

type fakeSource struct {
	posts []model.Post
	err   error
}

func (f *fakeSource) Posts(ctx context.Context) ([]model.Post, error) {
	return f.posts, f.err
}

var fixture = []model.Post{
	{
		ID: "2", Title: "Hello World", Slug: "hello-world", Date: "2024-02-01",
		Description: "First words", Content: "## Intro\n\nSome **bold** text",
		Author: "Ada", Tags: []string{"go", "notion"}, WordCount: 4,
	},
	{ID: "1", Title: "Older", Slug: "older", Date: "2024-01-01", Description: "Earlier"},
	{ID: "3", Title: "Hello World", Slug: "hello-world", Date: "2023-12-01", Description: "Shadowed"},
}

func newServer(t *testing.T, src Source) *httptest.Server {
	t.Helper()
	h, err := NewHandler(src, "https://blog.example",
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }))
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	ts := httptest.NewServer(NewRouter(h, zap.NewNop().Sugar(), nil))
	t.Cleanup(ts.Close)

	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	return resp.StatusCode, string(body)
}

func TestPages(t *testing.T) {
	ts := newServer(t, &fakeSource{posts: fixture})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		contains   []string
		excludes   []string
	}{
		{
			name: "home", path: "/", wantStatus: http.StatusOK,
			contains: []string{`href="/posts/hello-world"`, `href="/posts/older"`, "February 1, 2024", "By Ada", "4 words", "<li>notion</li>"},
		},
		{
			name: "post", path: "/posts/hello-world", wantStatus: http.StatusOK,
			contains: []string{"<h1>Hello World</h1>", `<h2 id="intro">Intro</h2>`, "<strong>bold</strong>", "February 1, 2024", `content="First words"`},
			excludes: []string{"Shadowed"},
		},
		{
			name: "unknown slug", path: "/posts/nope", wantStatus: http.StatusNotFound,
			contains: []string{"Post Not Found"},
		},
		{
			name: "unknown route", path: "/nowhere", wantStatus: http.StatusNotFound,
			contains: []string{"Post Not Found"},
		},
		{name: "ping", path: "/ping", wantStatus: http.StatusOK, contains: []string{"pong"}},
		{name: "static", path: "/static/style.css", wantStatus: http.StatusOK, contains: []string{".card"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, ts, tt.path)
			if status != tt.wantStatus {
				t.Errorf("GET %s = %d, want %d", tt.path, status, tt.wantStatus)
			}
			for _, s := range tt.contains {
				if !strings.Contains(body, s) {
					t.Errorf("GET %s body missing %q", tt.path, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(body, s) {
					t.Errorf("GET %s body should not contain %q", tt.path, s)
				}
			}
		})
	}
}

func TestHomeKeepsSourceOrder(t *testing.T) {
	ts := newServer(t, &fakeSource{posts: fixture[:2]})
	_, body := get(t, ts, "/")
	if strings.Index(body, "/posts/hello-world") > strings.Index(body, "/posts/older") {
		t.Error("2024-02-01 should be listed before 2024-01-01")
	}
}

func TestSourceFailure(t *testing.T) {
	ts := newServer(t, &fakeSource{err: errors.New("disk on fire")})

	for path, want := range map[string]int{
		"/":                  http.StatusInternalServerError,
		"/posts/hello-world": http.StatusInternalServerError,
		"/api/posts":         http.StatusServiceUnavailable,
		"/api/posts/x":       http.StatusServiceUnavailable,
		"/sitemap.xml":       http.StatusServiceUnavailable,
	} {
		status, body := get(t, ts, path)
		if status != want {
			t.Errorf("GET %s = %d, want %d", path, status, want)
		}
		if strings.Contains(body, "disk on fire") {
			t.Errorf("GET %s leaked the source error", path)
		}
	}
}

func TestAPI(t *testing.T) {
	ts := newServer(t, &fakeSource{posts: fixture})

	status, body := get(t, ts, "/api/posts")
	if status != http.StatusOK {
		t.Fatalf("list status %d", status)
	}
	var list []map[string]interface{}
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("list is not JSON: %v\n%s", err, body)
	}
	if len(list) != len(fixture) {
		t.Fatalf("got %d posts, want %d", len(list), len(fixture))
	}
	if _, ok := list[0]["content"]; ok {
		t.Error("list entries should not carry content")
	}
	if list[0]["url"] != "https://blog.example/posts/hello-world" {
		t.Errorf("url = %v", list[0]["url"])
	}

	status, body = get(t, ts, "/api/posts/hello-world")
	if status != http.StatusOK {
		t.Fatalf("get status %d", status)
	}
	var got struct {
		model.Post
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fixture[0], got.Post); diff != "" {
		t.Errorf("post mismatch (-want +got):\n%s", diff)
	}

	status, body = get(t, ts, "/api/posts/nope")
	if status != http.StatusNotFound {
		t.Errorf("unknown slug status %d", status)
	}
	if !strings.Contains(body, "Resource not found.") {
		t.Errorf("unexpected 404 body %s", body)
	}
}

func TestSitemapRoute(t *testing.T) {
	ts := newServer(t, &fakeSource{posts: fixture[:2]})

	status, body := get(t, ts, "/sitemap.xml")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	if n := strings.Count(body, "<url>"); n != 3 {
		t.Errorf("got %d url entries, want 3", n)
	}
	if !strings.Contains(body, "<loc>https://blog.example/posts/older</loc>") {
		t.Errorf("missing post entry:\n%s", body)
	}
}

func TestFileSources(t *testing.T) {
	dir := t.TempDir()
	want := fixture[:2]

	cachePath := filepath.Join(dir, "posts-cache.json")
	if err := postcache.Write(cachePath, want); err != nil {
		t.Fatal(err)
	}
	mdDir := filepath.Join(dir, "md")
	if _, err := postcache.ExportMarkdown(mdDir, want); err != nil {
		t.Fatal(err)
	}

	for name, src := range map[string]Source{
		"cache":    CacheSource{Path: cachePath},
		"markdown": MarkdownSource{Dir: mdDir},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := src.Posts(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("posts mismatch (-want +got):\n%s", diff)
			}
		})
	}

	got, err := CacheSource{Path: filepath.Join(dir, "missing.json")}.Posts(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("missing cache file: got %v, %v", got, err)
	}
}

func TestFindBySlugFirstMatchWins(t *testing.T) {
	p, ok := FindBySlug(fixture, "hello-world")
	if !ok || p.ID != "2" {
		t.Errorf("got %+v, %v", p, ok)
	}
	if _, ok := FindBySlug(fixture, "missing"); ok {
		t.Error("unexpected match")
	}
}

func TestPunctuatedSlugs(t *testing.T) {
	var posts []model.Post
	for _, title := range []string{"What is Go?", "A/B testing", "Tips #1", "100% Go"} {
		posts = append(posts, model.Post{
			ID: title, Title: title, Slug: model.Slugify(title),
			Date: "2024-01-01", Description: "d",
		})
	}
	ts := newServer(t, &fakeSource{posts: posts})

	_, home := get(t, ts, "/")
	for _, p := range posts {
		link := `href="` + PostPath(p.Slug) + `"`
		if !strings.Contains(home, link) {
			t.Errorf("home page missing %s", link)
		}

		status, body := get(t, ts, PostPath(p.Slug))
		if status != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", PostPath(p.Slug), status)
			continue
		}
		if !strings.Contains(body, "<h1>"+template.HTMLEscapeString(p.Title)+"</h1>") {
			t.Errorf("GET %s rendered the wrong post", PostPath(p.Slug))
		}

		status, _ = get(t, ts, "/api"+PostPath(p.Slug))
		if status != http.StatusOK {
			t.Errorf("GET /api%s = %d, want 200", PostPath(p.Slug), status)
		}
	}

	if got, want := PostPath("a/b-testing"), "/posts/"+url.PathEscape("a/b-testing"); got != want {
		t.Errorf("PostPath = %q, want %q", got, want)
	}
}

func TestCacheSourceSkipsBadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts-cache.json")
	data := `[
  {"id":"1","title":"Good","slug":"good","date":"2024-01-01","description":"d","content":""},
  {"id":"2","slug":"untitled","date":"2024-01-02","description":"d","content":""}
]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.WarnLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core).Sugar())

	posts, err := CacheSource{Path: path}.Posts(ctx)
	if err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "good" {
		t.Errorf("expected only the good post, got %+v", posts)
	}
	if n := logs.FilterMessage("cache entry skipped").Len(); n != 1 {
		t.Errorf("expected one skipped-entry log, got %d", n)
	}

	if err := os.WriteFile(path, []byte(`{"not":"a list"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (CacheSource{Path: path}).Posts(ctx); err == nil {
		t.Error("a snapshot that is not a list should fail")
	}
}
