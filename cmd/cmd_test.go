package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/internal/config"
	"github.com/SergeyParamoshkin/blog/internal/postcache"
)

const (
	testDatabase = "0b3c8f8e-6c2b-4f49-9d57-4a1b1f1d6c11"
	goodPage     = "2f8d1a7c-9b0e-4c5d-8e7f-6a5b4c3d2e1f"
	badPage      = "7a6b5c4d-3e2f-4a1b-9c8d-7e6f5a4b3c2d"
)

func text(s string) []map[string]interface{} {
	return []map[string]interface{}{{"type": "text", "plain_text": s}}
}

func notionPage(id, title string) map[string]interface{} {
	props := map[string]interface{}{
		"Status":      map[string]interface{}{"type": "status", "status": map[string]string{"name": "Published"}},
		"Date":        map[string]interface{}{"type": "date", "date": map[string]string{"start": "2024-02-01"}},
		"Description": map[string]interface{}{"type": "rich_text", "rich_text": text("About things")},
	}
	if title != "" {
		props["Title"] = map[string]interface{}{"type": "title", "title": text(title)}
	}

	return map[string]interface{}{"object": "page", "id": id, "properties": props}
}

// fakeNotion serves one complete page and one without a title.
func fakeNotion(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]map[string]interface{}{
		goodPage: notionPage(goodPage, "Hello World"),
		badPage:  notionPage(badPage, ""),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/databases/"+testDatabase+"/query", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results":  []interface{}{pages[goodPage], pages[badPage]},
			"has_more": false,
		})
	})
	mux.HandleFunc("/v1/pages/", func(w http.ResponseWriter, r *http.Request) {
		p, ok := pages[strings.TrimPrefix(r.URL.Path, "/v1/pages/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"code": "object_not_found", "message": "nope"})

			return
		}
		json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("/v1/blocks/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []interface{}{map[string]interface{}{
				"object": "block", "id": "blk", "type": "paragraph",
				"paragraph": map[string]interface{}{"rich_text": text("Body text")},
			}},
			"has_more": false,
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

func testConfig(t *testing.T, addr string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.NotionToken = "secret"
	cfg.DatabaseID = testDatabase
	cfg.NotionAddr = addr
	cfg.RateLimit = 0
	cfg.CachePath = filepath.Join(dir, "posts-cache.json")
	cfg.MarkdownDir = filepath.Join(dir, "md")

	return cfg
}

func TestCachePosts(t *testing.T) {
	ts := fakeNotion(t)
	cfg := testConfig(t, ts.URL)

	var out bytes.Buffer
	if err := CachePosts(context.Background(), cfg, &out, zap.NewNop()); err != nil {
		t.Fatalf("CachePosts: %v", err)
	}
	if got := out.String(); got != "Successfully cached 1 posts.\n" {
		t.Errorf("stdout = %q", got)
	}

	posts, err := postcache.Read(cfg.CachePath)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "hello-world" || posts[0].Content != "Body text" {
		t.Errorf("unexpected snapshot %+v", posts)
	}

	exported, err := postcache.ReadMarkdownDir(cfg.MarkdownDir)
	if err != nil || len(exported) != 1 {
		t.Errorf("markdown export: %d posts, %v", len(exported), err)
	}
}

func TestCachePostsNeedsCredentials(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.NotionToken = ""

	var out bytes.Buffer
	if err := CachePosts(context.Background(), cfg, &out, zap.NewNop()); err == nil {
		t.Fatal("expected an error without NOTION_TOKEN")
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed on failure, got %q", out.String())
	}
}

func TestCachePostsListingFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"code": "unauthorized", "message": "bad token"})
	}))
	defer ts.Close()
	cfg := testConfig(t, ts.URL)

	if err := CachePosts(context.Background(), cfg, &bytes.Buffer{}, zap.NewNop()); err == nil {
		t.Fatal("expected the listing error to fail the run")
	}
	if _, err := postcache.Read(cfg.CachePath); err == nil {
		t.Error("no cache file should be written when listing fails")
	}
}

func TestNewSource(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")

	for _, source := range []string{config.SourceCache, config.SourceMarkdown, config.SourceLive} {
		cfg.Source = source
		if _, err := newSource(cfg, zap.NewNop(), nil); err != nil {
			t.Errorf("newSource(%s): %v", source, err)
		}
	}

	cfg.Source = config.SourceLive
	cfg.DatabaseID = ""
	if _, err := newSource(cfg, zap.NewNop(), nil); err == nil {
		t.Error("live source without a database id should fail")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	return l.Addr().String()
}

func TestServeStopsOnCancel(t *testing.T) {
	addr := freeAddr(t)
	srv := &http.Server{Addr: addr, Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, zap.NewNop().Sugar(), []*http.Server{srv}, "cache") }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	srv := &http.Server{Addr: l.Addr().String(), Handler: http.NotFoundHandler()}
	if err := serve(context.Background(), zap.NewNop().Sugar(), []*http.Server{srv}, "cache"); err == nil {
		t.Error("expected an error for an address in use")
	}
}
