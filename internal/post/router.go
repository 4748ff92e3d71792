package post

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/metrics"
)

// NewRouter mounts the pages, the JSON API and the static assets. m may be
// nil when metrics are not collected.
func NewRouter(h *Handler, logger *zap.SugaredLogger, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/", h.Home)
	r.Get("/sitemap.xml", h.Sitemap)
	r.With(h.PageCtx).Get("/posts/{slug}", h.ShowPost)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("pong")); err != nil {
			logging.FromContext(r.Context()).Errorw(err.Error())
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/posts", h.ListPosts)                         // GET /api/posts
		r.With(h.APIPostCtx).Get("/posts/{slug}", h.GetPost) // GET /api/posts/hello-world
	})

	FileServer(r, "/static", Static())

	r.NotFound(h.NotFound)

	return r
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit any URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}
