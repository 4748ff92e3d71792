package post

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/model"
	"github.com/SergeyParamoshkin/blog/internal/postresponse"
)

type ctxKey int8

const ctxKeyPost ctxKey = iota

// FromContext returns the post loaded by one of the Ctx middlewares.
func FromContext(ctx context.Context) *model.Post {
	p, _ := ctx.Value(ctxKeyPost).(*model.Post)

	return p
}

// APIPostCtx middleware is used to load a Post from the {slug} URL
// parameter. In case the Post could not be found, we stop here and
// return a 404 payload.
func (h *Handler) APIPostCtx(next http.Handler) http.Handler {
	return h.postCtx(next,
		func(w http.ResponseWriter, r *http.Request) {
			h.renderErr(w, r, postresponse.ErrNotFound)
		},
		func(w http.ResponseWriter, r *http.Request, err error) {
			h.renderErr(w, r, postresponse.ErrUnavailable(err))
		},
	)
}

// PageCtx is APIPostCtx for the HTML pages: a miss renders the not-found page.
func (h *Handler) PageCtx(next http.Handler) http.Handler {
	return h.postCtx(next, h.NotFound, h.serverError)
}

func (h *Handler) postCtx(
	next http.Handler,
	missing http.HandlerFunc,
	failed func(http.ResponseWriter, *http.Request, error),
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		// chi routes on RawPath when the path holds escapes such as %2F.
		if r.URL.RawPath != "" {
			if unescaped, err := url.PathUnescape(slug); err == nil {
				slug = unescaped
			}
		}
		if slug == "" {
			missing(w, r)

			return
		}

		posts, err := h.source.Posts(r.Context())
		if err != nil {
			logging.FromContext(r.Context()).Errorw("load posts", "error", err)
			failed(w, r, err)

			return
		}

		post, ok := FindBySlug(posts, slug)
		if !ok {
			missing(w, r)

			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPost, post)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) renderErr(w http.ResponseWriter, r *http.Request, e render.Renderer) {
	if err := render.Render(w, r, e); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}
