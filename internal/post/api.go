package post

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blog/internal/logging"
	"github.com/SergeyParamoshkin/blog/internal/postresponse"
)

// ListPosts returns every published post without its content.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.source.Posts(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Errorw("load posts", "error", err)
		h.renderErr(w, r, postresponse.ErrUnavailable(err))

		return
	}

	if err := render.RenderList(w, r, postresponse.NewPostListResponse(posts, h.siteURL)); err != nil {
		h.renderErr(w, r, postresponse.ErrRender(err))
	}
}

// GetPost returns the Post loaded by APIPostCtx.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post := FromContext(r.Context())

	if err := render.Render(w, r, postresponse.NewPostResponse(post, h.siteURL)); err != nil {
		h.renderErr(w, r, postresponse.ErrRender(err))
	}
}
