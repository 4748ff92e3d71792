package postresponse

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blog/internal/model"
)

// PostResponse is the response payload for the Post data model.
//
// Render is called on the payload before it is marshalled, so computed
// fields such as URL are filled in there.
type PostResponse struct {
	*model.Post

	URL string `json:"url"`

	siteURL string
}

func NewPostResponse(post *model.Post, siteURL string) *PostResponse {
	return &PostResponse{Post: post, siteURL: siteURL}
}

func (rd *PostResponse) Render(w http.ResponseWriter, r *http.Request) error {
	rd.URL = strings.TrimRight(rd.siteURL, "/") + "/posts/" + url.PathEscape(rd.Slug)

	return nil
}

// PostSummary is the list form of a post. Content is left out to keep the
// index small; it is one request away at /api/posts/{slug}.
type PostSummary struct {
	*PostResponse

	Content string `json:"content,omitempty"`
}

func NewPostListResponse(posts []model.Post, siteURL string) []render.Renderer {
	list := []render.Renderer{}
	for i := range posts {
		list = append(list, &PostSummary{PostResponse: NewPostResponse(&posts[i], siteURL)})
	}

	return list
}

//--
// Error response payloads & renderers
//--

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	AppCode    int64  `json:"code,omitempty"`  // application-specific error code
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

// ErrUnavailable is returned when the post source cannot be read. The
// underlying error is logged, not echoed.
func ErrUnavailable(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "Posts are unavailable.",
	}
}

// nolint
var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
