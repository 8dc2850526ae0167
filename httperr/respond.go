package httperr

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/render"
)

// HandlerFunc is an http.HandlerFunc that may fail. Whatever it returns is
// routed to the terminal error page instead of crashing the request.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

type errorPage struct {
	Status  int
	Message string
}

// Responder is the single terminal error handler: typed errors render with
// their own status and message, everything else is logged and rendered as
// a generic 500 with no internal detail.
type Responder struct {
	renderer *render.Renderer
	logger   *zap.Logger
}

func NewResponder(renderer *render.Renderer, logger *zap.Logger) *Responder {
	return &Responder{renderer: renderer, logger: logger}
}

func (rp *Responder) Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			rp.Respond(w, r, err)
		}
	}
}

func (rp *Responder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	he, typed := From(err)
	if !typed {
		rp.logger.Error("unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	rp.renderer.HTML(w, he.Status, "error.tmpl", &render.Page{
		Title: "Error",
		Data:  errorPage{Status: he.Status, Message: he.Message},
	})
}
