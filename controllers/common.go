package controllers

import (
	"net/http"

	"github.com/asehgal-dev/wanderlust/render"
	"github.com/asehgal-dev/wanderlust/session"
)

// page assembles the chrome every view needs; pulling the flashes here is
// what makes them one-shot.
func page(r *http.Request, title string, data any) *render.Page {
	p := &render.Page{Title: title, Data: data}
	if sess := session.FromContext(r.Context()); sess != nil {
		p.CurrentUser = sess.Username
		p.Success, p.Error = sess.ConsumeFlashes()
	}
	return p
}

// redirectBack returns the visitor to the referring page, or to fallback
// when the referrer is unknown.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := r.Referer()
	if target == "" {
		target = fallback
	}
	http.Redirect(w, r, target, http.StatusFound)
}
