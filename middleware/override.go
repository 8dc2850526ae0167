package middleware

import (
	"net/http"
	"strings"
)

// MethodOverride lets HTML forms express PUT and DELETE: a _method query
// parameter, or a _method field in a urlencoded POST body, rewrites the
// method before routing. Multipart forms use the query form so the body is
// left untouched for the upload adapter.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			m := r.URL.Query().Get("_method")
			if m == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				r.ParseForm()
				m = r.PostForm.Get("_method")
			}
			switch strings.ToUpper(m) {
			case http.MethodPut:
				r.Method = http.MethodPut
			case http.MethodDelete:
				r.Method = http.MethodDelete
			}
		}
		next.ServeHTTP(w, r)
	})
}
