package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/asehgal-dev/wanderlust/controllers"
	"github.com/asehgal-dev/wanderlust/httperr"
	"github.com/asehgal-dev/wanderlust/middleware"
	"github.com/asehgal-dev/wanderlust/upload"
)

type Deps struct {
	Listings *controllers.ListingController
	Reviews  *controllers.ReviewController
	Auth     *controllers.AuthController
	Guard    *middleware.Guard
	Respond  *httperr.Responder

	// UploadsDir is the local upload directory to serve statically, or ""
	// when uploads live in object storage.
	UploadsDir string
}

func Routes(router *mux.Router, d Deps) {
	wrap := d.Respond.Wrap
	login := d.Guard.RequireLogin

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/listings", http.StatusFound)
	}).Methods("GET")

	// Auth routes
	router.HandleFunc("/signup", wrap(d.Auth.SignupForm)).Methods("GET")
	router.HandleFunc("/signup", wrap(d.Auth.Signup)).Methods("POST")
	router.HandleFunc("/login", wrap(d.Auth.LoginForm)).Methods("GET")
	router.HandleFunc("/login", wrap(d.Auth.Login)).Methods("POST")
	router.Handle("/logout", login(wrap(d.Auth.Logout))).Methods("POST")

	// Listing routes; /listings/new before /listings/{id} so "new" is not
	// taken for an id.
	router.HandleFunc("/listings", wrap(d.Listings.Index)).Methods("GET")
	router.Handle("/listings", login(wrap(d.Listings.Create))).Methods("POST")
	router.Handle("/listings/new", login(wrap(d.Listings.New))).Methods("GET")
	router.HandleFunc("/listings/{id}", wrap(d.Listings.Show)).Methods("GET")
	router.Handle("/listings/{id}/edit",
		login(d.Guard.RequireListingOwner(wrap(d.Listings.Edit)))).Methods("GET")
	router.Handle("/listings/{id}",
		login(d.Guard.RequireListingOwner(wrap(d.Listings.Update)))).Methods("PUT")
	router.Handle("/listings/{id}",
		login(d.Guard.RequireListingOwner(wrap(d.Listings.Delete)))).Methods("DELETE")

	// Review routes
	router.Handle("/listings/{id}/reviews", login(wrap(d.Reviews.Create))).Methods("POST")
	router.Handle("/listings/{id}/reviews/{reviewId}",
		login(d.Guard.RequireReviewAuthor(wrap(d.Reviews.Delete)))).Methods("DELETE")

	if d.UploadsDir != "" {
		router.PathPrefix(upload.URLPrefix).Handler(
			http.StripPrefix(upload.URLPrefix, http.FileServer(http.Dir(d.UploadsDir))))
	}
}
