package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/httperr"
	"github.com/asehgal-dev/wanderlust/session"
	"github.com/asehgal-dev/wanderlust/storage"
)

// Guard short-circuits requests that lack the required identity. Failed
// checks redirect with a flash; a missing target document renders the 404
// page through the terminal responder.
type Guard struct {
	listings storage.ListingStore
	reviews  storage.ReviewStore
	respond  *httperr.Responder
	logger   *zap.Logger
}

func NewGuard(listings storage.ListingStore, reviews storage.ReviewStore, respond *httperr.Responder, logger *zap.Logger) *Guard {
	return &Guard{listings: listings, reviews: reviews, respond: respond, logger: logger}
}

// RequireLogin saves the requested path for a post-login redirect, then
// sends anonymous visitors to the login form.
func (g *Guard) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil || !sess.IsAuthenticated() {
			if sess != nil {
				sess.ReturnTo = r.URL.RequestURI()
				sess.FlashError("You must be signed in to do that")
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireListingOwner runs after RequireLogin on listing mutation routes.
func (g *Guard) RequireListingOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())

		id := mux.Vars(r)["id"]
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			g.respond.Respond(w, r, httperr.NotFound("Listing not found"))
			return
		}

		listing, err := g.listings.FindByID(r.Context(), objID)
		if err == storage.ErrNotFound {
			g.respond.Respond(w, r, httperr.NotFound("Listing not found"))
			return
		}
		if err != nil {
			g.respond.Respond(w, r, err)
			return
		}

		if listing.Owner.Hex() != sess.UserID {
			g.logger.Info("blocked non-owner listing mutation",
				zap.String("listing", id),
				zap.String("user", sess.UserID))
			sess.FlashError("You do not have permission to do that")
			http.Redirect(w, r, "/listings/"+id, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireReviewAuthor runs after RequireLogin on review deletion.
func (g *Guard) RequireReviewAuthor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		vars := mux.Vars(r)
		listingID := vars["id"]

		reviewID, err := primitive.ObjectIDFromHex(vars["reviewId"])
		if err != nil {
			g.respond.Respond(w, r, httperr.NotFound("Review not found"))
			return
		}

		review, err := g.reviews.FindByID(r.Context(), reviewID)
		if err == storage.ErrNotFound {
			g.respond.Respond(w, r, httperr.NotFound("Review not found"))
			return
		}
		if err != nil {
			g.respond.Respond(w, r, err)
			return
		}

		if review.Author.Hex() != sess.UserID {
			sess.FlashError("You do not have permission to do that")
			http.Redirect(w, r, "/listings/"+listingID, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
