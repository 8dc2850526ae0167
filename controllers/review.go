package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/httperr"
	"github.com/asehgal-dev/wanderlust/models"
	"github.com/asehgal-dev/wanderlust/session"
	"github.com/asehgal-dev/wanderlust/storage"
	"github.com/asehgal-dev/wanderlust/validation"
)

type ReviewController struct {
	listings storage.ListingStore
	reviews  storage.ReviewStore
	logger   *zap.Logger
}

func NewReviewController(listings storage.ListingStore, reviews storage.ReviewStore, logger *zap.Logger) *ReviewController {
	return &ReviewController{listings: listings, reviews: reviews, logger: logger}
}

func (c *ReviewController) Create(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	listingID := mux.Vars(r)["id"]
	objID, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return httperr.NotFound("Listing not found")
	}

	listing, err := c.listings.FindByID(r.Context(), objID)
	if err == storage.ErrNotFound {
		return httperr.NotFound("Listing not found")
	}
	if err != nil {
		return err
	}

	if err := r.ParseForm(); err != nil {
		return httperr.BadRequest("Invalid form payload")
	}
	fields := validation.NormalizeForm(r.PostForm, "review")
	payload, err := validation.ValidateReview(fields)
	if err != nil {
		return err
	}

	author, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		return err
	}

	review := &models.Review{
		Rating:  payload.Rating,
		Comment: payload.Comment,
		Author:  author,
	}
	if err := c.reviews.Create(r.Context(), review); err != nil {
		return err
	}
	if err := c.listings.AttachReview(r.Context(), listing.ID, review.ID); err != nil {
		return err
	}

	sess.FlashSuccess("Review added")
	http.Redirect(w, r, "/listings/"+listingID, http.StatusFound)
	return nil
}

// Delete detaches the review from its listing, then removes the review
// document. Either step failing leaves the other's data intact, and both
// are idempotent, so a retry converges.
func (c *ReviewController) Delete(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	vars := mux.Vars(r)
	listingID := vars["id"]

	objID, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return httperr.NotFound("Listing not found")
	}
	reviewID, err := primitive.ObjectIDFromHex(vars["reviewId"])
	if err != nil {
		return httperr.NotFound("Review not found")
	}

	if err := c.listings.DetachReview(r.Context(), objID, reviewID); err != nil {
		return err
	}
	if err := c.reviews.Delete(r.Context(), reviewID); err != nil && err != storage.ErrNotFound {
		return err
	}

	sess.FlashSuccess("Review deleted")
	http.Redirect(w, r, "/listings/"+listingID, http.StatusFound)
	return nil
}
