package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/geocode"
	"github.com/asehgal-dev/wanderlust/httperr"
	"github.com/asehgal-dev/wanderlust/models"
	"github.com/asehgal-dev/wanderlust/render"
	"github.com/asehgal-dev/wanderlust/session"
	"github.com/asehgal-dev/wanderlust/storage"
	"github.com/asehgal-dev/wanderlust/upload"
	"github.com/asehgal-dev/wanderlust/validation"
)

const (
	imageField      = "listing[image]"
	multipartMemory = 10 << 20
)

type ListingController struct {
	listings storage.ListingStore
	reviews  storage.ReviewStore
	users    storage.UserStore
	cache    *storage.ListingCache
	uploads  upload.Store
	geocoder *geocode.Client // nil when geocoding is not configured
	renderer *render.Renderer
	logger   *zap.Logger
	maxBytes int64
}

func NewListingController(
	listings storage.ListingStore,
	reviews storage.ReviewStore,
	users storage.UserStore,
	cache *storage.ListingCache,
	uploads upload.Store,
	geocoder *geocode.Client,
	renderer *render.Renderer,
	logger *zap.Logger,
	maxBytes int64,
) *ListingController {
	return &ListingController{
		listings: listings,
		reviews:  reviews,
		users:    users,
		cache:    cache,
		uploads:  uploads,
		geocoder: geocoder,
		renderer: renderer,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

type indexData struct {
	Listings       []models.Listing
	Pagination     storage.Pagination
	ActiveCategory string
	Query          string
	Categories     []string
}

func (c *ListingController) Index(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	filter := storage.ListingFilter{
		Category: query.Get("category"),
		Query:    strings.TrimSpace(query.Get("q")),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	filter = filter.Normalize()

	cacheKey := c.cache.Key(query)
	result, ok := c.cache.Get(r.Context(), cacheKey)
	if !ok {
		listings, pagination, err := c.listings.Find(r.Context(), filter)
		if err != nil {
			return err
		}
		result = &storage.CachedIndex{Listings: listings, Pagination: pagination}
		c.cache.Set(r.Context(), cacheKey, result)
	}

	c.renderer.HTML(w, http.StatusOK, "index.tmpl", page(r, "All Listings", indexData{
		Listings:       result.Listings,
		Pagination:     result.Pagination,
		ActiveCategory: filter.Category,
		Query:          filter.Query,
		Categories:     models.Categories,
	}))
	return nil
}

type formData struct {
	Listing    *models.Listing
	Categories []string
}

func (c *ListingController) New(w http.ResponseWriter, r *http.Request) error {
	c.renderer.HTML(w, http.StatusOK, "new.tmpl", page(r, "New Listing", formData{
		Categories: models.Categories,
	}))
	return nil
}

type reviewView struct {
	Review   models.Review
	Author   models.User
	IsAuthor bool
}

type showData struct {
	Listing *models.Listing
	Owner   *models.User
	Reviews []reviewView
	IsOwner bool
}

func (c *ListingController) Show(w http.ResponseWriter, r *http.Request) error {
	objID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
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

	reviews, err := c.reviews.FindByIDs(r.Context(), listing.Reviews)
	if err != nil {
		return err
	}

	authorIDs := make([]primitive.ObjectID, 0, len(reviews))
	for _, rev := range reviews {
		authorIDs = append(authorIDs, rev.Author)
	}
	authors, err := c.users.FindByIDs(r.Context(), authorIDs)
	if err != nil {
		return err
	}

	owner, err := c.users.FindByID(r.Context(), listing.Owner)
	if err != nil && err != storage.ErrNotFound {
		return err
	}

	sess := session.FromContext(r.Context())
	currentUser := ""
	if sess != nil {
		currentUser = sess.UserID
	}

	views := make([]reviewView, 0, len(reviews))
	for _, rev := range reviews {
		views = append(views, reviewView{
			Review:   rev,
			Author:   authors[rev.Author],
			IsAuthor: rev.Author.Hex() == currentUser,
		})
	}

	c.renderer.HTML(w, http.StatusOK, "show.tmpl", page(r, listing.Title, showData{
		Listing: listing,
		Owner:   owner,
		Reviews: views,
		IsOwner: listing.Owner.Hex() == currentUser,
	}))
	return nil
}

// parseListingForm runs the upload step of the pipeline: cap the body,
// parse the multipart payload, store a file if one was attached, and inject
// the stored URL into the fields so validation sees it. tooLarge is a
// distinct outcome so callers can flash-and-redirect instead of erroring.
func (c *ListingController) parseListingForm(w http.ResponseWriter, r *http.Request) (fields map[string]string, stored *upload.StoredFile, tooLarge bool, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if upload.IsTooLarge(err) {
			return nil, nil, true, nil
		}
		return nil, nil, false, httperr.BadRequest("Invalid form payload")
	}

	fields = validation.NormalizeForm(r.PostForm, "listing")

	name, data, ok, err := upload.FormFile(r, imageField)
	if err != nil {
		if upload.IsTooLarge(err) {
			return nil, nil, true, nil
		}
		return nil, nil, false, err
	}
	if ok {
		stored, err = c.uploads.Store(r.Context(), name, data)
		if err != nil {
			return nil, nil, false, err
		}
		fields["image"] = stored.URL
	}
	return fields, stored, false, nil
}

// geocodeLocation is best-effort: any failure is logged and yields no
// geometry, never an error for the caller.
func (c *ListingController) geocodeLocation(ctx context.Context, address string) *models.Geometry {
	if c.geocoder == nil {
		return nil
	}
	result, err := c.geocoder.Geocode(ctx, address)
	if err != nil {
		c.logger.Warn("geocoding failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	if result == nil {
		return nil
	}
	return &models.Geometry{Type: "Point", Coordinates: []float64{result.Lng, result.Lat}}
}

func (c *ListingController) Create(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	fields, stored, tooLarge, err := c.parseListingForm(w, r)
	if tooLarge {
		sess.FlashError("Uploaded image is too large")
		redirectBack(w, r, "/listings/new")
		return nil
	}
	if err != nil {
		return err
	}

	payload, err := validation.ValidateListing(fields)
	if err != nil {
		return err
	}

	// Owner always comes from the session, never from the payload.
	owner, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		return err
	}

	listing := &models.Listing{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       payload.Price,
		Location:    payload.Location,
		Country:     payload.Country,
		Category:    payload.Category,
		Owner:       owner,
		Reviews:     []primitive.ObjectID{},
	}
	if stored != nil {
		listing.Image = &models.Image{URL: stored.URL, Filename: stored.Filename}
	}
	listing.Geometry = c.geocodeLocation(r.Context(), payload.Location)

	if err := c.listings.Create(r.Context(), listing); err != nil {
		return err
	}

	go c.cache.Invalidate()

	sess.FlashSuccess("Successfully created a new listing")
	http.Redirect(w, r, "/listings", http.StatusFound)
	return nil
}

func (c *ListingController) Edit(w http.ResponseWriter, r *http.Request) error {
	objID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
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

	c.renderer.HTML(w, http.StatusOK, "edit.tmpl", page(r, "Edit Listing", formData{
		Listing:    listing,
		Categories: models.Categories,
	}))
	return nil
}

func (c *ListingController) Update(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	listingID := mux.Vars(r)["id"]
	objID, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return httperr.NotFound("Listing not found")
	}

	current, err := c.listings.FindByID(r.Context(), objID)
	if err == storage.ErrNotFound {
		return httperr.NotFound("Listing not found")
	}
	if err != nil {
		return err
	}

	fields, stored, tooLarge, err := c.parseListingForm(w, r)
	if tooLarge {
		sess.FlashError("Uploaded image is too large")
		redirectBack(w, r, "/listings/"+listingID+"/edit")
		return nil
	}
	if err != nil {
		return err
	}

	// Full validation on update: absent fields keep their stored (already
	// valid) values, present-but-invalid ones fail with 400.
	merged := make(map[string]string, len(fields))
	for k, v := range fields {
		merged[k] = v
	}
	fill := func(key, value string) {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	fill("title", current.Title)
	fill("description", current.Description)
	fill("location", current.Location)
	fill("country", current.Country)
	fill("category", current.Category)
	fill("price", strconv.FormatFloat(current.Price, 'f', -1, 64))
	fill("image", current.ImageURL())

	payload, err := validation.ValidateListing(merged)
	if err != nil {
		return err
	}

	set := bson.M{}
	if _, ok := fields["title"]; ok {
		set["title"] = payload.Title
	}
	if _, ok := fields["description"]; ok {
		set["description"] = payload.Description
	}
	if _, ok := fields["price"]; ok {
		set["price"] = payload.Price
	}
	if _, ok := fields["country"]; ok {
		set["country"] = payload.Country
	}
	if _, ok := fields["category"]; ok {
		set["category"] = payload.Category
	}
	if stored != nil {
		set["image"] = models.Image{URL: stored.URL, Filename: stored.Filename}
	}
	if _, ok := fields["location"]; ok {
		set["location"] = payload.Location
		if geom := c.geocodeLocation(r.Context(), payload.Location); geom != nil {
			set["geometry"] = geom
		}
	}

	if len(set) > 0 {
		err = c.listings.Update(r.Context(), objID, set)
		if err == storage.ErrNotFound {
			return httperr.NotFound("Listing not found")
		}
		if err != nil {
			return err
		}
	}

	go c.cache.Invalidate()

	sess.FlashSuccess("Listing updated successfully")
	http.Redirect(w, r, "/listings/"+listingID, http.StatusFound)
	return nil
}

// Delete removes the listing, then cascades to its reviews as an explicit
// second step. A cascade failure leaves orphaned review documents behind
// rather than failing the delete; the step is idempotent and safe to
// re-run.
func (c *ListingController) Delete(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	objID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return httperr.NotFound("Listing not found")
	}

	deleted, err := c.listings.Delete(r.Context(), objID)
	if err == storage.ErrNotFound {
		return httperr.NotFound("Listing not found")
	}
	if err != nil {
		return err
	}

	if _, err := c.reviews.DeleteMany(r.Context(), deleted.Reviews); err != nil {
		c.logger.Warn("review cascade failed, orphaned review documents remain",
			zap.String("listing", objID.Hex()),
			zap.Error(err))
	}

	go c.cache.Invalidate()

	sess.FlashSuccess("Listing deleted")
	http.Redirect(w, r, "/listings", http.StatusFound)
	return nil
}
