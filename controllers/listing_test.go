package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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
)

type MockListingStore struct{ mock.Mock }

func (m *MockListingStore) Create(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *MockListingStore) Find(ctx context.Context, filter storage.ListingFilter) ([]models.Listing, storage.Pagination, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.Pagination), args.Error(2)
	}
	return args.Get(0).([]models.Listing), args.Get(1).(storage.Pagination), args.Error(2)
}
func (m *MockListingStore) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	args := m.Called(ctx, id, set)
	return args.Error(0)
}
func (m *MockListingStore) Delete(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}
func (m *MockListingStore) AttachReview(ctx context.Context, listingID, reviewID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, reviewID)
	return args.Error(0)
}
func (m *MockListingStore) DetachReview(ctx context.Context, listingID, reviewID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, reviewID)
	return args.Error(0)
}

type MockReviewStore struct{ mock.Mock }

func (m *MockReviewStore) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}
func (m *MockReviewStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}
func (m *MockReviewStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Review, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Review), args.Error(1)
}
func (m *MockReviewStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockReviewStore) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserStore struct{ mock.Mock }

func (m *MockUserStore) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[primitive.ObjectID]models.User), args.Error(1)
}
func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type fakeUploadStore struct {
	stored *upload.StoredFile
	calls  int
}

func (f *fakeUploadStore) Store(_ context.Context, _ string, _ []byte) (*upload.StoredFile, error) {
	f.calls++
	return f.stored, nil
}

func testRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New(zap.NewNop())
	require.NoError(t, err)
	return r
}

// deadCache points at a closed port; every cache operation fails fast and
// is swallowed, which is exactly the production degradation path.
func deadCache() *storage.ListingCache {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return storage.NewListingCache(client, zap.NewNop())
}

type listingFixture struct {
	controller *ListingController
	listings   *MockListingStore
	reviews    *MockReviewStore
	users      *MockUserStore
	uploads    *fakeUploadStore
}

func newListingFixture(t *testing.T, geocoder *geocode.Client, maxBytes int64) *listingFixture {
	f := &listingFixture{
		listings: new(MockListingStore),
		reviews:  new(MockReviewStore),
		users:    new(MockUserStore),
		uploads:  &fakeUploadStore{stored: &upload.StoredFile{URL: "/uploads/1-abcd-villa.jpg", Filename: "1-abcd-villa.jpg"}},
	}
	f.controller = NewListingController(f.listings, f.reviews, f.users, deadCache(),
		f.uploads, geocoder, testRenderer(t), zap.NewNop(), maxBytes)
	return f
}

func authedSession(userID primitive.ObjectID) *session.Session {
	return &session.Session{ID: "sess-1", UserID: userID.Hex(), Username: "asehgal"}
}

func withSession(r *http.Request, sess *session.Session) *http.Request {
	return r.WithContext(session.WithSession(r.Context(), sess))
}

func listingForm(t *testing.T, fields map[string]string, fileSize int) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileSize > 0 {
		part, err := writer.CreateFormFile("listing[image]", "villa.jpg")
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("x"), fileSize))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func validFormFields() map[string]string {
	return map[string]string{
		"listing[title]":       "Ocean View Villa",
		"listing[description]": "A lovely villa with a view of the sea",
		"listing[location]":    "Alibaug",
		"listing[country]":     "India",
		"listing[price]":       "4500",
		"listing[category]":    "Beaches",
	}
}

func TestCreateSetsOwnerFromSession(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)
	owner := primitive.NewObjectID()
	sess := authedSession(owner)

	fields := validFormFields()
	// A smuggled owner field must never win over the session.
	fields["listing[owner]"] = primitive.NewObjectID().Hex()

	body, contentType := listingForm(t, fields, 256)
	r := httptest.NewRequest(http.MethodPost, "/listings", body)
	r.Header.Set("Content-Type", contentType)
	r = withSession(r, sess)
	w := httptest.NewRecorder()

	var created *models.Listing
	f.listings.On("Create", mock.Anything, mock.AnythingOfType("*models.Listing")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.Listing) }).
		Return(nil)

	err := f.controller.Create(w, r)
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, owner, created.Owner)
	assert.Equal(t, "Ocean View Villa", created.Title)
	require.NotNil(t, created.Image)
	assert.Equal(t, "1-abcd-villa.jpg", created.Image.Filename)
	assert.Nil(t, created.Geometry)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/listings", w.Header().Get("Location"))
	assert.Equal(t, []string{"Successfully created a new listing"}, sess.Success)
}

func TestCreateToleratesGeocodingFailure(t *testing.T) {
	geocoder, err := geocode.NewClient("test-key", zap.NewNop(),
		geocode.WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)

	f := newListingFixture(t, geocoder, 1<<20)
	sess := authedSession(primitive.NewObjectID())

	body, contentType := listingForm(t, validFormFields(), 256)
	r := httptest.NewRequest(http.MethodPost, "/listings", body)
	r.Header.Set("Content-Type", contentType)
	r = withSession(r, sess)
	w := httptest.NewRecorder()

	var created *models.Listing
	f.listings.On("Create", mock.Anything, mock.AnythingOfType("*models.Listing")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.Listing) }).
		Return(nil)

	require.NoError(t, f.controller.Create(w, r))

	require.NotNil(t, created)
	assert.Nil(t, created.Geometry)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestCreateRejectsOversizedUploadBeforePersisting(t *testing.T) {
	f := newListingFixture(t, nil, 512)
	sess := authedSession(primitive.NewObjectID())

	body, contentType := listingForm(t, validFormFields(), 64<<10)
	r := httptest.NewRequest(http.MethodPost, "/listings", body)
	r.Header.Set("Content-Type", contentType)
	r = withSession(r, sess)
	w := httptest.NewRecorder()

	require.NoError(t, f.controller.Create(w, r))

	f.listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.uploads.calls)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/listings/new", w.Header().Get("Location"))
	assert.Equal(t, []string{"Uploaded image is too large"}, sess.Error)
}

func TestCreateInvalidPayloadIsBadRequest(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)
	sess := authedSession(primitive.NewObjectID())

	fields := validFormFields()
	fields["listing[description]"] = "short"
	body, contentType := listingForm(t, fields, 256)
	r := httptest.NewRequest(http.MethodPost, "/listings", body)
	r.Header.Set("Content-Type", contentType)
	r = withSession(r, sess)

	err := f.controller.Create(httptest.NewRecorder(), r)
	require.Error(t, err)

	he, typed := httperr.From(err)
	assert.True(t, typed)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	f.listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestShowNotFound(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)

	id := primitive.NewObjectID()
	f.listings.On("FindByID", mock.Anything, id).Return(nil, storage.ErrNotFound)

	r := httptest.NewRequest(http.MethodGet, "/listings/"+id.Hex(), nil)
	r = mux.SetURLVars(r, map[string]string{"id": id.Hex()})
	r = withSession(r, &session.Session{ID: "anon"})

	err := f.controller.Show(httptest.NewRecorder(), r)
	require.Error(t, err)
	he, _ := httperr.From(err)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestShowRendersListingWithReviews(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)

	owner := models.User{ID: primitive.NewObjectID(), Username: "host"}
	author := models.User{ID: primitive.NewObjectID(), Username: "guest"}
	review := models.Review{ID: primitive.NewObjectID(), Rating: 5, Comment: "Loved it here", Author: author.ID}
	listing := &models.Listing{
		ID:       primitive.NewObjectID(),
		Title:    "Ocean View Villa",
		Location: "Alibaug",
		Country:  "India",
		Category: "Beaches",
		Owner:    owner.ID,
		Reviews:  []primitive.ObjectID{review.ID},
	}

	f.listings.On("FindByID", mock.Anything, listing.ID).Return(listing, nil)
	f.reviews.On("FindByIDs", mock.Anything, listing.Reviews).Return([]models.Review{review}, nil)
	f.users.On("FindByIDs", mock.Anything, []primitive.ObjectID{author.ID}).
		Return(map[primitive.ObjectID]models.User{author.ID: author}, nil)
	f.users.On("FindByID", mock.Anything, owner.ID).Return(&owner, nil)

	r := httptest.NewRequest(http.MethodGet, "/listings/"+listing.ID.Hex(), nil)
	r = mux.SetURLVars(r, map[string]string{"id": listing.ID.Hex()})
	r = withSession(r, &session.Session{ID: "anon"})
	w := httptest.NewRecorder()

	require.NoError(t, f.controller.Show(w, r))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ocean View Villa")
	assert.Contains(t, w.Body.String(), "Loved it here")
	assert.Contains(t, w.Body.String(), "host")
}

func TestIndexPassesFilterAndRendersEmptyPage(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)

	f.listings.On("Find", mock.Anything, storage.ListingFilter{Category: "Beaches", Query: "ocean", Page: 4, Limit: 9}).
		Return([]models.Listing{}, storage.Paginate(25, 4, 9), nil)

	r := httptest.NewRequest(http.MethodGet, "/listings?category=Beaches&q=ocean&page=4", nil)
	r = withSession(r, &session.Session{ID: "anon"})
	w := httptest.NewRecorder()

	require.NoError(t, f.controller.Index(w, r))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No listings found")
	f.listings.AssertExpectations(t)
}

func TestDeleteCascadesReviews(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)
	sess := authedSession(primitive.NewObjectID())

	reviewIDs := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
	listing := &models.Listing{ID: primitive.NewObjectID(), Reviews: reviewIDs}

	f.listings.On("Delete", mock.Anything, listing.ID).Return(listing, nil)
	f.reviews.On("DeleteMany", mock.Anything, reviewIDs).Return(int64(2), nil)

	r := httptest.NewRequest(http.MethodDelete, "/listings/"+listing.ID.Hex(), nil)
	r = mux.SetURLVars(r, map[string]string{"id": listing.ID.Hex()})
	r = withSession(r, sess)
	w := httptest.NewRecorder()

	require.NoError(t, f.controller.Delete(w, r))

	f.reviews.AssertExpectations(t)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/listings", w.Header().Get("Location"))
	assert.Equal(t, []string{"Listing deleted"}, sess.Success)
}

func TestUpdateValidatesMergedPayload(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)
	owner := primitive.NewObjectID()
	sess := authedSession(owner)

	current := &models.Listing{
		ID:          primitive.NewObjectID(),
		Title:       "Ocean View Villa",
		Description: "A lovely villa with a view of the sea",
		Price:       4500,
		Location:    "Alibaug",
		Country:     "India",
		Category:    "Beaches",
		Owner:       owner,
		Image:       &models.Image{URL: "/uploads/old.jpg", Filename: "old.jpg"},
	}
	f.listings.On("FindByID", mock.Anything, current.ID).Return(current, nil)

	body, contentType := listingForm(t, map[string]string{"listing[title]": "A"}, 0)
	r := httptest.NewRequest(http.MethodPut, "/listings/"+current.ID.Hex(), body)
	r.Header.Set("Content-Type", contentType)
	r = mux.SetURLVars(r, map[string]string{"id": current.ID.Hex()})
	r = withSession(r, sess)

	err := f.controller.Update(httptest.NewRecorder(), r)
	require.Error(t, err)
	he, _ := httperr.From(err)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	f.listings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateAppliesOnlySubmittedFields(t *testing.T) {
	f := newListingFixture(t, nil, 1<<20)
	owner := primitive.NewObjectID()
	sess := authedSession(owner)

	current := &models.Listing{
		ID:          primitive.NewObjectID(),
		Title:       "Ocean View Villa",
		Description: "A lovely villa with a view of the sea",
		Price:       4500,
		Location:    "Alibaug",
		Country:     "India",
		Category:    "Beaches",
		Owner:       owner,
		Image:       &models.Image{URL: "/uploads/old.jpg", Filename: "old.jpg"},
	}
	f.listings.On("FindByID", mock.Anything, current.ID).Return(current, nil)

	var set bson.M
	f.listings.On("Update", mock.Anything, current.ID, mock.AnythingOfType("primitive.M")).
		Run(func(args mock.Arguments) { set = args.Get(2).(bson.M) }).
		Return(nil)

	body, contentType := listingForm(t, map[string]string{
		"listing[title]": "Renovated Ocean View Villa",
		"listing[price]": "5200",
	}, 0)
	r := httptest.NewRequest(http.MethodPut, "/listings/"+current.ID.Hex(), body)
	r.Header.Set("Content-Type", contentType)
	r = mux.SetURLVars(r, map[string]string{"id": current.ID.Hex()})
	r = withSession(r, sess)
	w := httptest.NewRecorder()

	require.NoError(t, f.controller.Update(w, r))

	require.NotNil(t, set)
	assert.Equal(t, "Renovated Ocean View Villa", set["title"])
	assert.Equal(t, 5200.0, set["price"])
	assert.NotContains(t, set, "description")
	assert.NotContains(t, set, "owner")
	assert.NotContains(t, set, "image")
	assert.Equal(t, "/listings/"+current.ID.Hex(), w.Header().Get("Location"))
}
