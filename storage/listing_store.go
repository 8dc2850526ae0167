package storage

import (
	"context"
	"errors"
	"math"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/asehgal-dev/wanderlust/models"
)

// ErrNotFound is returned by all stores when a document is absent.
var ErrNotFound = errors.New("document not found")

// ListingFilter narrows and pages the listing index.
type ListingFilter struct {
	Category string
	Query    string
	Page     int
	Limit    int
}

const DefaultPageSize = 9

// Normalize clamps page and limit to their minimums and applies the
// default page size.
func (f ListingFilter) Normalize() ListingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	return f
}

// Pagination is the metadata the index view renders alongside the page
// slice.
type Pagination struct {
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// Paginate computes page metadata. TotalPages is never below 1 so an empty
// result set still renders as one (empty) page.
func Paginate(total int64, page, limit int) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

type ListingStore interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	Find(ctx context.Context, filter ListingFilter) ([]models.Listing, Pagination, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	// Delete removes the listing and returns the deleted document so the
	// caller can run the review cascade as an explicit second step.
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	AttachReview(ctx context.Context, listingID, reviewID primitive.ObjectID) error
	DetachReview(ctx context.Context, listingID, reviewID primitive.ObjectID) error
}

type MongoListingStore struct {
	collection *mongo.Collection
}

func NewListingStore(db *mongo.Database) *MongoListingStore {
	return &MongoListingStore{collection: db.Collection("listings")}
}

func (s *MongoListingStore) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID.IsZero() {
		listing.ID = primitive.NewObjectID()
	}
	if listing.Reviews == nil {
		listing.Reviews = []primitive.ObjectID{}
	}
	_, err := s.collection.InsertOne(ctx, listing)
	return err
}

func (s *MongoListingStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// listingQuery translates a filter into the Mongo match document. The
// search term is quoted so user input never acts as a regex, then matched
// case-insensitively against title and location.
func listingQuery(filter ListingFilter) bson.M {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Query != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": re}},
			bson.M{"location": bson.M{"$regex": re}},
		}
	}
	return query
}

func (s *MongoListingStore) Find(ctx context.Context, filter ListingFilter) ([]models.Listing, Pagination, error) {
	filter = filter.Normalize()
	query := listingQuery(filter)

	total, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, Pagination{}, err
	}

	skip := int64(filter.Page-1) * int64(filter.Limit)
	findOptions := options.Find().SetSkip(skip).SetLimit(int64(filter.Limit))

	cursor, err := s.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, Pagination{}, err
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, Pagination{}, err
	}
	return listings, Paginate(total, filter.Page, filter.Limit), nil
}

func (s *MongoListingStore) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	// Owner is set once at creation and never rewritten.
	delete(set, "owner")
	delete(set, "_id")
	delete(set, "reviews")

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoListingStore) Delete(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&listing)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *MongoListingStore) AttachReview(ctx context.Context, listingID, reviewID primitive.ObjectID) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{"$push": bson.M{"reviews": reviewID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoListingStore) DetachReview(ctx context.Context, listingID, reviewID primitive.ObjectID) error {
	// $pull is idempotent so a retried detach converges.
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": listingID},
		bson.M{"$pull": bson.M{"reviews": reviewID}})
	return err
}
