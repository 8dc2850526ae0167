// Package validation normalizes submitted form payloads and schema-checks
// them before anything reaches the database.
//
// Input contract: a payload field named F for container C may arrive either
// bracketed as "C[F]" or flat as "F". NormalizeForm folds both shapes into
// one flat map; when a field appears in both shapes the bracketed value
// wins. Checks run in a fixed order and the first violated rule's message
// is returned as a 400.
package validation

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/asehgal-dev/wanderlust/httperr"
	"github.com/asehgal-dev/wanderlust/models"
)

// NormalizeForm extracts the container's fields from raw form values.
func NormalizeForm(values url.Values, container string) map[string]string {
	fields := make(map[string]string)
	prefix := container + "["

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if strings.HasPrefix(key, prefix) && strings.HasSuffix(key, "]") {
			name := key[len(prefix) : len(key)-1]
			if name != "" {
				fields[name] = vals[0]
			}
		}
	}
	for key, vals := range values {
		if len(vals) == 0 || strings.Contains(key, "[") {
			continue
		}
		if _, taken := fields[key]; !taken {
			fields[key] = vals[0]
		}
	}
	return fields
}

type ListingPayload struct {
	Title       string
	Description string
	Location    string
	Country     string
	Price       float64
	Image       string
	Category    string
}

// ValidateListing schema-checks a normalized listing payload. The image
// field is expected to already hold the stored upload URL; the upload
// adapter runs before validation.
func ValidateListing(fields map[string]string) (*ListingPayload, error) {
	title := strings.TrimSpace(fields["title"])
	if len(title) < 2 || len(title) > 100 {
		return nil, httperr.BadRequest("title must be between 2 and 100 characters")
	}

	description := strings.TrimSpace(fields["description"])
	if len(description) < 10 {
		return nil, httperr.BadRequest("description must be at least 10 characters")
	}

	location := strings.TrimSpace(fields["location"])
	if location == "" {
		return nil, httperr.BadRequest("location is required")
	}

	country := strings.TrimSpace(fields["country"])
	if country == "" {
		return nil, httperr.BadRequest("country is required")
	}

	priceRaw := strings.TrimSpace(fields["price"])
	if priceRaw == "" {
		return nil, httperr.BadRequest("price is required")
	}
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return nil, httperr.BadRequest("price must be a number")
	}
	if price < 0 {
		return nil, httperr.BadRequest("price must be greater than or equal to 0")
	}

	image := strings.TrimSpace(fields["image"])
	if image == "" {
		return nil, httperr.BadRequest("image is required")
	}

	category := strings.TrimSpace(fields["category"])
	if category == "" {
		category = models.CategoryDefault
	}
	if !models.ValidCategory(category) {
		return nil, httperr.BadRequest("category must be one of " + strings.Join(models.Categories, ", "))
	}

	return &ListingPayload{
		Title:       title,
		Description: description,
		Location:    location,
		Country:     country,
		Price:       price,
		Image:       image,
		Category:    category,
	}, nil
}

type ReviewPayload struct {
	Rating  int
	Comment string
}

func ValidateReview(fields map[string]string) (*ReviewPayload, error) {
	ratingRaw := strings.TrimSpace(fields["rating"])
	rating, err := strconv.Atoi(ratingRaw)
	if err != nil {
		return nil, httperr.BadRequest("rating must be an integer")
	}
	if rating < 1 || rating > 5 {
		return nil, httperr.BadRequest("rating must be between 1 and 5")
	}

	comment := strings.TrimSpace(fields["comment"])
	if len(comment) < 5 {
		return nil, httperr.BadRequest("comment must be at least 5 characters")
	}

	return &ReviewPayload{Rating: rating, Comment: comment}, nil
}
