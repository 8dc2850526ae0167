package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Categories a listing can be filed under. The zero-value form field maps
// to CategoryDefault.
var Categories = []string{"Trending", "Rooms", "Penthouse", "Beaches", "Cabins"}

const CategoryDefault = "Trending"

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Image is the stored upload reference: a servable URL plus the storage
// identifier (object key or local filename).
type Image struct {
	URL      string `bson:"url" json:"url"`
	Filename string `bson:"filename" json:"filename"`
}

// Geometry is a GeoJSON point. Coordinates are [longitude, latitude].
type Geometry struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

type Listing struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Price       float64              `bson:"price" json:"price"`
	Location    string               `bson:"location" json:"location"`
	Country     string               `bson:"country" json:"country"`
	Category    string               `bson:"category" json:"category"`
	Image       *Image               `bson:"image,omitempty" json:"image,omitempty"`
	Geometry    *Geometry            `bson:"geometry,omitempty" json:"geometry,omitempty"`
	Owner       primitive.ObjectID   `bson:"owner" json:"owner"`
	Reviews     []primitive.ObjectID `bson:"reviews" json:"reviews"`
}

// ImageURL resolves the address a view should use for the listing's image,
// or "" when none was uploaded.
func (l *Listing) ImageURL() string {
	if l.Image == nil {
		return ""
	}
	if l.Image.URL != "" {
		return l.Image.URL
	}
	if l.Image.Filename != "" {
		return "/uploads/" + l.Image.Filename
	}
	return ""
}
