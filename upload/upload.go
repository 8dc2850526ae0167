// Package upload stores the single image file a listing form may carry and
// hands back a servable URL plus the storage identifier. Object storage is
// used when configured; otherwise files land on local disk under a
// dedicated directory.
package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// StoredFile identifies a stored upload: the URL a view can render and the
// provider-side identifier (object key or generated filename).
type StoredFile struct {
	URL      string
	Filename string
}

type Store interface {
	Store(ctx context.Context, originalName string, data []byte) (*StoredFile, error)
}

// FormFile reads the one file field a request may carry. ok is false when
// the field is absent, which is not an error.
func FormFile(r *http.Request, field string) (name string, data []byte, ok bool, err error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return "", nil, false, err
	}
	return header.Filename, data, true, nil
}

// IsTooLarge reports whether err came from the request-body size cap, so
// callers can render the friendly payload-too-large path instead of a
// generic validation failure.
func IsTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
