package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the static path local uploads are served back under.
const URLPrefix = "/uploads/"

// DiskStore writes uploads to a local directory with collision-resistant
// names. It is the fallback when object storage is not configured.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) Store(_ context.Context, originalName string, data []byte) (*StoredFile, error) {
	name := fmt.Sprintf("%d-%s-%s",
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		SanitizeFilename(originalName),
	)
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload %s: %w", name, err)
	}
	return &StoredFile{URL: URLPrefix + name, Filename: name}, nil
}

// Dir exposes the storage directory so the server can mount a static file
// handler over it.
func (d *DiskStore) Dir() string {
	return d.dir
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] so a
// client-supplied name can never escape the upload directory or smuggle
// shell metacharacters.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "file"
	}
	return sb.String()
}
