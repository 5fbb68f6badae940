// Package storage keeps uploaded images either on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
)

// Store persists images under flat names such as "food-1700000000000-ab12.jpg".
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	// Delete succeeds when the object is already gone.
	Delete(ctx context.Context, name string) error
	// Serve writes the image (or a redirect to it) for GET /uploads/{name}.
	Serve(w http.ResponseWriter, r *http.Request, name string)
	Name() string
}

// ValidName rejects anything that is not a plain file name.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: bad image name %q", common.ErrValidation, name)
	}
	return nil
}

// NameFromPath turns "/uploads/<name>" into "<name>".
func NameFromPath(path string) (string, error) {
	name, ok := strings.CutPrefix(path, common.UploadsURLPrefix)
	if !ok {
		return "", fmt.Errorf("%w: image path %q outside %s", common.ErrValidation, path, common.UploadsURLPrefix)
	}
	if err := ValidName(name); err != nil {
		return "", err
	}
	return name, nil
}

// PathFor is the public path recorded on a prediction.
func PathFor(name string) string {
	return common.UploadsURLPrefix + name
}
