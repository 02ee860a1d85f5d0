package itemsource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"descriptai/internal/apiclient"
	"descriptai/internal/domain"
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// ImageType returns the content type for a file name, or "" when the
// extension is not an accepted image format.
func ImageType(name string) string {
	return imageTypes[strings.ToLower(filepath.Ext(name))]
}

// LoadImages reads every accepted image in dir, sorted by name. Other files
// are ignored. Files larger than maxBytes are rejected when maxBytes > 0.
func LoadImages(dir string, limit int, maxBytes int64) ([]apiclient.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || ImageType(e.Name()) == "" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrNoItems, dir)
	}
	if limit > 0 && len(names) > limit {
		return nil, fmt.Errorf("%w: maximum %d images per upload, found %d", domain.ErrQuotaExceeded, limit, len(names))
	}

	images := make([]apiclient.Image, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			return nil, fmt.Errorf("%w: %s must be under %dMB", domain.ErrInvalidArgument, name, maxBytes>>20)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		images = append(images, apiclient.Image{Filename: name, MimeType: ImageType(name), Data: data})
	}
	return images, nil
}
