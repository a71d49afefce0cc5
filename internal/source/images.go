package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
)

// ImageSet treats a directory of pictures (or a single picture) as a paged
// document, one page per file in name order.
type ImageSet struct {
	paths []string
}

func OpenImages(path string) (*ImageSet, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open images %s: %w", path, err)
	}
	if !fi.IsDir() {
		return &ImageSet{paths: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("open images %s: %w", path, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".png", ".jpg", ".jpeg", ".gif":
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(paths)
	return &ImageSet{paths: paths}, nil
}

func (s *ImageSet) Pages() int {
	return len(s.paths)
}

// Paths returns the files backing the set, in page order.
func (s *ImageSet) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Render decodes one file. Raster input has no native resolution, so dpi is
// ignored.
func (s *ImageSet) Render(index, dpi int) (image.Image, error) {
	if index < 0 || index >= len(s.paths) {
		return nil, fmt.Errorf("render image: page %d out of range", index)
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("render image %s: %w", s.paths[index], err)
	}
	return img, nil
}

func (s *ImageSet) Close() error {
	return nil
}
