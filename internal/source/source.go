// Package source ingests external media as project image resources. A
// Document is anything that yields a sequence of page images; importing
// renders every page to PNG so the editor can treat pages as plain image
// resources.
package source

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Document is a paged image source, such as a PDF or a directory of
// pictures.
type Document interface {
	Pages() int
	Render(index, dpi int) (image.Image, error)
	Close() error
}

// Import renders every page of doc into dir as <prefix>-NNN.png and returns
// the written paths in page order. Pages are numbered from 1.
func Import(doc Document, dir, prefix string, dpi int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	paths := make([]string, 0, doc.Pages())
	for i := 0; i < doc.Pages(); i++ {
		img, err := doc.Render(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("import page %d: %w", i+1, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%03d.png", prefix, i+1))
		if err := writePNG(img, path); err != nil {
			return nil, fmt.Errorf("import page %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
