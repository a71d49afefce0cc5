package source

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// PDF renders the pages of a PDF file.
type PDF struct {
	doc  *fitz.Document
	path string
}

func OpenPDF(path string) (*PDF, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &PDF{doc: doc, path: path}, nil
}

func (p *PDF) Pages() int {
	return p.doc.NumPage()
}

// Render rasterizes one page. Each call opens its own document handle;
// fitz handles are not safe for concurrent renders.
func (p *PDF) Render(index, dpi int) (image.Image, error) {
	doc, err := fitz.New(p.path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.ImageDPI(index, float64(dpi))
}

func (p *PDF) Close() error {
	return p.doc.Close()
}
