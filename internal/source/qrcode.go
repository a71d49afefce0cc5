package source

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCode writes a QR code PNG for content, sized to an edge of size pixels.
// Outro overlays point viewers at a project link this way.
func QRCode(content string, size int, path string) error {
	if content == "" {
		return fmt.Errorf("qr code: empty content")
	}
	if size <= 0 {
		size = 256
	}
	if err := qrcode.WriteFile(content, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	return nil
}
