// Package imageinfo inspects image headers for upload confirmations.
package imageinfo

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// Dimensions decodes only the image header and returns width and height.
func Dimensions(b []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header failed: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ContentType returns declared when set, otherwise the sniffed MIME type.
func ContentType(declared string, b []byte) string {
	if declared != "" {
		return declared
	}
	return mimetype.Detect(b).String()
}
