// Package qrcode renders QR codes for short links.
package qrcode

import (
	"encoding/base64"
	"fmt"

	skipqr "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of rendered images
const DefaultSize = 256

const dataURLPrefix = "data:image/png;base64,"

// PNG encodes content as a PNG image with medium error recovery
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	qr, err := skipqr.New(content, skipqr.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code image: %w", err)
	}
	return png, nil
}

// DataURL renders content and returns it as a data:image/png;base64 URL
func DataURL(content string) (string, error) {
	png, err := PNG(content, DefaultSize)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
