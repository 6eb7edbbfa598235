package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent             = errors.New("content cannot be empty")
	ErrorFailedToGenerateQRCode = errors.New("failed to generate QR code")
)

// DefaultSize is the image edge in pixels used when no size is given.
const DefaultSize = 256

const dataURIPrefix = "data:image/png;base64,"

// Generate renders content as a PNG QR code with medium error correction.
func Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrorFailedToGenerateQRCode, err)
	}
	return png, nil
}

// DataURI renders content as a PNG QR code embedded in a data: URI,
// ready for an <img src> attribute on the client.
func DataURI(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}
