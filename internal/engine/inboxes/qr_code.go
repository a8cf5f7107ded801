package inboxes

import (
	"filedrop/internal/pkg/errors"

	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 512
	minQRSize     = 128
	maxQRSize     = 2048
)

// GenerateQRCode renders url as a PNG of size x size pixels.
func GenerateQRCode(url string, size int) ([]byte, error) {
	if size == 0 {
		size = defaultQRSize
	}
	if size < minQRSize || size > maxQRSize {
		return nil, errors.NewValidation("size", "invalid size: must be between 128 and 2048")
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	qr.DisableBorder = false

	return qr.PNG(size)
}
