package qr

import (
	"fmt"

	encoder "github.com/skip2/go-qrcode"
)

const defaultImageSize = 512

// WriteQR encodes data into a QR code image and writes it to path as PNG.
func WriteQR(path string, data []byte) error {
	err := encoder.WriteFile(string(data), encoder.Medium, defaultImageSize, path)
	if err != nil {
		return fmt.Errorf("failed to encode the data: %w", err)
	}

	return nil
}

// EncodeQR encodes data into PNG-encoded QR code bytes.
func EncodeQR(data []byte) ([]byte, error) {
	return encoder.Encode(string(data), encoder.Medium, defaultImageSize)
}
