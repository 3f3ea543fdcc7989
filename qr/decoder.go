package qr

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder turns one captured frame into a decoded payload. An empty
// string means "no QR code in this frame" and is not an error; errors
// are reserved for malformed input or a broken decode.
//
// Implementations are called sequentially from the scan loop and do
// not need to be safe for concurrent use.
type Decoder interface {
	Decode(pixels []byte, width, height int) (string, error)
}

// ZXingDecoder decodes frames with the gozxing QR reader. Pixels are
// expected in RGBA order, 4 bytes per pixel, row-major.
type ZXingDecoder struct {
	reader gozxing.Reader
}

func NewZXingDecoder() *ZXingDecoder {
	return &ZXingDecoder{
		reader: qrcode.NewQRCodeReader(),
	}
}

func (d *ZXingDecoder) Decode(pixels []byte, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if len(pixels) < width*height*4 {
		return "", fmt.Errorf("pixel buffer too short: got %d bytes for %dx%d", len(pixels), width, height)
	}

	img := &image.RGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to get NewBinaryBitmapFromImage: %w", err)
	}

	result, err := d.reader.Decode(bmp, nil)
	if err != nil {
		// A frame without a recognizable code is the normal case for
		// a live feed, not a decode failure.
		if _, ok := err.(gozxing.NotFoundException); ok {
			return "", nil
		}
		return "", fmt.Errorf("failed to decode the QR-code contents: %w", err)
	}

	return result.String(), nil
}

// DecodeImage runs the QR reader over an already-assembled image.
func DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to get NewBinaryBitmapFromImage: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decode the QR-code contents: %w", err)
	}

	return result.String(), nil
}
