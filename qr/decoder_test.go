package qr_test

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/png"
	"testing"

	"github.com/danielfrey63/qr-scanner-library/qr"
	"github.com/stretchr/testify/require"
)

// rgbaPixels re-encodes an image as the raw RGBA byte layout the scan
// loop hands to the decoder.
func rgbaPixels(t *testing.T, img image.Image) ([]byte, int, int) {
	t.Helper()

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return rgba.Pix, bounds.Dx(), bounds.Dy()
}

func TestZXingDecoder_Decode(t *testing.T) {
	req := require.New(t)

	payload := "https://example.org/checkout?order=42"
	encoded, err := qr.EncodeQR([]byte(payload))
	req.NoError(err)

	img, _, err := image.Decode(bytes.NewReader(encoded))
	req.NoError(err)

	pixels, width, height := rgbaPixels(t, img)

	decoder := qr.NewZXingDecoder()
	text, err := decoder.Decode(pixels, width, height)
	req.NoError(err)
	req.Equal(payload, text)
}

func TestZXingDecoder_DecodeNoResult(t *testing.T) {
	req := require.New(t)

	// A flat gray frame carries no code; the decoder must report
	// "no result" without failing.
	width, height := 64, 64
	pixels := make([]byte, width*height*4)
	for i := range pixels {
		pixels[i] = 0x7f
	}

	decoder := qr.NewZXingDecoder()
	text, err := decoder.Decode(pixels, width, height)
	req.NoError(err)
	req.Empty(text)
}

func TestZXingDecoder_DecodeRejectsBadInput(t *testing.T) {
	req := require.New(t)

	decoder := qr.NewZXingDecoder()

	_, err := decoder.Decode(nil, 0, 0)
	req.Error(err)

	_, err = decoder.Decode(make([]byte, 16), 100, 100)
	req.Error(err)
}

func TestDecodeImage(t *testing.T) {
	req := require.New(t)

	encoded, err := qr.EncodeQR([]byte("payload"))
	req.NoError(err)

	img, _, err := image.Decode(bytes.NewReader(encoded))
	req.NoError(err)

	text, err := qr.DecodeImage(img)
	req.NoError(err)
	req.Equal("payload", text)
}
