package main

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestPNG builds an in-memory PNG of the given dimensions.
func makeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestNormalizeCover ensures uploaded covers come out as JPEG capped at
// the configured width with their aspect ratio preserved.
func TestNormalizeCover(t *testing.T) {
	t.Run("wide image is downscaled", func(t *testing.T) {
		src := makeTestPNG(t, 1600, 400)
		out, err := NormalizeCover(bytes.NewReader(src), 800)
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 800, img.Bounds().Dx())
		assert.Equal(t, 200, img.Bounds().Dy())
	})

	t.Run("small image is not upscaled", func(t *testing.T) {
		src := makeTestPNG(t, 300, 500)
		out, err := NormalizeCover(bytes.NewReader(src), 800)
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 300, img.Bounds().Dx())
		assert.Equal(t, 500, img.Bounds().Dy())
	})

	t.Run("garbage input fails", func(t *testing.T) {
		_, err := NormalizeCover(strings.NewReader("definitely not an image"), 800)
		assert.Error(t, err)
	})
}

func TestCoverFilenameFromURL(t *testing.T) {
	assert.Equal(t, "abc.jpg", CoverFilenameFromURL("http://localhost:8080/images/abc.jpg"))
	assert.Equal(t, "abc.jpg", CoverFilenameFromURL("abc.jpg"))
	assert.Equal(t, "", CoverFilenameFromURL(""))
}
