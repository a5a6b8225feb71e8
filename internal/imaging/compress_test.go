package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

func pngBytes(t *testing.T, w, h int, noisy bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255}
			if noisy {
				c = color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompress_BoundsDimensions(t *testing.T) {
	c := NewCompressor(Config{MaxDimension: 100}, nil)
	res, err := c.Compress(context.Background(), entity.Image{Filename: "page.png", Data: pngBytes(t, 400, 200, false)})
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", res.ContentType)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
	assert.True(t, strings.HasPrefix(res.DataURL, "data:image/jpeg;base64,"))

	decoded, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), decoded.Bounds())

	img := res.Image("page.png")
	assert.Equal(t, "page.png", img.Filename)
	assert.Equal(t, res.Data, img.Data)
}

func TestCompress_SmallImagesKeepTheirSize(t *testing.T) {
	c := NewCompressor(Config{}, nil)
	res, err := c.Compress(context.Background(), entity.Image{Data: pngBytes(t, 60, 40, false)})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Width)
	assert.Equal(t, 40, res.Height)
	assert.Empty(t, res.Warnings)
}

func TestCompress_StepsDownToFitBytes(t *testing.T) {
	c := NewCompressor(Config{MaxDimension: 400, MaxBytes: 1000}, nil)
	res, err := c.Compress(context.Background(), entity.Image{Data: pngBytes(t, 400, 400, true)})
	require.NoError(t, err)
	assert.Less(t, res.Width, 400, "noise never fits, so the image is downscaled")
	assert.NotEmpty(t, res.Warnings)
}

func TestCompress_Unsupported(t *testing.T) {
	c := NewCompressor(Config{}, nil)
	for name, data := range map[string][]byte{
		"empty": nil,
		"text":  []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Compress(context.Background(), entity.Image{Filename: "x.jpg", Data: data})
			assert.ErrorIs(t, err, ErrUnsupportedImage)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

// fakeRunner pretends to be a HEIC converter by writing a PNG to the output path.
type fakeRunner struct {
	png  []byte
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name, f.args = name, args
	if f.err != nil {
		return nil, []byte("no delegate for this image format"), f.err
	}
	return nil, nil, os.WriteFile(args[len(args)-1], f.png, 0o600)
}

func TestCompress_HEIC(t *testing.T) {
	r := &fakeRunner{png: pngBytes(t, 30, 20, false)}
	c := NewCompressor(Config{HeicConverter: "magick"}, nil).WithRunner(r)
	res, err := c.Compress(context.Background(), entity.Image{Filename: "IMG_0001.HEIC", Data: []byte("heic")})
	require.NoError(t, err)
	assert.Equal(t, "magick", r.name)
	assert.Equal(t, 30, res.Width)

	r = &fakeRunner{err: errors.New("exit status 1")}
	c = NewCompressor(Config{HeicConverter: "sips"}, nil).WithRunner(r)
	_, err = c.Compress(context.Background(), entity.Image{ContentType: "image/heic", Data: []byte("heic")})
	require.Error(t, err)
	assert.Equal(t, "sips", r.name)

	c = NewCompressor(Config{}, nil)
	_, err = c.Compress(context.Background(), entity.Image{Filename: "a.heif", Data: []byte("heic")})
	assert.ErrorContains(t, err, "HEIC not supported")
}
