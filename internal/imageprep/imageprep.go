package imageprep

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultSize is the square input resolution the model was trained on.
	DefaultSize = 224
	Channels    = 3

	// DefaultMaxPixels bounds the decoded canvas. A few hundred KB of
	// compressed PNG can declare billions of pixels.
	DefaultMaxPixels = 40_000_000
)

// ErrDecode is returned when the uploaded bytes are not a readable image.
var ErrDecode = errors.New("invalid image")

type Upload struct {
	Filename string
	Data     []byte
}

func (u Upload) Digest() string {
	sum := sha256.Sum256(u.Data)
	return hex.EncodeToString(sum[:])
}

// Tensor is a batch of one NHWC image with values in [0,1].
type Tensor struct {
	Shape []int64
	Data  []float32
}

type Preprocessor struct {
	Width     int
	Height    int
	MaxPixels int
}

// New returns a Preprocessor producing width x height tensors. Non-positive
// dimensions fall back to DefaultSize.
func New(width, height int) *Preprocessor {
	if width <= 0 {
		width = DefaultSize
	}
	if height <= 0 {
		height = DefaultSize
	}
	return &Preprocessor{Width: width, Height: height, MaxPixels: DefaultMaxPixels}
}

// Decode reads any registered format (JPEG, PNG, GIF, BMP, TIFF, WEBP). The
// header is checked first so images larger than maxPixels are rejected before
// any pixel buffer is allocated. maxPixels <= 0 uses DefaultMaxPixels.
func Decode(r io.Reader, maxPixels int) (img image.Image, format string, err error) {
	defer func() {
		// Some decoders panic on truncated input instead of returning an error.
		if rec := recover(); rec != nil {
			img, format, err = nil, "", fmt.Errorf("%w: %v", ErrDecode, rec)
		}
	}()

	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: image too large (%dx%d)", ErrDecode, cfg.Width, cfg.Height)
	}

	img, format, err = image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return img, format, nil
}

// ToRGB drops the alpha channel without compositing and expands grayscale or
// paletted images to three channels.
func ToRGB(img image.Image) *image.RGBA {
	src := imaging.Clone(img)
	dst := image.NewRGBA(src.Bounds())
	for i := 0; i+3 < len(src.Pix); i += 4 {
		dst.Pix[i] = src.Pix[i]
		dst.Pix[i+1] = src.Pix[i+1]
		dst.Pix[i+2] = src.Pix[i+2]
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// Tensor decodes r and runs the full preprocessing pipeline.
func (p *Preprocessor) Tensor(r io.Reader) (*Tensor, error) {
	img, _, err := Decode(r, p.MaxPixels)
	if err != nil {
		return nil, err
	}
	return p.FromImage(img), nil
}

// FromImage stretches img to the target size (aspect ratio is not kept),
// scales every channel to [0,1] and adds the batch dimension.
func (p *Preprocessor) FromImage(img image.Image) *Tensor {
	rgb := ToRGB(img)
	resized := resize.Resize(uint(p.Width), uint(p.Height), rgb, resize.Bicubic)

	px, ok := resized.(*image.RGBA)
	if !ok {
		px = image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
		draw.Draw(px, px.Bounds(), resized, resized.Bounds().Min, draw.Src)
	}
	origin := px.Bounds().Min

	data := make([]float32, p.Width*p.Height*Channels)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			off := px.PixOffset(origin.X+x, origin.Y+y)
			idx := (y*p.Width + x) * Channels
			data[idx] = float32(px.Pix[off]) / 255.0
			data[idx+1] = float32(px.Pix[off+1]) / 255.0
			data[idx+2] = float32(px.Pix[off+2]) / 255.0
		}
	}

	return &Tensor{
		Shape: []int64{1, int64(p.Height), int64(p.Width), Channels},
		Data:  data,
	}
}
