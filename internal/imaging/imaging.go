package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"path"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// Conversion failure sentinels.
var (
	// ErrUnsupportedFormat marks image formats that cannot be
	// converted, notably SVG and other vector formats.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDecode marks images whose data could not be decoded.
	ErrDecode = errors.New("image decode failed")
)

// DefaultQuality is the JPEG encoding quality used by NewConverter.
const DefaultQuality = 85

// Converter converts raster images to JPEG. It is stateless and safe
// for concurrent use.
type Converter struct {
	quality int
}

// Option configures a Converter.
type Option func(*Converter)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(c *Converter) {
		if q >= 1 && q <= 100 {
			c.quality = q
		}
	}
}

// NewConverter creates a Converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{quality: DefaultQuality}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert decodes data as PNG, GIF, or JPEG and re-encodes it as JPEG,
// applying any EXIF orientation first. srcURL and contentType are used
// only to reject unconvertible formats early with a clear error.
func (c *Converter) Convert(data []byte, contentType, srcURL string) ([]byte, error) {
	if f := sniffUnsupported(contentType, srcURL); f != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch format {
	case "png", "gif", "jpeg":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	// Orientation only ever appears in JPEG metadata here; PNG and
	// GIF carry no EXIF segment the decoders expose.
	if format == "jpeg" {
		img = applyOrientation(img, readOrientation(data))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	return buf.Bytes(), nil
}

// sniffUnsupported returns a format name when contentType or the URL
// extension identifies a format Convert cannot handle, or "" otherwise.
func sniffUnsupported(contentType, srcURL string) string {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "svg") {
		return "svg"
	}
	if strings.Contains(ct, "image/webp") {
		return "webp"
	}

	u, err := url.Parse(srcURL)
	if err != nil {
		return ""
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".svg":
		return "svg"
	case ".webp":
		return "webp"
	case ".ico":
		return "ico"
	}
	return ""
}

// readOrientation extracts the EXIF orientation value (1-8) from raw
// JPEG data. Missing or malformed EXIF yields 1, the identity.
func readOrientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 1
	}

	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1
	}

	for _, tag := range tags {
		if tag.TagName != "Orientation" {
			continue
		}
		values, ok := tag.Value.([]uint16)
		if !ok || len(values) == 0 {
			return 1
		}
		o := int(values[0])
		if o < 1 || o > 8 {
			return 1
		}
		return o
	}

	return 1
}

// applyOrientation transforms img according to the EXIF orientation
// value so the encoded JPEG displays upright without metadata.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return flipHorizontal(img)
	case 3:
		return rotate180(img)
	case 4:
		return flipHorizontal(rotate180(img))
	case 5:
		return flipHorizontal(rotate90(img))
	case 6:
		return rotate90(img)
	case 7:
		return flipHorizontal(rotate270(img))
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

func flipHorizontal(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(b.Dx()-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(b.Dy()-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(b.Dx()-1-x, b.Dy()-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate270(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(y, b.Dx()-1-x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// Accepted reports whether a normalized image type name (e.g. "png")
// is one Convert supports as input.
func Accepted(imageType string) bool {
	switch strings.ToLower(strings.TrimPrefix(imageType, ".")) {
	case "png", "gif", "jpeg", "jpg":
		return true
	}
	return false
}
