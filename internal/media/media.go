// Package media prepares images for provider consumption: resizing, color
// conversion, base64/data-URI encoding and upload validation.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/rpriscu/ai-image-generator/internal/domain"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// DefaultMaxDimension caps the longest side of an uploaded image before it is
// embedded in a request payload.
const DefaultMaxDimension = 1024

// DefaultConstraints matches the upload limits enforced by the web form.
var DefaultConstraints = Constraints{
	MaxSizeBytes:   10 << 20,
	AllowedFormats: []string{"jpg", "jpeg", "png", "webp"},
}

// Constraints bound an upload before it is accepted for encoding.
type Constraints struct {
	MaxSizeBytes   int64
	AllowedFormats []string
}

// ValidateFile checks an upload against the constraints. Failures are
// *domain.ValidationError with a field-specific reason.
func ValidateFile(file *domain.Upload, field string, c Constraints) error {
	if file == nil || len(file.Data) == 0 {
		return &domain.ValidationError{Field: field, Reason: "No file provided"}
	}
	if len(c.AllowedFormats) > 0 {
		ext := extensionOf(file.Filename)
		allowed := false
		for _, f := range c.AllowedFormats {
			if ext == strings.ToLower(f) {
				allowed = true
				break
			}
		}
		if !allowed {
			return &domain.ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("Unsupported format. Allowed: %s", strings.Join(c.AllowedFormats, ", ")),
			}
		}
	}
	if c.MaxSizeBytes > 0 && int64(len(file.Data)) > c.MaxSizeBytes {
		return &domain.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("File too large. Maximum size: %dMB", c.MaxSizeBytes/(1<<20)),
		}
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(file.Data)); err != nil {
		return &domain.ValidationError{Field: field, Reason: "Invalid image file"}
	}
	return nil
}

// EncodeForUpload validates the upload and returns its raw base64 encoding.
func EncodeForUpload(file *domain.Upload, field string, c Constraints) (string, error) {
	if err := ValidateFile(file, field, c); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(file.Data), nil
}

// DataURI wraps a base64 string into an inline data URI.
func DataURI(b64, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, b64)
}

// DecodeDataURI splits a data URI into raw bytes and its MIME type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("media: not a data uri")
	}
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, "", fmt.Errorf("media: malformed data uri")
	}
	mimeType := strings.TrimPrefix(header, "data:")
	mimeType = strings.TrimSuffix(mimeType, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("media: decode data uri: %w", err)
	}
	return data, mimeType, nil
}

// ProcessImage decodes the upload, caps its longest side at maxDim while
// preserving aspect ratio and re-encodes it as a PNG data URI. The returned
// dimensions describe the encoded image and become the mask target for
// inpainting requests.
func ProcessImage(file *domain.Upload, maxDim int) (string, int, int, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	img, _, err := image.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("media: decode image: %w", err)
	}
	// Thumbnail only ever shrinks, so small images keep their dimensions.
	img = resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
	bounds := img.Bounds()
	uri, err := encodePNGDataURI(img)
	if err != nil {
		return "", 0, 0, err
	}
	return uri, bounds.Dx(), bounds.Dy(), nil
}

// ProcessMask decodes a mask, forces it to exactly the reference image's
// dimensions, converts it to grayscale and encodes it as a PNG data URI.
// A dimension mismatch after resizing is a fatal precondition failure.
func ProcessMask(file *domain.Upload, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("media: mask target dimensions must be positive")
	}
	img, _, err := image.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return "", fmt.Errorf("media: decode mask: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	}
	gray := imaging.Grayscale(img)
	if got := gray.Bounds(); got.Dx() != width || got.Dy() != height {
		return "", fmt.Errorf("media: mask resize produced %dx%d, want %dx%d", got.Dx(), got.Dy(), width, height)
	}
	return encodePNGDataURI(gray)
}

func encodePNGDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("media: encode png: %w", err)
	}
	return DataURI(base64.StdEncoding.EncodeToString(buf.Bytes()), "image/png"), nil
}

func extensionOf(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}
