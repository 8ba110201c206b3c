package media

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const (
	imageFetchTimeout = 10 * time.Second

	// A pixel at or below this 8-bit luminance counts as black.
	blackLuminanceMax = 15
	// Reject images where black pixels exceed this share.
	blackShareLimit = 0.95
)

// Checker validates candidate images before any enrichment money is spent
// on the article. Broken URLs, undecodable payloads and mostly-black frames
// (dead thumbnails, letterboxed video stills) are all rejected.
type Checker struct {
	client *http.Client
	logger *slog.Logger
}

// NewChecker creates an image validator.
func NewChecker(logger *slog.Logger) *Checker {
	return &Checker{
		client: &http.Client{Timeout: imageFetchTimeout},
		logger: logger,
	}
}

// Validate reports whether the image at the URL is usable for a post.
func (c *Checker) Validate(ctx context.Context, imageURL string) bool {
	if imageURL == "" {
		return false
	}

	img, err := c.fetch(ctx, imageURL)
	if err != nil {
		c.logger.Warn("image validation failed", "url", imageURL, "error", err)
		return false
	}

	if mostlyBlack(img) {
		c.logger.Warn("image rejected, predominantly black", "url", imageURL)
		return false
	}
	return true
}

func (c *Checker) fetch(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	img, _, err := image.Decode(resp.Body)
	return img, err
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}

// mostlyBlack reports whether more than blackShareLimit of the pixels fall
// at or below the black luminance threshold.
func mostlyBlack(img image.Image) bool {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return true
	}

	black := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, scaled back to 8 bits.
			luma := (299*r + 587*g + 114*b) / 1000 >> 8
			if luma <= blackLuminanceMax {
				black++
			}
		}
	}
	return float64(black)/float64(total) > blackShareLimit
}
