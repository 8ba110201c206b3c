package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/pressline/pressline/internal/models"
)

// Post canvas dimensions, Instagram portrait format.
const (
	canvasWidth  = 1080
	canvasHeight = 1350

	marginLeft   = 110
	marginRight  = 110
	bottomPad    = 50
	textStartY   = canvasHeight * 6 / 10
	categorySize = 32
	categoryGap  = 25

	titleSizeMax  = 52
	titleSizeMin  = 36
	titleSizeStep = 2

	defaultOverlayOpacity = 0.45
)

// Renderer produces the final post image for a queue item.
type Renderer interface {
	Render(ctx context.Context, item models.QueueItem, overlayOpacity float64) ([]byte, error)
}

// Composer renders post images: the article photo scaled to the canvas, a
// dark overlay for text contrast, an optional brand overlay, then category
// tag and wrapped headline in the lower text block.
type Composer struct {
	typeface *opentype.Font
	overlay  image.Image
	client   *http.Client
	logger   *slog.Logger
}

var _ Renderer = (*Composer)(nil)

// NewComposer loads the headline typeface and, if present, the brand
// overlay image. A missing overlay file is fine; a missing font is not.
func NewComposer(fontPath, overlayPath string, logger *slog.Logger) (*Composer, error) {
	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", fontPath, err)
	}
	typeface, err := opentype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", fontPath, err)
	}

	composer := &Composer{
		typeface: typeface,
		client:   &http.Client{Timeout: imageFetchTimeout},
		logger:   logger,
	}

	if overlayPath != "" {
		if overlay, err := loadImageFile(overlayPath); err == nil {
			composer.overlay = overlay
		} else if !os.IsNotExist(err) {
			logger.Warn("brand overlay unusable, continuing without it", "path", overlayPath, "error", err)
		}
	}
	return composer, nil
}

// Render composes the post image for the item and returns it PNG-encoded.
func (c *Composer) Render(ctx context.Context, item models.QueueItem, overlayOpacity float64) ([]byte, error) {
	background, err := c.fetchBackground(ctx, item.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("load background image: %w", err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), background, background.Bounds(), xdraw.Src, nil)

	if overlayOpacity <= 0 || overlayOpacity > 1 {
		overlayOpacity = defaultOverlayOpacity
	}
	shade := image.NewUniform(color.RGBA{A: uint8(255 * overlayOpacity)})
	draw.Draw(canvas, canvas.Bounds(), shade, image.Point{}, draw.Over)

	if c.overlay != nil {
		scaled := image.NewRGBA(canvas.Bounds())
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), c.overlay, c.overlay.Bounds(), xdraw.Src, nil)
		draw.Draw(canvas, canvas.Bounds(), scaled, image.Point{}, draw.Over)
	}

	if err := c.drawText(canvas, item.TitleRefined, item.Category); err != nil {
		return nil, fmt.Errorf("draw text: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode post image: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Composer) fetchBackground(ctx context.Context, imageURL string) (image.Image, error) {
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

// drawText lays out the category tag above the wrapped headline in the
// lower text block, shrinking the headline font until the block fits.
func (c *Composer) drawText(canvas *image.RGBA, title, category string) error {
	boxWidth := canvasWidth - marginLeft - marginRight
	boxHeight := canvasHeight - textStartY - bottomPad

	categoryFace, err := c.face(categorySize)
	if err != nil {
		return err
	}
	defer categoryFace.Close()

	categoryText := "#" + strings.ToUpper(category)
	categoryHeight := categoryFace.Metrics().Height.Ceil()

	titleBoxHeight := boxHeight - categoryHeight - categoryGap

	var (
		titleFace   font.Face
		lines       []string
		titleHeight int
	)
	for size := titleSizeMax; size >= titleSizeMin; size -= titleSizeStep {
		face, err := c.face(float64(size))
		if err != nil {
			return err
		}

		lines = wrapTitle(title, face, boxWidth)
		lineHeight := face.Metrics().Height.Ceil()
		titleHeight = lineHeight * len(lines)

		if (titleHeight <= titleBoxHeight && fitsWidth(lines, face, boxWidth)) || size == titleSizeMin {
			titleFace = face
			break
		}
		face.Close()
	}
	defer titleFace.Close()

	blockHeight := categoryHeight + categoryGap + titleHeight
	startY := textStartY + (boxHeight-blockHeight)/2
	if startY < textStartY {
		startY = textStartY
	}

	white := image.NewUniform(color.White)

	drawer := &font.Drawer{Dst: canvas, Src: white, Face: categoryFace}
	drawer.Dot = fixed.P(marginLeft, startY+categoryFace.Metrics().Ascent.Ceil())
	drawer.DrawString(categoryText)

	lineHeight := titleFace.Metrics().Height.Ceil()
	y := startY + categoryHeight + categoryGap + titleFace.Metrics().Ascent.Ceil()
	drawer = &font.Drawer{Dst: canvas, Src: white, Face: titleFace}
	for _, line := range lines {
		drawer.Dot = fixed.P(marginLeft, y)
		drawer.DrawString(line)
		y += lineHeight
	}
	return nil
}

func (c *Composer) face(size float64) (font.Face, error) {
	return opentype.NewFace(c.typeface, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// wrapTitle breaks the headline into lines that fit the box width. The line
// budget is estimated from the advance of a reference glyph, with display
// cell widths accounting for wide runes.
func wrapTitle(title string, face font.Face, boxWidth int) []string {
	advance, ok := face.GlyphAdvance('a')
	if !ok || advance <= 0 {
		return []string{title}
	}

	charsPerLine := boxWidth / advance.Ceil()
	if charsPerLine < 1 {
		charsPerLine = 1
	}

	wrapped := runewidth.Wrap(title, charsPerLine)
	return strings.Split(strings.TrimSpace(wrapped), "\n")
}

func fitsWidth(lines []string, face font.Face, boxWidth int) bool {
	for _, line := range lines {
		if font.MeasureString(face, line).Ceil() > boxWidth {
			return false
		}
	}
	return true
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
