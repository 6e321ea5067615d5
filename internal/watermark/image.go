// Package watermark applies the plan-conditional logo overlay to generated
// media. Paid tiers pass through untouched; failures always degrade to the
// original content instead of failing the request.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"nastia-backend/internal/config"
	"nastia-backend/internal/models"
)

const fallbackText = "NastIA Studio"

// Logo sizing relative to the target image/frame.
const (
	imageLogoWidthPct  = 12
	imageMarginPct     = 3
	videoLogoHeightPct = 15
	videoMarginPx      = 8
)

type Processor struct {
	logo        image.Image // nil when the asset is missing
	logoPath    string
	videoBypass string
}

// NewProcessor loads the logo asset once. A missing or unreadable asset is
// not fatal: image watermarking falls back to text, video watermarking is
// skipped.
func NewProcessor(cfg *config.Config) *Processor {
	p := &Processor{
		logoPath:    cfg.LogoPath,
		videoBypass: cfg.VideoWatermarkBypass,
	}

	logo, err := imaging.Open(cfg.LogoPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.LogoPath).Msg("logo asset not available, using text fallback")
		p.logoPath = ""
		return p
	}
	p.logo = logo
	return p
}

// Image overlays the logo at 12% of image width, bottom-right, with a
// 3%-of-width margin. Paid tiers are returned unchanged; flattening to an
// opaque format happens when the caller encodes to JPEG.
func (p *Processor) Image(img image.Image, plan string) image.Image {
	if models.PaidPlan(plan) {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	margin := w * imageMarginPct / 100

	if p.logo == nil {
		return p.drawFallbackText(img, w, h, margin)
	}

	logoW := w * imageLogoWidthPct / 100
	logo := imaging.Resize(p.logo, logoW, 0, imaging.Lanczos)
	pos := image.Pt(w-logo.Bounds().Dx()-margin, h-logo.Bounds().Dy()-margin)

	return imaging.Overlay(img, logo, pos, 1.0)
}

func (p *Processor) drawFallbackText(img image.Image, w, h, margin int) image.Image {
	out := imaging.Clone(img)
	drawer := font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 230}),
		Face: basicfont.Face7x13,
	}
	textW := drawer.MeasureString(fallbackText).Ceil()
	drawer.Dot = fixed.P(w-textW-margin, h-margin)
	drawer.DrawString(fallbackText)
	return out
}

// EncodeJPEG flattens the image to an opaque JPEG at quality 95.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
