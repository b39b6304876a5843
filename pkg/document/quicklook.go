package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/aretw0/notes/pkg/core"
)

// ThumbnailSize bounds both sides of the QuickLook thumbnail.
const ThumbnailSize = 256

// MaxThumbnailSourcePixels bounds the declared size of an image decoded for
// the thumbnail. Larger images are skipped like undecodable ones.
const MaxThumbnailSourcePixels = 64 << 20

// writeQuickLook regenerates the preview text and thumbnail. Both entries are
// attempted even if one fails.
func writeQuickLook(ctx context.Context, root core.Root, content core.RichText, attachments []core.Attachment) error {
	var errs []error

	if err := root.WriteFile(ctx, core.QuickLookPath(core.QuickLookTextFile), content.Data); err != nil {
		errs = append(errs, fmt.Errorf("failed to write preview: %w", err))
	}

	thumb, err := Thumbnail(attachments)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to render thumbnail: %w", err))
	} else if err := root.WriteFile(ctx, core.QuickLookPath(core.QuickLookThumbnail), thumb); err != nil {
		errs = append(errs, fmt.Errorf("failed to write thumbnail: %w", err))
	}

	return errors.Join(errs...)
}

// Thumbnail renders a PNG from the first decodable image attachment, scaled
// to fit ThumbnailSize. Images declaring more than MaxThumbnailSourcePixels
// are not decoded. Without one, a blank white square is rendered.
func Thumbnail(attachments []core.Attachment) ([]byte, error) {
	var src image.Image
	for _, a := range attachments {
		if a.Kind != core.KindImage {
			continue
		}
		if !decodable(a.Data) {
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(a.Data))
		if err != nil {
			continue
		}
		src = img
		break
	}

	var out image.Image
	if src == nil {
		blank := image.NewRGBA(image.Rect(0, 0, ThumbnailSize, ThumbnailSize))
		draw.Draw(blank, blank.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		out = blank
	} else {
		out = scaleToFit(src, ThumbnailSize)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodable reports whether data has a readable image header whose size is
// within MaxThumbnailSourcePixels.
func decodable(data []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return false
	}
	return int64(cfg.Width)*int64(cfg.Height) <= MaxThumbnailSourcePixels
}

// scaleToFit shrinks src with nearest-neighbour sampling so that neither side
// exceeds limit. Smaller images are returned unchanged.
func scaleToFit(src image.Image, limit int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return src
	}

	nw, nh := limit, limit
	if w > h {
		nh = max(1, h*limit/w)
	} else {
		nw = max(1, w*limit/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := b.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			dst.Set(x, y, src.At(b.Min.X+x*w/nw, sy))
		}
	}
	return dst
}
