package avatar

import (
	"context"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// TintOpacity is the opacity of the flat color drawn over maskable layers.
const TintOpacity = 0.5

// Render composites layers into a size x size image. Missing images are
// skipped and never affect the layers above them.
func Render(layers []Layer, images map[string]image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	for _, l := range layers {
		switch v := l.(type) {
		case SimpleLayer:
			drawScaled(dst, images[v.Asset])
		case MaskableLayer:
			drawTinted(dst, images[v.Fill], v.Tint)
			if v.Outline != "" {
				drawScaled(dst, images[v.Outline])
			}
		case OmittedLayer:
		}
	}
	return dst
}

// RenderConfig resolves, loads and renders cfg in one call.
func RenderConfig(ctx context.Context, loader *Loader, layers []Layer, size int) *image.RGBA {
	return Render(layers, loader.LoadAll(ctx, AssetsOf(layers)), size)
}

// fitRect returns the centered, aspect-preserving target rectangle.
func fitRect(src image.Rectangle, bounds image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	bw, bh := bounds.Dx(), bounds.Dy()
	if sw == 0 || sh == 0 {
		return image.Rectangle{}
	}
	w, h := bw, sh*bw/sw
	if h > bh {
		w, h = sw*bh/sh, bh
	}
	x := bounds.Min.X + (bw-w)/2
	y := bounds.Min.Y + (bh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func drawScaled(dst *image.RGBA, src image.Image) {
	if src == nil {
		return
	}
	r := fitRect(src.Bounds(), dst.Bounds())
	if r.Empty() {
		return
	}
	draw.ApproxBiLinear.Scale(dst, r, src, src.Bounds(), draw.Over, nil)
}

func drawTinted(dst *image.RGBA, src image.Image, tint string) {
	if src == nil {
		return
	}
	layer := image.NewRGBA(dst.Bounds())
	drawScaled(layer, src)

	if c, ok := ParseHexColor(tint); ok {
		mask := image.NewAlpha(layer.Bounds())
		for i := 0; i < len(mask.Pix); i++ {
			mask.Pix[i] = uint8(float64(layer.Pix[i*4+3]) * TintOpacity)
		}
		draw.DrawMask(layer, layer.Bounds(), image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
	}

	draw.Draw(dst, dst.Bounds(), layer, image.Point{}, draw.Over)
}

// Blend draws to over from with opacity t in [0,1].
func Blend(from, to *image.RGBA, t float64) *image.RGBA {
	if t <= 0 && from != nil {
		return cloneRGBA(from)
	}
	if t >= 1 || from == nil {
		return cloneRGBA(to)
	}
	out := cloneRGBA(from)
	alpha := image.NewUniform(color.Alpha{A: uint8(t * 255)})
	draw.DrawMask(out, out.Bounds(), to, image.Point{}, alpha, image.Point{}, draw.Over)
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// ParseHexColor accepts #rgb and #rrggbb.
func ParseHexColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
