package graphics

import (
	"image"
	"image/color"
)

// Native video geometry. The monitor is mounted rotated, so the player sees
// a ScreenHeight x ScreenWidth picture.
const (
	ScreenWidth  = 256
	ScreenHeight = 224

	bytesPerRow = ScreenWidth / 8
	// FrameBytes is the size of the 1bpp video window
	FrameBytes = bytesPerRow * ScreenHeight
)

// Cellophane overlay colours in rotated screen coordinates
var (
	overlayRed   = color.RGBA{R: 0xFF, G: 0x20, B: 0x20, A: 0xFF}
	overlayGreen = color.RGBA{R: 0x20, G: 0xFF, B: 0x20, A: 0xFF}
)

// VideoProcessor converts the 1bpp video window to RGBA pixels
type VideoProcessor struct {
	rotate     bool
	overlay    bool
	brightness float32

	frame *image.RGBA
}

// NewVideoProcessor creates a new video processor
func NewVideoProcessor(rotate, overlay bool, brightness float32) *VideoProcessor {
	vp := &VideoProcessor{
		rotate:  rotate,
		overlay: overlay,
	}
	vp.SetBrightness(brightness)
	return vp
}

// Bounds returns the size of converted frames
func (vp *VideoProcessor) Bounds() image.Rectangle {
	if vp.rotate {
		return image.Rect(0, 0, ScreenHeight, ScreenWidth)
	}
	return image.Rect(0, 0, ScreenWidth, ScreenHeight)
}

// Convert expands the video window into the processor's frame buffer. Bit 0
// of each byte is the leftmost pixel. Lit pixels are white (or the overlay
// colour), unlit pixels transparent. The returned image is reused by the
// next call. Short input leaves the remaining pixels unlit.
func (vp *VideoProcessor) Convert(vram []byte) *image.RGBA {
	if vp.frame == nil || vp.frame.Rect != vp.Bounds() {
		vp.frame = image.NewRGBA(vp.Bounds())
	}
	pix := vp.frame.Pix
	clear(pix)

	white := vp.scale(color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	red := vp.scale(overlayRed)
	green := vp.scale(overlayGreen)

	n := min(len(vram), FrameBytes)
	for i := 0; i < n; i++ {
		b := vram[i]
		if b == 0 {
			continue
		}
		y := i / bytesPerRow
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) == 0 {
				continue
			}
			x := (i%bytesPerRow)*8 + bit

			// Rotated 90 degrees counter-clockwise
			rx, ry := y, ScreenWidth-1-x

			c := white
			if vp.overlay {
				c = overlayColor(rx, ry, white, red, green)
			}

			px, py := x, y
			if vp.rotate {
				px, py = rx, ry
			}
			off := vp.frame.PixOffset(px, py)
			pix[off+0] = c.R
			pix[off+1] = c.G
			pix[off+2] = c.B
			pix[off+3] = c.A
		}
	}
	return vp.frame
}

// overlayColor picks the cellophane strip colour for a rotated coordinate
func overlayColor(x, y int, white, red, green color.RGBA) color.RGBA {
	switch {
	case y >= 32 && y < 64:
		return red
	case y >= 184 && y < 240:
		return green
	case y >= 240 && x >= 16 && x < 134:
		return green
	}
	return white
}

func (vp *VideoProcessor) scale(c color.RGBA) color.RGBA {
	if vp.brightness == 1.0 {
		return c
	}
	return color.RGBA{
		R: uint8(clamp(float32(c.R)*vp.brightness, 0, 255)),
		G: uint8(clamp(float32(c.G)*vp.brightness, 0, 255)),
		B: uint8(clamp(float32(c.B)*vp.brightness, 0, 255)),
		A: c.A,
	}
}

// clamp limits a value to a range
func clamp(value, lo, hi float32) float32 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// SetBrightness updates the brightness value
func (vp *VideoProcessor) SetBrightness(brightness float32) {
	if brightness <= 0 {
		brightness = 1.0
	}
	vp.brightness = brightness
}

// SetRotate selects the rotated cabinet orientation
func (vp *VideoProcessor) SetRotate(rotate bool) {
	vp.rotate = rotate
}

// SetOverlay enables the coloured cellophane strips
func (vp *VideoProcessor) SetOverlay(overlay bool) {
	vp.overlay = overlay
}
