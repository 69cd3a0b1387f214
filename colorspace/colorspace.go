// Package colorspace holds the fixed 8-bit RGB color model shared by guest
// patterns and output sinks.
package colorspace

// RGB is one pixel, channel order R, G, B.
type RGB struct {
	R, G, B uint8
}

// Common colors used by boot diagnostics and fallbacks.
var (
	Black  = RGB{}
	White  = RGB{255, 255, 255}
	Red    = RGB{255, 0, 0}
	Green  = RGB{0, 255, 0}
	Blue   = RGB{0, 0, 255}
	Yellow = RGB{200, 200, 0}
)

// sectorWidth is 256/6 rounded down; the last sector absorbs the remainder.
const sectorWidth = 43

// HueToRGB converts a hue (0-255) at full saturation and value to RGB.
//
// The wheel is split into six 43-unit sectors (Red, Yellow, Green, Cyan,
// Blue, Magenta). Inside a sector one channel ramps by (hue mod 43)*6 while
// the other two are pinned to 0 or 255. Output must stay byte-identical:
// patterns are compared against golden frames.
func HueToRGB(hue uint8) RGB {
	h := uint16(hue)
	offset := uint8((h % sectorWidth) * 6) // at most 42*6 = 252

	switch h / sectorWidth {
	case 0:
		return RGB{255, offset, 0} // Red -> Yellow
	case 1:
		return RGB{255 - offset, 255, 0} // Yellow -> Green
	case 2:
		return RGB{0, 255, offset} // Green -> Cyan
	case 3:
		return RGB{0, 255 - offset, 255} // Cyan -> Blue
	case 4:
		return RGB{offset, 0, 255} // Blue -> Magenta
	default:
		return RGB{255, 0, 255 - offset} // Magenta -> Red
	}
}
