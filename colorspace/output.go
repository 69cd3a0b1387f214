package colorspace

import "math"

// gammaTable maps linear 8-bit intensities to perceptual LED drive levels
// (gamma 2.8, the curve commonly used for WS2812 strips).
var gammaTable = func() [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = uint8(math.Pow(float64(i)/255, 2.8)*255 + 0.5)
	}
	return t
}()

// Gamma applies gamma correction to each channel.
func Gamma(c RGB) RGB {
	return RGB{gammaTable[c.R], gammaTable[c.G], gammaTable[c.B]}
}

// Brightness scales each channel by level/256. Level 255 is close to full
// output; level 0 turns the pixel off.
func Brightness(c RGB, level uint8) RGB {
	scale := func(v uint8) uint8 {
		return uint8(uint16(v) * (uint16(level) + 1) >> 8)
	}
	return RGB{scale(c.R), scale(c.G), scale(c.B)}
}

// Adjust applies gamma correction (when enabled) followed by brightness
// scaling, in the order LED drivers expect.
func Adjust(c RGB, level uint8, gamma bool) RGB {
	if gamma {
		c = Gamma(c)
	}
	return Brightness(c, level)
}
