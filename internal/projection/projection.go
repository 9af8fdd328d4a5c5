// Package projection maps selenographic coordinates to screen space.
package projection

import "math"

// Default map canvas size in pixels.
const (
	DefaultWidth  = 960
	DefaultHeight = 480
)

// Equirectangular is a plate carrée projection scaled so the full
// 360° longitude range spans Width, centred on the canvas.
type Equirectangular struct {
	Width  float64
	Height float64
}

// Default returns the projection for the default canvas.
func Default() Equirectangular {
	return Equirectangular{Width: DefaultWidth, Height: DefaultHeight}
}

// Scale returns pixels per radian.
func (p Equirectangular) Scale() float64 {
	return p.Width / (2 * math.Pi)
}

// Project returns screen coordinates for (lon, lat) in degrees. Y grows
// downwards, so northern latitudes have smaller y.
func (p Equirectangular) Project(lon, lat float64) (x, y float64) {
	s := p.Scale()
	x = p.Width/2 + s*lon*math.Pi/180
	y = p.Height/2 - s*lat*math.Pi/180
	return x, y
}

// MarkerRadius returns the drawn radius for a crater diameter in meters:
// max(1, 4*log10(size+2)).
func MarkerRadius(size float64) float64 {
	return math.Max(1, math.Log10(size+2)*4)
}
