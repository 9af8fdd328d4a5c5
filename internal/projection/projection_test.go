package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	p := Default()

	x, y := p.Project(0, 0)
	assert.InDelta(t, 480.0, x, 1e-9)
	assert.InDelta(t, 240.0, y, 1e-9)

	x, _ = p.Project(180, 0)
	assert.InDelta(t, 960.0, x, 1e-9)
	x, _ = p.Project(-180, 0)
	assert.InDelta(t, 0.0, x, 1e-9)

	_, y = p.Project(0, 90)
	assert.InDelta(t, 0.0, y, 1e-9, "north pole at the top edge")
	_, y = p.Project(0, -90)
	assert.InDelta(t, 480.0, y, 1e-9)
}

func TestMarkerRadius(t *testing.T) {
	assert.InDelta(t, 4*math.Log10(2), MarkerRadius(0), 1e-12)
	assert.InDelta(t, 4.0, MarkerRadius(8), 1e-12)
	assert.Equal(t, 1.0, MarkerRadius(-1.5), "floored at one pixel")
	assert.Greater(t, MarkerRadius(100), MarkerRadius(10))
}
