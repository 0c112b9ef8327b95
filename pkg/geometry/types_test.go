package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotationInverse(t *testing.T) {
	theta := 30 * math.Pi / 180
	toFrame := Rotation(-theta)
	back := Rotation(theta)

	p := Point2D{X: 12.5, Y: -3}
	q := toFrame.Apply(p)
	assert.InDelta(t, p.X*math.Cos(theta)+p.Y*math.Sin(theta), q.X, 1e-12)
	assert.InDelta(t, -p.X*math.Sin(theta)+p.Y*math.Cos(theta), q.Y, 1e-12)

	r := back.Apply(q)
	assert.InDelta(t, p.X, r.X, 1e-12)
	assert.InDelta(t, p.Y, r.Y, 1e-12)
}

func TestRect(t *testing.T) {
	r := NewRect(0, 0, 10, 5)
	assert.True(t, r.Contains(Point2D{X: 10, Y: 5}))
	assert.False(t, r.Contains(Point2D{X: 10.001, Y: 5}))
	assert.True(t, r.ContainsTol(Point2D{X: 10.001, Y: 5}, 0.01))
	assert.Equal(t, Point2D{X: 10, Y: 0}, r.Clamp(Point2D{X: 11, Y: -2}))
	assert.Equal(t, Point2D{X: 10, Y: 5}, r.Corners()[3])
}

func TestBoundingBoxAndLength(t *testing.T) {
	pts := []Point2D{{X: 1, Y: 1}, {X: 4, Y: 5}, {X: 4, Y: 9}}
	assert.Equal(t, Rect{X: 1, Y: 1, Width: 3, Height: 8}, BoundingBox(pts))
	assert.Equal(t, Rect{}, BoundingBox(nil))
	assert.InDelta(t, 9.0, PathLength(pts), 1e-12)
	assert.Zero(t, PathLength(pts[:1]))
}
