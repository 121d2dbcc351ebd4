// Package env implements the Environment component (C2): static world
// geometry (arena boundary, axis-aligned and oriented obstacle boxes) and
// the circle-vs-geometry resolvers every mover (player, enemy, troop) runs
// through each tick.
package env

import (
	"math"
)

// AABB is an axis-aligned obstacle box.
type AABB struct {
	MinX, MinY, MaxX, MaxY float64
}

// OrientedBox is a rotated obstacle box (sandbag walls). Hazard entities
// reference one of these by index so breaking a sandbag can remove its
// geometry without disturbing other indices' identity until a Compact.
type OrientedBox struct {
	X, Y, W, H, Angle float64
	Removed           bool
}

// corners returns the box's four world-space corners.
func (o OrientedBox) corners() [4][2]float64 {
	hw, hh := o.W/2, o.H/2
	cos, sin := math.Cos(o.Angle), math.Sin(o.Angle)
	local := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	var out [4][2]float64
	for i, p := range local {
		out[i][0] = o.X + p[0]*cos - p[1]*sin
		out[i][1] = o.Y + p[0]*sin + p[1]*cos
	}
	return out
}

// Environment holds the arena's static geometry.
type Environment struct {
	Width, Height float64

	Boundaries []AABB // outer ring walls, world-edge obstacles
	Obstacles  []AABB
	Boxes      []OrientedBox // sandbag walls, index-addressed by hazard.BoxIndex
}

// New creates an Environment for a world of the given size. maxEntities is
// kept for call-site compatibility with the room's other per-room capacity
// constructors even though Environment itself no longer sizes anything by
// it.
func New(width, height float64, maxEntities int) *Environment {
	return &Environment{
		Width:  width,
		Height: height,
	}
}

// IsInsideBounds reports whether a circle at (x,y) with the given radius
// fits entirely within the world rectangle.
func (e *Environment) IsInsideBounds(x, y, radius float64) bool {
	return x-radius >= 0 && x+radius <= e.Width && y-radius >= 0 && y+radius <= e.Height
}

// ClampToBounds pushes a circle back inside the world rectangle, matching
// the margin-clamp idiom the original player movement used.
func (e *Environment) ClampToBounds(x, y, radius float64) (float64, float64) {
	return math.Max(radius, math.Min(e.Width-radius, x)), math.Max(radius, math.Min(e.Height-radius, y))
}

// circleHitsAABB reports overlap and returns the minimum-translation push
// vector to separate the circle from the box.
func circleHitsAABB(cx, cy, radius float64, b AABB) (hit bool, pushX, pushY float64) {
	closestX := math.Max(b.MinX, math.Min(cx, b.MaxX))
	closestY := math.Max(b.MinY, math.Min(cy, b.MaxY))
	dx, dy := cx-closestX, cy-closestY
	distSq := dx*dx + dy*dy
	if distSq >= radius*radius {
		return false, 0, 0
	}
	dist := math.Sqrt(distSq)
	if dist < 1e-6 {
		// Center is inside the box; push out along the shallowest axis.
		left, right := cx-b.MinX, b.MaxX-cx
		top, bottom := cy-b.MinY, b.MaxY-cy
		min := math.Min(math.Min(left, right), math.Min(top, bottom))
		switch min {
		case left:
			return true, -(left + radius), 0
		case right:
			return true, right + radius, 0
		case top:
			return true, 0, -(top + radius)
		default:
			return true, 0, bottom + radius
		}
	}
	overlap := radius - dist
	return true, (dx / dist) * overlap, (dy / dist) * overlap
}

// CircleHitsAny reports whether a circle overlaps any registered obstacle,
// oriented box, or boundary, testing AABBs directly (cheap enough for
// single-point queries without going through the broad-phase).
func (e *Environment) CircleHitsAny(x, y, radius float64) bool {
	for _, b := range e.Boundaries {
		if hit, _, _ := circleHitsAABB(x, y, radius, b); hit {
			return true
		}
	}
	for _, b := range e.Obstacles {
		if hit, _, _ := circleHitsAABB(x, y, radius, b); hit {
			return true
		}
	}
	for _, box := range e.Boxes {
		if box.Removed {
			continue
		}
		if e.circleHitsOriented(x, y, radius, box) {
			return true
		}
	}
	return false
}

func (e *Environment) circleHitsOriented(x, y, radius float64, box OrientedBox) bool {
	cos, sin := math.Cos(-box.Angle), math.Sin(-box.Angle)
	dx, dy := x-box.X, y-box.Y
	lx := dx*cos - dy*sin
	ly := dx*sin + dy*cos
	hit, _, _ := circleHitsAABB(lx, ly, radius, AABB{-box.W / 2, -box.H / 2, box.W / 2, box.H / 2})
	return hit
}

// ResolveCircleMove moves a circle from (x,y) toward (nx,ny), stopping or
// sliding along any obstacle it would otherwise penetrate. It iterates a
// small fixed number of passes so a corner between two boxes resolves
// without tunneling, mirroring the original's sub-stepped collision pass.
func (e *Environment) ResolveCircleMove(x, y, nx, ny, radius float64) (float64, float64) {
	const maxPasses = 4
	cx, cy := nx, ny
	for pass := 0; pass < maxPasses; pass++ {
		moved := false
		for _, b := range e.Boundaries {
			if hit, px, py := circleHitsAABB(cx, cy, radius, b); hit {
				cx += px
				cy += py
				moved = true
			}
		}
		for _, b := range e.Obstacles {
			if hit, px, py := circleHitsAABB(cx, cy, radius, b); hit {
				cx += px
				cy += py
				moved = true
			}
		}
		for i := range e.Boxes {
			box := e.Boxes[i]
			if box.Removed {
				continue
			}
			if e.circleHitsOriented(cx, cy, radius, box) {
				// Resolve in the box's local frame, then rotate the push back.
				cos, sin := math.Cos(-box.Angle), math.Sin(-box.Angle)
				dx, dy := cx-box.X, cy-box.Y
				lx := dx*cos - dy*sin
				ly := dx*sin + dy*cos
				_, px, py := circleHitsAABB(lx, ly, radius, AABB{-box.W / 2, -box.H / 2, box.W / 2, box.H / 2})
				wcos, wsin := math.Cos(box.Angle), math.Sin(box.Angle)
				cx += px*wcos - py*wsin
				cy += px*wsin + py*wcos
				moved = true
			}
		}
		cx, cy = e.ClampToBounds(cx, cy, radius)
		if !moved {
			break
		}
	}
	return cx, cy
}

// LineHitsAny casts a segment from (x1,y1) to (x2,y2) and reports whether
// it intersects any obstacle or oriented box. ignoreSandbags lets troop
// line-of-sight queries see through breakable cover the way spec.md's LOS
// rule requires (sandbags don't block troop target acquisition).
func (e *Environment) LineHitsAny(x1, y1, x2, y2 float64, ignoreSandbags bool) bool {
	for _, b := range e.Obstacles {
		if segmentHitsAABB(x1, y1, x2, y2, b) {
			return true
		}
	}
	if ignoreSandbags {
		return false
	}
	for _, box := range e.Boxes {
		if box.Removed {
			continue
		}
		corners := box.corners()
		for i := 0; i < 4; i++ {
			j := (i + 1) % 4
			if segmentsIntersect(x1, y1, x2, y2, corners[i][0], corners[i][1], corners[j][0], corners[j][1]) {
				return true
			}
		}
	}
	return false
}

func segmentHitsAABB(x1, y1, x2, y2 float64, b AABB) bool {
	corners := [4][2]float64{{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MaxX, b.MaxY}, {b.MinX, b.MaxY}}
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		if segmentsIntersect(x1, y1, x2, y2, corners[i][0], corners[i][1], corners[j][0], corners[j][1]) {
			return true
		}
	}
	return false
}

func segmentsIntersect(x1, y1, x2, y2, x3, y3, x4, y4 float64) bool {
	d1 := cross(x4-x3, y4-y3, x1-x3, y1-y3)
	d2 := cross(x4-x3, y4-y3, x2-x3, y2-y3)
	d3 := cross(x2-x1, y2-y1, x3-x1, y3-y1)
	d4 := cross(x2-x1, y2-y1, x4-x1, y4-y1)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(ax, ay, bx, by float64) float64 { return ax*by - ay*bx }

// ClearGapAreas reports whether a circular area is free of obstacles and
// oriented boxes, used by the zone spawner to reject spawn points inside
// geometry.
func (e *Environment) ClearGapAreas(x, y, radius float64) bool {
	return !e.CircleHitsAny(x, y, radius)
}

// BreakBox marks an oriented box removed. The index stays valid (callers
// hold BoxIndex references) but the geometry no longer participates in
// collision.
func (e *Environment) BreakBox(index int) {
	if index < 0 || index >= len(e.Boxes) {
		return
	}
	e.Boxes[index].Removed = true
}

// AddBox appends an oriented box and returns its index for a hazard to
// store as BoxIndex.
func (e *Environment) AddBox(x, y, w, h, angle float64) int {
	e.Boxes = append(e.Boxes, OrientedBox{X: x, Y: y, W: w, H: h, Angle: angle})
	return len(e.Boxes) - 1
}
