package env

import "testing"

func TestIsInsideBounds(t *testing.T) {
	e := New(1000, 800, 64)

	if !e.IsInsideBounds(500, 400, 20) {
		t.Error("center point should be inside bounds")
	}
	if e.IsInsideBounds(5, 400, 20) {
		t.Error("point near left edge should be outside with radius 20")
	}
}

func TestClampToBounds(t *testing.T) {
	e := New(1000, 800, 64)

	x, y := e.ClampToBounds(-50, 900, 20)
	if x != 20 {
		t.Errorf("expected x clamped to radius 20, got %v", x)
	}
	if y != 780 {
		t.Errorf("expected y clamped to height-radius, got %v", y)
	}
}

func TestCircleHitsAnyAABB(t *testing.T) {
	e := New(1000, 800, 64)
	e.Obstacles = append(e.Obstacles, AABB{MinX: 100, MinY: 100, MaxX: 200, MaxY: 200})

	if !e.CircleHitsAny(210, 150, 20) {
		t.Error("circle overlapping obstacle edge should report hit")
	}
	if e.CircleHitsAny(500, 500, 20) {
		t.Error("circle far from any obstacle should not report hit")
	}
}

func TestResolveCircleMoveStopsAtObstacle(t *testing.T) {
	e := New(1000, 800, 64)
	e.Obstacles = append(e.Obstacles, AABB{MinX: 300, MinY: 0, MaxX: 400, MaxY: 800})

	x, y := e.ResolveCircleMove(250, 400, 380, 400, 20)

	if x >= 280 {
		t.Errorf("expected mover pushed back out of the obstacle, got x=%v", x)
	}
	if e.CircleHitsAny(x, y, 20) {
		t.Error("resolved position should not overlap the obstacle")
	}
}

func TestAddBoxAndBreakBox(t *testing.T) {
	e := New(1000, 800, 64)
	idx := e.AddBox(500, 500, 80, 20, 0)

	if !e.CircleHitsAny(500, 500, 5) {
		t.Error("circle centered on oriented box should hit it")
	}

	e.BreakBox(idx)

	if e.CircleHitsAny(500, 500, 5) {
		t.Error("broken box should no longer collide")
	}
}

func TestLineHitsAnyIgnoresSandbagsWhenRequested(t *testing.T) {
	e := New(1000, 800, 64)
	e.AddBox(500, 500, 80, 20, 0)

	if !e.LineHitsAny(500, 0, 500, 1000, false) {
		t.Error("line through the sandbag should hit when not ignoring sandbags")
	}
	if e.LineHitsAny(500, 0, 500, 1000, true) {
		t.Error("line through the sandbag should pass when ignoring sandbags")
	}
}

func TestClearGapAreas(t *testing.T) {
	e := New(1000, 800, 64)
	e.Obstacles = append(e.Obstacles, AABB{MinX: 100, MinY: 100, MaxX: 200, MaxY: 200})

	if e.ClearGapAreas(150, 150, 10) {
		t.Error("spawn point inside an obstacle should not be clear")
	}
	if !e.ClearGapAreas(700, 700, 10) {
		t.Error("spawn point away from obstacles should be clear")
	}
}
