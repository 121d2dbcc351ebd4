package director

import (
	"math"
	"math/rand"
	"testing"

	"dropzone/internal/env"
	"dropzone/internal/sim"
)

func TestModeSpeedAndClearance(t *testing.T) {
	cases := []struct {
		mode      Mode
		wantSpeed float64
		wantClear float64
	}{
		{ModeHunt, 1.0, 14},
		{ModeScatter, 0.85, 10},
		{ModePanic, 1.35, 8},
		{ModeAmbush, 1.1, 16},
	}
	for _, c := range cases {
		if got := c.mode.speedMul(); got != c.wantSpeed {
			t.Errorf("mode %d speedMul = %v, want %v", c.mode, got, c.wantSpeed)
		}
		if got := c.mode.clearancePadding(); got != c.wantClear {
			t.Errorf("mode %d clearancePadding = %v, want %v", c.mode, got, c.wantClear)
		}
	}
}

func TestRingReassignClaimsDistinctSlots(t *testing.T) {
	r := NewRing()
	enemies := []*sim.Enemy{
		{ID: "e1", X: 100, Y: 0},
		{ID: "e2", X: -100, Y: 0},
		{ID: "e3", X: 0, Y: 100},
	}

	r.Reassign(0, 0, 0, 0, enemies)

	seen := map[float64]bool{}
	for _, e := range enemies {
		a, ok := r.Assignment(e.ID)
		if !ok {
			t.Fatalf("expected %s to get a slot", e.ID)
		}
		if seen[a.Angle] {
			t.Errorf("slot angle %v reused across enemies", a.Angle)
		}
		seen[a.Angle] = true
	}
}

func TestRingReassignRespectsWindow(t *testing.T) {
	r := NewRing()
	enemies := []*sim.Enemy{{ID: "far", X: 10000, Y: 10000}}

	r.Reassign(0, 0, 0, 0, enemies)

	if _, ok := r.Assignment("far"); ok {
		t.Error("enemy outside ringWindow should not receive a slot")
	}
}

func TestRingReassignThrottled(t *testing.T) {
	r := NewRing()
	enemies := []*sim.Enemy{{ID: "e1", X: 50, Y: 0}}

	r.Reassign(0, 0, 0, 0, enemies)
	r.lastAssign = 0.1 // pretend assignment just happened
	enemies[0].X = 9999

	r.Reassign(0.15, 0, 0, 0, enemies) // within 0.25s window, should not reassign
	if _, ok := r.Assignment("e1"); !ok {
		t.Error("expected stale assignment to persist until the reassign period elapses")
	}
}

func TestSmoothHeadingClampsTurnRate(t *testing.T) {
	got := SmoothHeading(0, math.Pi, 0.1) // 0.1s * 4 rad/s = 0.4 rad max step
	if math.Abs(got-0.4) > 1e-9 {
		t.Errorf("expected clamped heading 0.4, got %v", got)
	}
}

func TestSeparationZeroWhenNoOverlap(t *testing.T) {
	neighbors := []sim.Enemy{{X: 1000, Y: 1000, Radius: 20}}
	dx, dy := Separation(0, 0, 20, neighbors, false)
	if dx != 0 || dy != 0 {
		t.Errorf("expected no separation force for distant neighbor, got (%v,%v)", dx, dy)
	}
}

func TestSeparationPushesApartOverlapping(t *testing.T) {
	neighbors := []sim.Enemy{{X: 10, Y: 0, Radius: 20}}
	dx, _ := Separation(0, 0, 20, neighbors, false)
	if dx >= 0 {
		t.Errorf("expected leftward (negative x) push away from neighbor to the right, got dx=%v", dx)
	}
}

func TestUpdateAvoidStateEntersReverseWhenStuck(t *testing.T) {
	ai := &sim.AIScratch{HeadingAngle: 0}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5; i++ {
		UpdateAvoidState(ai, rng, true, 0.1, func(float64) float64 { return 0 })
	}

	if ai.AvoidState != sim.AvoidReverse {
		t.Errorf("expected avoid state to enter reverse after sustained stuck time, got %v", ai.AvoidState)
	}
}

func TestLeadTimeBounds(t *testing.T) {
	if got := LeadTime(50); got != 0 {
		t.Errorf("expected 0 lead time below leadTimeMin, got %v", got)
	}
	if got := LeadTime(900); got != leadTimeCap {
		t.Errorf("expected capped lead time above leadTimeMax, got %v", got)
	}
}

func TestSteerMovesEnemyTowardTarget(t *testing.T) {
	e := &sim.Enemy{ID: "e1", X: 0, Y: 0, Radius: 20, SpeedMul: 1}
	environment := env.New(2000, 2000, 16)
	ring := NewRing()
	rng := rand.New(rand.NewSource(1))

	Steer(e, ModeHunt, 500, 0, 0, 0, ring, environment, nil, nil, rng, 0.1, 0)

	if e.X == 0 && e.Y == 0 {
		t.Error("expected enemy to move after Steer")
	}
}
