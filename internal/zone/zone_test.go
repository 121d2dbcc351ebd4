package zone

import (
	"math/rand"
	"testing"

	"dropzone/internal/env"
)

func TestMembershipFiresOnEntryOncePerVisit(t *testing.T) {
	m := NewMembership([]Rect{{ID: "A", MinX: 0, MaxX: 100, MinY: 0, MaxY: 100}})

	_, entered := m.Check("p1", 50, 50, 0)
	if !entered {
		t.Fatal("expected onEntry on first arrival")
	}

	_, entered = m.Check("p1", 60, 60, 0.5)
	if entered {
		t.Error("should not re-fire onEntry while remaining in the same zone")
	}
}

func TestMembershipReentryCooldown(t *testing.T) {
	m := NewMembership([]Rect{{ID: "A", MinX: 0, MaxX: 100, MinY: 0, MaxY: 100}})

	m.Check("p1", 50, 50, 0)
	m.Check("p1", 500, 500, 1) // exit
	_, entered := m.Check("p1", 50, 50, 2) // re-enter within 8s cooldown

	if entered {
		t.Error("re-entry within cooldown window should not fire onEntry")
	}

	_, entered = m.Check("p1", 500, 500, 3)
	_, entered = m.Check("p1", 50, 50, 10) // past the 8s cooldown
	if !entered {
		t.Error("re-entry after cooldown should fire onEntry")
	}
}

func TestDefaultPresetsHigherTiersAddLickersAndBigboys(t *testing.T) {
	presets := DefaultPresets()
	if len(presets) != 7 {
		t.Fatalf("expected 7 presets, got %d", len(presets))
	}
	if _, ok := presets[0].TypeRatios[0]; !ok { // EnemyBasic present at tier 1
		t.Error("expected basic enemies present in tier 1")
	}
	found := false
	for t := 4; t < 7; t++ {
		if _, ok := presets[t].TypeRatios[2]; ok { // EnemyLicker
			found = true
		}
	}
	if !found {
		t.Error("expected lickers introduced by tier 5+")
	}
}

func TestDueRespectsReturnInterval(t *testing.T) {
	d := NewDirector(env.New(1000, 1000, 64), rand.New(rand.NewSource(1)))
	d.SetZoneConfig("z1", HordeConfig{ForwardIntervalMin: 10, ForwardIntervalMax: 10, ReturnIntervalMin: 1, ReturnIntervalMax: 1})

	if !d.Due("z1", 0, true) {
		t.Fatal("expected first check to be due")
	}
	if d.Due("z1", 0.5, true) {
		t.Error("should not be due again before return interval elapses")
	}
	if !d.Due("z1", 1.5, true) {
		t.Error("expected due again after return interval elapses")
	}
}

func TestSpawnHordeRejectsPositionsNearPlayers(t *testing.T) {
	e := env.New(20000, 20000, 64)
	d := NewDirector(e, rand.New(rand.NewSource(1)))

	plan := d.SpawnHorde(1, 0, 0, false, [][2]float64{{1200, 0}})

	for _, s := range plan {
		dist := (s.X-1200)*(s.X-1200) + s.Y*s.Y
		if dist < 700*700 {
			t.Errorf("spawned position %v,%v too close to player", s.X, s.Y)
		}
	}
}

func TestWaveDue(t *testing.T) {
	if !WaveDue(10, 5, 2, 5) {
		t.Error("expected wave due when live count below target and timer elapsed")
	}
	if WaveDue(10, 5, 6, 5) {
		t.Error("expected wave not due when live count already meets target")
	}
}
