package hazard

import (
	"testing"

	"dropzone/internal/env"
	"dropzone/internal/sim"
)

func TestExplosionDamageAt(t *testing.T) {
	cases := []struct {
		name   string
		d      float64
		radius float64
		damage int
		want   int
	}{
		{"at center", 0, 100, 100, 100},
		{"at inner radius", ExplosionInner, 100, 100, 100},
		{"at outer edge", 100, 100, 100, 40},
		{"beyond radius", 150, 100, 100, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExplosionDamageAt(c.d, c.radius, c.damage); got != c.want {
				t.Errorf("ExplosionDamageAt(%v,%v,%v) = %d, want %d", c.d, c.radius, c.damage, got, c.want)
			}
		})
	}
}

type fakePositioned struct{ x, y float64 }

func (f fakePositioned) Pos() (float64, float64) { return f.x, f.y }

func TestExplodeAt(t *testing.T) {
	f := New(env.New(1000, 1000, 64), nil, "room1")

	candidates := map[string]Positioned{
		"near": fakePositioned{x: 10, y: 0},
		"far":  fakePositioned{x: 500, y: 0},
	}

	hits := f.ExplodeAt(0, 0, 100, 100, candidates, 20)

	if _, ok := hits["near"]; !ok {
		t.Error("expected near target to be hit")
	}
	if _, ok := hits["far"]; ok {
		t.Error("expected far target to be out of range")
	}
}

func TestDamageHazardSandbagBreaksBox(t *testing.T) {
	e := env.New(1000, 1000, 64)
	idx := e.AddBox(100, 100, 40, 10, 0)
	f := New(e, nil, "room1")
	f.Add(&sim.Hazard{ID: "sb1", Kind: sim.HazardSandbag, Health: 50, BoxIndex: idx})

	if dead := f.DamageHazard("sb1", 20, 1); dead != nil {
		t.Fatal("hazard should survive a partial hit")
	}
	if !e.CircleHitsAny(100, 100, 5) {
		t.Error("sandbag box should still collide before it dies")
	}

	dead := f.DamageHazard("sb1", 40, 2)
	if dead == nil {
		t.Fatal("expected sandbag to die")
	}
	if e.CircleHitsAny(100, 100, 5) {
		t.Error("sandbag box should stop colliding once broken")
	}
	if f.Get("sb1") != nil {
		t.Error("dead hazard should be removed from the field")
	}
}

func TestFieldTickMoversFireAppliesDOT(t *testing.T) {
	f := New(env.New(1000, 1000, 64), nil, "room1")
	f.Add(&sim.Hazard{ID: "fire1", Kind: sim.HazardFirePool, X: 0, Y: 0, Radius: 50})

	p := sim.NewPlayer("p1", "Alice", 10, 10, 100, 100)
	movers := map[string]Mover{"p1": p}

	f.TickMovers(movers, 0.1, 1)

	if len(p.DOTStacks) != 1 {
		t.Fatalf("expected player to acquire a fire DOT stack, got %d", len(p.DOTStacks))
	}
}

func TestFieldTickMoversMudLinger(t *testing.T) {
	f := New(env.New(1000, 1000, 64), nil, "room1")
	f.Add(&sim.Hazard{ID: "mud1", Kind: sim.HazardMudPool, X: 0, Y: 0, Radius: 50})

	p := sim.NewPlayer("p1", "Alice", 10, 10, 100, 100)
	movers := map[string]Mover{"p1": p}

	f.TickMovers(movers, 0.1, 1)
	if !f.InMud("p1") {
		t.Fatal("expected player standing in mud to be marked")
	}

	p.X, p.Y = 900, 900 // walk out of range
	f.TickMovers(movers, 0.1, 2)
	if !f.InMud("p1") {
		t.Error("expected mud linger to persist briefly after leaving")
	}
}
