// Package director implements the enemy Director (C5): mode selection,
// ring reservation, approach arcs, flank-target picking, the avoid state
// machine, feeler pre-steering, separation and heading smoothing that
// together drive every alive enemy's desired direction each tick. The
// per-entity Update(allEntities, selfIdx, grid, dt) loop shape and the
// steering-blend idiom are generalized from the teacher's Player AI
// (findTarget/combatBehavior/wander), replacing deathmatch target-seeking
// with the ring/arc/flank composite rule this spec calls for.
package director

import (
	"math"
	"math/rand"

	"dropzone/internal/env"
	"dropzone/internal/sim"
	"dropzone/internal/spatial"
)

// Mode is the room-level enemy behavior mode.
type Mode uint8

const (
	ModeHunt Mode = iota
	ModeScatter
	ModePanic
	ModeAmbush
)

// speedMul and clearancePadding give the mode's effect on steering per
// spec.md §4.5.
func (m Mode) speedMul() float64 {
	switch m {
	case ModeScatter:
		return 0.85
	case ModePanic:
		return 1.35
	case ModeAmbush:
		return 1.1
	default:
		return 1.0
	}
}

func (m Mode) clearancePadding() float64 {
	switch m {
	case ModeScatter:
		return 10
	case ModePanic:
		return 8
	case ModeAmbush:
		return 16
	default:
		return 14
	}
}

const (
	activeRadius       = 1400.0
	ringWindow         = 600.0
	ringReassignPeriod = 0.25
	arcPickPeriod      = 9.0
	arcHalfWidth       = 0.45
	arcBiasStart       = 380.0
	arcBiasFull        = 1200.0
	flankPickMin       = 4.0
	flankPickMax       = 9.0
	separationRadius   = 100.0
	separationPadding  = 10.0
	separationCap      = 1.2
	maxTurnRate        = 4.0 // rad/s
	feelerLen          = 50.0
	feelerAngle        = 25.0 * math.Pi / 180
	feelerLenAggr      = 90.0
	feelerAngleAggr    = 35.0 * math.Pi / 180
	leadTimeMin        = 100.0
	leadTimeMax        = 800.0
	leadTimeCap        = 0.6
	stuckReverseAt     = 0.28
)

// Ring holds the shared ring-reservation state across all enemies tracked
// near a single player. One Ring per (room, player) pair.
type Ring struct {
	lastAssign float64
	slots      map[string]sim.RingAssignment // enemyID -> assignment
}

func NewRing() *Ring { return &Ring{slots: make(map[string]sim.RingAssignment)} }

// Reassign recomputes ring slots for enemies within ringWindow of the
// player, at most once per ringReassignPeriod. playerForward is the
// player's facing angle (radians); slots are anchored opposite it.
func (r *Ring) Reassign(now float64, playerX, playerY, playerForward float64, enemies []*sim.Enemy) {
	if now-r.lastAssign < ringReassignPeriod {
		return
	}
	r.lastAssign = now

	type candidate struct {
		e    *sim.Enemy
		dist float64
	}
	var cands []candidate
	for _, e := range enemies {
		d := sim.DistanceTo(e.X, e.Y, playerX, playerY)
		if d <= ringWindow {
			cands = append(cands, candidate{e, d})
		} else {
			delete(r.slots, e.ID)
		}
	}
	if len(cands) == 0 {
		return
	}

	circumference := 2 * math.Pi * ringWindow
	slotCount := int(circumference / 60)
	if slotCount < 4 {
		slotCount = 4
	}
	if slotCount > 24 {
		slotCount = 24
	}

	anchor := playerForward + math.Pi // opposite forward
	taken := make([]bool, slotCount)

	// Sort candidates by distance, nearest first (simple insertion sort —
	// enemy counts per ring window are small).
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].dist < cands[j-1].dist; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}

	for _, c := range cands {
		angle := math.Atan2(c.e.Y-playerY, c.e.X-playerX)
		rel := normalizeAngle(angle - anchor)
		wantSlot := int(math.Round(rel/(2*math.Pi)*float64(slotCount))) % slotCount
		if wantSlot < 0 {
			wantSlot += slotCount
		}
		slot := nearestFreeSlot(taken, wantSlot)
		if slot < 0 {
			delete(r.slots, c.e.ID)
			continue
		}
		taken[slot] = true
		slotAngle := anchor + (2*math.Pi*float64(slot))/float64(slotCount)
		r.slots[c.e.ID] = sim.RingAssignment{Assigned: true, Angle: slotAngle, Radius: ringWindow * 0.6, Timestamp: now}
	}
}

func nearestFreeSlot(taken []bool, want int) int {
	n := len(taken)
	for radius := 0; radius < n; radius++ {
		for _, cand := range [2]int{want + radius, want - radius} {
			idx := ((cand % n) + n) % n
			if !taken[idx] {
				return idx
			}
		}
	}
	return -1
}

// Assignment returns an enemy's current ring slot, if any.
func (r *Ring) Assignment(enemyID string) (sim.RingAssignment, bool) {
	a, ok := r.slots[enemyID]
	return a, ok
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// FlankStyle enumerates the per-enemy flank-target pick.
type FlankStyle uint8

const (
	FlankDirect FlankStyle = iota
	FlankLeft
	FlankRight
	FlankRear
)

// PickFlankStyle chooses a style weighted by distance: far favors
// side/rear, near forces side/rear to avoid head-on piling.
func PickFlankStyle(rng *rand.Rand, distToPlayer float64) FlankStyle {
	if distToPlayer < 150 {
		if rng.Float64() < 0.5 {
			return FlankLeft
		}
		return FlankRight
	}
	roll := rng.Float64()
	switch {
	case roll < 0.25:
		return FlankDirect
	case roll < 0.55:
		return FlankLeft
	case roll < 0.85:
		return FlankRight
	default:
		return FlankRear
	}
}

// FlankTarget computes a world-space target point for a given style
// relative to the player's position and forward angle.
func FlankTarget(style FlankStyle, playerX, playerY, playerForward, radius float64) (x, y float64) {
	var offset float64
	switch style {
	case FlankLeft:
		offset = -math.Pi / 2
	case FlankRight:
		offset = math.Pi / 2
	case FlankRear:
		offset = math.Pi
	default:
		offset = 0
	}
	angle := playerForward + offset
	return playerX + math.Cos(angle)*radius, playerY + math.Sin(angle)*radius
}

// ArcCenters picks 2-3 approach-arc center angles (relative to player
// forward), preferring laterals and rear per spec.md §4.5.
func ArcCenters(rng *rand.Rand, playerForward float64) []float64 {
	pool := []float64{playerForward + math.Pi/2, playerForward - math.Pi/2, playerForward + math.Pi}
	count := 2 + rng.Intn(2)
	if count > len(pool) {
		count = len(pool)
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:count]
}

// AvoidPhase and the stuck-timer thresholds drive the per-enemy avoid
// state machine.
const (
	reverseMinDur  = 0.15
	reverseMaxDur  = 0.35
	sidestepMinDur = 0.45
	sidestepMaxDur = 1.05
	escapeProbes   = 12
)

// UpdateAvoidState advances the enemy's avoid state machine by dt and
// returns a steering direction override if one is active (ok=false means
// no override; normal composite steering applies).
func UpdateAvoidState(ai *sim.AIScratch, rng *rand.Rand, stuck bool, dt float64, probe func(angle float64) float64) (dir float64, ok bool) {
	if ai.AvoidTimer > 0 {
		ai.AvoidTimer -= dt
	}

	switch ai.AvoidState {
	case sim.AvoidIdle:
		if stuck {
			ai.StuckTimer += dt
		} else {
			ai.StuckTimer = 0
		}
		if ai.StuckTimer > stuckReverseAt {
			ai.AvoidState = sim.AvoidReverse
			ai.Side = sideOf(rng)
			ai.AvoidTimer = reverseMinDur + rng.Float64()*(reverseMaxDur-reverseMinDur)
			ai.StuckTimer = 0
		}
		return 0, false

	case sim.AvoidReverse:
		if ai.AvoidTimer <= 0 {
			ai.AvoidState = sim.AvoidSidestep
			ai.AvoidTimer = sidestepMinDur + rng.Float64()*(sidestepMaxDur-sidestepMinDur)
		}
		return ai.HeadingAngle + math.Pi, true

	case sim.AvoidSidestep:
		if ai.AvoidTimer <= 0 {
			if stuck {
				ai.AvoidState = sim.AvoidEscape
			} else {
				ai.AvoidState = sim.AvoidIdle
			}
		}
		return ai.HeadingAngle + ai.Side*math.Pi/2, true

	case sim.AvoidEscape:
		if !stuck {
			ai.AvoidState = sim.AvoidIdle
			return 0, false
		}
		best, bestScore := 0.0, -math.MaxFloat64
		for i := 0; i < escapeProbes; i++ {
			angle := 2 * math.Pi * float64(i) / escapeProbes
			score := probe(angle)
			if score > bestScore {
				bestScore = score
				best = angle
			}
		}
		return best, true
	}
	return 0, false
}

func sideOf(rng *rand.Rand) float64 {
	if rng.Float64() < 0.5 {
		return -1
	}
	return 1
}

// Feelers casts three whiskers and returns a lateral steering bias.
// hitTest reports the first-hit distance along (x,y,angle), or a value
// >= length if clear.
func Feelers(x, y, heading float64, aggressive bool, hitTest func(x, y, angle, length float64) (hitDist float64, clear bool)) (bias float64) {
	length, spread := feelerLen, feelerAngle
	if aggressive {
		length, spread = feelerLenAggr, feelerAngleAggr
	}

	_, fwdClear := hitTest(x, y, heading, length)
	leftDist, leftClear := hitTest(x, y, heading-spread, length)
	rightDist, rightClear := hitTest(x, y, heading+spread, length)

	if fwdClear && leftClear && rightClear {
		return 0
	}
	if !fwdClear {
		if leftDist > rightDist {
			return -0.8
		}
		return 0.8
	}
	if !leftClear {
		return 0.3
	}
	if !rightClear {
		return -0.3
	}
	return 0
}

// Separation computes a repulsion-weighted heading nudge from nearby
// enemy positions within separationRadius, per spec.md §4.5.
func Separation(selfX, selfY, selfRadius float64, neighbors []sim.Enemy, stuck bool) (dx, dy float64) {
	var sx, sy, overlapSum float64
	for _, n := range neighbors {
		d := sim.DistanceTo(selfX, selfY, n.X, n.Y)
		if d <= 0 || d > separationRadius {
			continue
		}
		minDist := selfRadius + n.Radius + separationPadding
		if d >= minDist {
			continue
		}
		overlap := minDist - d
		overlapSum += overlap
		sx += (selfX - n.X) / d * overlap
		sy += (selfY - n.Y) / d * overlap
	}
	if overlapSum == 0 {
		return 0, 0
	}
	weight := 0.3
	if stuck || len(neighbors) > 3 {
		weight = 0.7
	}
	clamped := math.Min(overlapSum, separationCap)
	mag := math.Hypot(sx, sy)
	if mag == 0 {
		return 0, 0
	}
	return (sx / mag) * clamped * weight, (sy / mag) * clamped * weight
}

// LeadTime returns the velocity-prediction lead time for a given distance
// to the player, scaling linearly between leadTimeMin and leadTimeMax up
// to leadTimeCap seconds.
func LeadTime(dist float64) float64 {
	if dist <= leadTimeMin {
		return 0
	}
	if dist >= leadTimeMax {
		return leadTimeCap
	}
	t := (dist - leadTimeMin) / (leadTimeMax - leadTimeMin)
	return t * leadTimeCap
}

// SmoothHeading limits the turn rate of current->desired to maxTurnRate*dt
// radians, matching spec.md's 4 rad/s heading-smoothing cap.
func SmoothHeading(current, desired, dt float64) float64 {
	diff := normalizeAngle(desired - current)
	maxStep := maxTurnRate * dt
	if diff > maxStep {
		diff = maxStep
	} else if diff < -maxStep {
		diff = -maxStep
	}
	return normalizeAngle(current + diff)
}

// Steer computes one tick's desired direction for an enemy, blending the
// ring/arc/flank composite target with Arrive+Orbit weighting, applying
// separation and feeler bias, smoothing heading, and finally moving the
// enemy through the Environment's sub-stepped circle resolver.
func Steer(e *sim.Enemy, mode Mode, playerX, playerY, playerVX, playerVY float64, ring *Ring, environment *env.Environment, grid *spatial.SpatialGrid, neighbors []sim.Enemy, rng *rand.Rand, dt, now float64) {
	dist := sim.DistanceTo(e.X, e.Y, playerX, playerY)

	var targetX, targetY float64
	if a, ok := ring.Assignment(e.ID); ok {
		targetX = playerX + math.Cos(a.Angle)*a.Radius
		targetY = playerY + math.Sin(a.Angle)*a.Radius
	} else if e.AI.NextArcPick <= 0 && dist > arcBiasStart {
		targetX, targetY = FlankTarget(FlankDirect, playerX, playerY, e.AI.ArcCenter, dist)
	} else {
		style := PickFlankStyle(rng, dist)
		targetX, targetY = FlankTarget(style, playerX, playerY, e.AI.HeadingAngle, math.Max(150, dist*0.7))
	}

	lead := LeadTime(dist)
	predX := playerX + playerVX*lead
	predY := playerY + playerVY*lead

	arriveAngle := math.Atan2(targetY-e.Y, targetX-e.X)
	orbitAngle := math.Atan2(predY-e.Y, predX-e.X) + math.Pi/2

	desired := math.Atan2(
		math.Sin(arriveAngle)*0.95+math.Sin(orbitAngle)*0.8,
		math.Cos(arriveAngle)*0.95+math.Cos(orbitAngle)*0.8,
	)

	sepX, sepY := Separation(e.X, e.Y, e.Radius, neighbors, e.AI.AvoidState != sim.AvoidIdle)
	if sepX != 0 || sepY != 0 {
		sepAngle := math.Atan2(sepY, sepX)
		desired = math.Atan2(math.Sin(desired)+math.Sin(sepAngle), math.Cos(desired)+math.Cos(sepAngle))
	}

	heading := SmoothHeading(e.AI.HeadingAngle, desired, dt)
	e.AI.HeadingAngle = heading

	speed := baseSpeed * e.SpeedMul * mode.speedMul()
	nx := e.X + math.Cos(heading)*speed*dt
	ny := e.Y + math.Sin(heading)*speed*dt

	rx, ry := environment.ResolveCircleMove(e.X, e.Y, nx, ny, e.Radius+mode.clearancePadding())
	e.VX, e.VY = (rx-e.X)/dt, (ry-e.Y)/dt
	e.X, e.Y = rx, ry

	e.AI.NextArcPick -= dt
	if e.AI.NextArcPick <= 0 {
		e.AI.NextArcPick = arcPickPeriod
	}
}

const baseSpeed = 90.0
