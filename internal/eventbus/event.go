// Package eventbus defines the typed events emitted by the simulation core
// (C11) and consumed within the tick that produced them by the broadcaster
// and the rate-limited event log.
package eventbus

import (
	"encoding/json"
	"time"

	"dropzone/internal/sim"
)

// Type classifies an Event.
type Type uint8

const (
	TypeUnknown Type = iota
	Tick             // tick boundary with RNG seed, for replay
	SceneChange
	RoomSnapshot
	EnemyHealthUpdate
	EnemyDead
	EntityDead
	BoomerExploded
	TroopDamaged
	TroopDeath
	TroopAttack
	TroopHitscan
	TroopGrenade
	HazardHit
	HazardRemoved
	VFXEvent
	DamageText
	HordeSpawned
	BurnStateChanged
	ReadyTimerUpdate
	ExtractionTimerUpdate
	EnemiesState // 10Hz sampled enemy positions/health/state, spec.md §6
	TroopsState  // 10Hz sampled troops/barracks/stuckZones
	NPCsState    // 10Hz sampled NPC state
	HazardsState // on-change sandbag/wire/mud/fire/gas/barrel buckets
	ChestOpened
	ArtifactPickedUp
	ArtifactDropped
	ShopPurchase
	AbilityPlaced
	NPCDotApplied
	MissionComplete
)

// Version is the schema version carried on every event for replay
// compatibility.
const Version uint8 = 1

// Event is the core event record. Payload is pre-encoded JSON so the log
// and broadcaster can serialize without touching typed Go structs.
type Event struct {
	Version   uint8     `json:"version"`
	Type      Type      `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
	TickNum   uint64    `json:"tickNum"`
	RoomID    string    `json:"roomId"`
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   []byte    `json:"payload"`
}

func (t Type) String() string {
	switch t {
	case Tick:
		return "tick"
	case SceneChange:
		return "sceneChange"
	case RoomSnapshot:
		return "roomSnapshot"
	case EnemyHealthUpdate:
		return "enemyHealthUpdate"
	case EnemyDead:
		return "enemy_dead"
	case EntityDead:
		return "entity_dead"
	case BoomerExploded:
		return "boomerExploded"
	case TroopDamaged:
		return "troopDamaged"
	case TroopDeath:
		return "troopDeath"
	case TroopAttack:
		return "troopAttack"
	case TroopHitscan:
		return "troopHitscan"
	case TroopGrenade:
		return "troopGrenade"
	case HazardHit:
		return "hazardHit"
	case HazardRemoved:
		return "hazardRemoved"
	case VFXEvent:
		return "vfxEvent"
	case DamageText:
		return "damageText"
	case HordeSpawned:
		return "horde_spawned"
	case BurnStateChanged:
		return "burnStateChanged"
	case ReadyTimerUpdate:
		return "readyTimerUpdate"
	case ExtractionTimerUpdate:
		return "extractionTimerUpdate"
	case EnemiesState:
		return "enemiesState"
	case TroopsState:
		return "troopsState"
	case NPCsState:
		return "npcsState"
	case HazardsState:
		return "hazardsState"
	case ChestOpened:
		return "chestOpened"
	case ArtifactPickedUp:
		return "artifactPickedUp"
	case ArtifactDropped:
		return "artifactDropped"
	case ShopPurchase:
		return "shopPurchase"
	case AbilityPlaced:
		return "abilityPlaced"
	case NPCDotApplied:
		return "npcDotApplied"
	case MissionComplete:
		return "missionComplete"
	default:
		return "unknown"
	}
}

// Typed payloads. Each mirrors a server->client event shape in spec.md §6/§4.11.

type TickPayload struct {
	RNGSeed     int64 `json:"rngSeed"`
	EntityCount int   `json:"entityCount"`
	DeltaTimeNs int64 `json:"deltaTimeNs"`
}

type SceneChangePayload struct {
	Scene     string  `json:"scene"`
	Boundary  float64 `json:"boundary"`
	LevelType string  `json:"levelType"`
}

type EnemyHealthUpdatePayload struct {
	EnemyID string `json:"enemyId"`
	Health  int    `json:"health"`
	MaxHP   int    `json:"maxHealth"`
}

type EnemyDeadPayload struct {
	EnemyID  string `json:"enemyId"`
	KillerID string `json:"killerId"`
}

type EntityDeadPayload struct {
	EntityID string `json:"entityId"`
	Kind     string `json:"kind"`
}

type BoomerExplodedPayload struct {
	EnemyID string  `json:"enemyId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type TroopDamagedPayload struct {
	TroopID string `json:"troopId"`
	Damage  int    `json:"damage"`
	Health  int    `json:"health"`
}

type TroopDeathPayload struct {
	TroopID string `json:"troopId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type TroopAttackPayload struct {
	TroopID string `json:"troopId"`
	Kind    string `json:"type"`
	TargetID string `json:"targetId"`
}

type TroopHitscanPayload struct {
	TroopID   string  `json:"troopId"`
	FromX     float64 `json:"fromX"`
	FromY     float64 `json:"fromY"`
	ToX       float64 `json:"toX"`
	ToY       float64 `json:"toY"`
	Blocked   bool    `json:"blocked"`
	HitHazard bool    `json:"hitHazard"`
}

type TroopGrenadePayload struct {
	TroopID string  `json:"troopId"`
	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
	FuseMs  int64   `json:"fuseMs"`
}

type HazardHitPayload struct {
	HazardID string `json:"hazardId"`
	Damage   int    `json:"damage"`
	Health   int    `json:"health"`
}

type HazardRemovedPayload struct {
	HazardID string `json:"hazardId"`
	Kind     string `json:"kind"`
}

type VFXEventPayload struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type DamageTextPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Amount int     `json:"amount"`
	Crit   bool    `json:"crit"`
}

type HordeSpawnedPayload struct {
	ZoneID string `json:"zoneId"`
	Count  int    `json:"count"`
	Return bool   `json:"isReturn"`
}

type BurnStateChangedPayload struct {
	EntityID string `json:"entityId"`
	Burning  bool   `json:"burning"`
}

type ReadyTimerUpdatePayload struct {
	Started   bool    `json:"started"`
	TimeLeft  float64 `json:"timeLeft"`
	LevelType string  `json:"levelType,omitempty"`
}

type ExtractionTimerUpdatePayload struct {
	Started  bool    `json:"started"`
	TimeLeft float64 `json:"timeLeft"`
}

type ChestOpenedPayload struct {
	ChestID  string          `json:"chestId"`
	PlayerID string          `json:"playerId"`
	Drops    []sim.InventoryItem `json:"drops"`
}

type ArtifactPickedUpPayload struct {
	ChestID  string `json:"chestId"`
	PlayerID string `json:"playerId"`
}

type ArtifactDroppedPayload struct {
	ChestID string  `json:"chestId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type ShopPurchasePayload struct {
	PlayerID string `json:"playerId"`
	ItemIndex int   `json:"itemIndex"`
	Success  bool   `json:"success"`
}

type AbilityPlacedPayload struct {
	AbilityID string  `json:"abilityId"`
	OwnerID   string  `json:"ownerId"`
	Kind      string  `json:"kind"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type NPCDotAppliedPayload struct {
	NPCID string  `json:"npcId"`
	DPS   float64 `json:"dps"`
	Duration float64 `json:"duration"`
}

// MissionCompletePayload accompanies extraction completion: the mission
// ends (enemy AI/damage freezes, per spec.md §4.8), and the room holds on
// this accomplishment screen until players return to the lobby.
type MissionCompletePayload struct {
	Standings []LeaderboardStanding `json:"standings"`
}

// LeaderboardStanding is one player's rank on the Victory Points
// leaderboard at mission end.
type LeaderboardStanding struct {
	PlayerID      string `json:"playerId"`
	VictoryPoints int    `json:"victoryPoints"`
	Rank          int    `json:"rank"`
}

// EncodePayload marshals a payload to JSON bytes, or nil on failure.
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// New creates an Event stamped with the current time.
func New(eventType Type, roomID string, tickNum uint64, playerID string, payload interface{}) Event {
	return Event{
		Version:   Version,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		RoomID:    roomID,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
