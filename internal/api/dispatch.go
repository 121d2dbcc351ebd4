package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"dropzone/internal/gameerr"
	"dropzone/internal/room"
)

// defaultExtractionSeconds is used when dispatching requestExtraction since
// the per-mode timer (spec.md §231's GameModeConfig.Timers) isn't threaded
// through the websocket layer; rooms created via the admin API all default
// to this duration today.
const defaultExtractionSeconds = 60.0

// inputPayload mirrors spec.md §6's `input{seq, keys{W,A,S,D,Shift},
// aimAngle, mouseDown, weaponIndex, secondaryRequested, timestampMs}`.
type inputPayload struct {
	Seq  uint64 `json:"seq"`
	Keys struct {
		W     bool `json:"W"`
		A     bool `json:"A"`
		S     bool `json:"S"`
		D     bool `json:"D"`
		Shift bool `json:"Shift"`
	} `json:"keys"`
	AimAngle           float64 `json:"aimAngle"`
	MouseDown          bool    `json:"mouseDown"`
	WeaponIndex        int     `json:"weaponIndex"`
	SecondaryRequested bool    `json:"secondaryRequested"`
	TimestampMs        int64   `json:"timestampMs"`
}

func (p inputPayload) toRoomInput(playerID string) room.Input {
	var mx, my float64
	if p.Keys.D {
		mx++
	}
	if p.Keys.A {
		mx--
	}
	if p.Keys.S {
		my++
	}
	if p.Keys.W {
		my--
	}
	return room.Input{
		PlayerID: playerID,
		Seq:      p.Seq,
		MoveX:    mx,
		MoveY:    my,
		AimAngle: p.AimAngle,
		Attack:   p.MouseDown,
	}
}

// dispatchClientEvent parses one client->server envelope and applies it to
// the room, classifying rejects via gameerr per spec.md §7 (malformed
// payloads are Validation, state-mismatched events are Desync — both are
// dropped silently, the caller only logs them).
func dispatchClientEvent(rm *room.Room, playerID, event string, data []byte) *gameerr.Error {
	switch event {
	case "input":
		var p inputPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed input payload")
		}
		if !rm.SubmitInput(p.toRoomInput(playerID)) {
			return gameerr.ResourceBound("input queue full")
		}
		return nil

	case "startReadyTimer":
		rm.StartReadyTimer()
		return nil

	case "cancelReadyTimer":
		rm.CancelReadyTimer()
		return nil

	case "openChest":
		var p struct {
			ChestID string `json:"chestId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed openChest payload")
		}
		if !rm.OpenChest(playerID, p.ChestID) {
			return gameerr.Desync("openChest on unknown or already-opening chest")
		}
		return nil

	case "cancelOpenChest":
		var p struct {
			ChestID string `json:"chestId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed cancelOpenChest payload")
		}
		rm.CancelOpenChest(playerID, p.ChestID)
		return nil

	case "pickUpArtifact":
		var p struct {
			ChestID string `json:"chestId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed pickUpArtifact payload")
		}
		if !rm.PickUpArtifact(playerID, p.ChestID) {
			return gameerr.Desync("pickUpArtifact on chest with no ground artifact")
		}
		return nil

	case "dropArtifact":
		rm.DropArtifact(playerID)
		return nil

	case "purchaseShopItem":
		var p struct {
			ItemIndex int `json:"itemIndex"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed purchaseShopItem payload")
		}
		if !rm.PurchaseShopItem(playerID, p.ItemIndex) {
			return gameerr.Validation("purchaseShopItem rejected: insufficient funds or bad index")
		}
		return nil

	case "requestExtraction":
		var p struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed requestExtraction payload")
		}
		if !rm.RequestExtraction(playerID, defaultExtractionSeconds, p.Type == "heretic") {
			return gameerr.Validation("requestExtraction rejected: no carried artifact or already active")
		}
		return nil

	case "placeAbility":
		var p struct {
			Kind        string  `json:"kind"`
			X           float64 `json:"x"`
			Y           float64 `json:"y"`
			Angle       float64 `json:"angle"`
			Progression int     `json:"progression"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed placeAbility payload")
		}
		id := newAbilityID(playerID)
		if !rm.PlaceAbility(id, playerID, p.Kind, p.X, p.Y, p.Angle, p.Progression) {
			return gameerr.Validation("placeAbility rejected: over per-player cap")
		}
		return nil

	case "sendNPCDot":
		var p struct {
			NPCServerID string  `json:"npcServerId"`
			DPS         float64 `json:"dps"`
			Duration    float64 `json:"duration"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed sendNPCDot payload")
		}
		if !rm.SendNPCDot(p.NPCServerID, p.DPS, p.Duration) {
			return gameerr.Desync("sendNPCDot on unknown or dead NPC")
		}
		return nil

	case "abilityDotDamage":
		var p struct {
			AbilityID      string  `json:"abilityId"`
			TargetPlayerID string  `json:"targetPlayerId"`
			DPS            float64 `json:"dps"`
			Duration       float64 `json:"duration"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return gameerr.Validation("malformed abilityDotDamage payload")
		}
		if !rm.AbilityDotDamage(p.AbilityID, p.TargetPlayerID, p.DPS, p.Duration) {
			return gameerr.Desync("abilityDotDamage rejected: unknown ability/target or alignment mismatch")
		}
		return nil

	default:
		return gameerr.Validation(fmt.Sprintf("unknown event %q", event))
	}
}

func newAbilityID(playerID string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return playerID + "-" + hex.EncodeToString(b)
}
