package api

import (
	"testing"

	"dropzone/internal/gameerr"
	"dropzone/internal/room"
	"dropzone/internal/sim"
)

func newDispatchTestRoom() *room.Room {
	r := room.New("room1", 1, 1000, 1000)
	r.AddPlayer("p1", "Alice")
	return r
}

func TestDispatchInputSubmitsToRoom(t *testing.T) {
	r := newDispatchTestRoom()
	payload := []byte(`{"seq":1,"keys":{"W":true,"D":true},"aimAngle":0.5,"mouseDown":true}`)

	if gerr := dispatchClientEvent(r, "p1", "input", payload); gerr != nil {
		t.Fatalf("expected input to dispatch cleanly, got %v", gerr)
	}
}

func TestDispatchUnknownEventIsValidationError(t *testing.T) {
	r := newDispatchTestRoom()

	gerr := dispatchClientEvent(r, "p1", "notARealEvent", []byte(`{}`))
	if gerr == nil || gerr.Kind != gameerr.KindValidation {
		t.Fatalf("expected a Validation error for an unknown event, got %v", gerr)
	}
}

func TestDispatchOpenChestOnMissingChestIsDesync(t *testing.T) {
	r := newDispatchTestRoom()

	gerr := dispatchClientEvent(r, "p1", "openChest", []byte(`{"chestId":"missing"}`))
	if gerr == nil || gerr.Kind != gameerr.KindDesync {
		t.Fatalf("expected a Desync error opening a nonexistent chest, got %v", gerr)
	}
}

func TestDispatchOpenChestSucceedsOnSealedChest(t *testing.T) {
	r := newDispatchTestRoom()
	r.Chests["c1"] = &sim.Chest{ID: "c1", Variant: sim.ChestBrown, State: sim.ChestSealed}

	if gerr := dispatchClientEvent(r, "p1", "openChest", []byte(`{"chestId":"c1"}`)); gerr != nil {
		t.Fatalf("expected openChest to succeed, got %v", gerr)
	}
	if r.Chests["c1"].State != sim.ChestOpening {
		t.Fatal("expected chest to transition to opening")
	}
}

func TestDispatchMalformedPayloadIsValidationError(t *testing.T) {
	r := newDispatchTestRoom()

	gerr := dispatchClientEvent(r, "p1", "openChest", []byte(`not json`))
	if gerr == nil || gerr.Kind != gameerr.KindValidation {
		t.Fatalf("expected a Validation error for malformed JSON, got %v", gerr)
	}
}

func TestDispatchPlaceAbilityEnforcesCapViaDesyncPath(t *testing.T) {
	r := newDispatchTestRoom()
	payload := []byte(`{"kind":"mine","x":1,"y":2,"angle":0,"progression":1}`)

	for i := 0; i < 3; i++ {
		if gerr := dispatchClientEvent(r, "p1", "placeAbility", payload); gerr != nil {
			t.Fatalf("expected ability %d to place cleanly, got %v", i, gerr)
		}
	}

	gerr := dispatchClientEvent(r, "p1", "placeAbility", payload)
	if gerr == nil || gerr.Kind != gameerr.KindValidation {
		t.Fatalf("expected the 4th ability placement to be rejected over cap, got %v", gerr)
	}
}
