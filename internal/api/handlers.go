package api

import (
	"encoding/json"
	"net/http"
	"time"

	"dropzone/internal/config"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers. Room-scoped handlers read a room ID
// path param and look it up against h.manager; a missing room is a 404,
// matching spec.md §5's "room not found" boundary.

func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string `json:"id"`
		WorldSeed int64  `json:"worldSeed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "id is required", http.StatusBadRequest)
		return
	}
	if h.manager.GetRoom(req.ID) != nil {
		writeError(w, "room already exists", http.StatusConflict)
		return
	}
	if req.WorldSeed == 0 {
		req.WorldSeed = time.Now().UnixNano()
	}

	rm := h.manager.CreateRoom(req.ID, req.WorldSeed)
	if h.onRoomCreated != nil {
		h.onRoomCreated(rm)
	}
	UpdateRoomCount(len(h.manager.Rooms()))
	writeJSON(w, map[string]interface{}{
		"id":        rm.ID,
		"worldSeed": rm.WorldSeed,
		"phase":     rm.Phase,
	})
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.manager.Rooms()
	out := make([]map[string]interface{}, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, map[string]interface{}{
			"id":          rm.ID,
			"phase":       rm.Phase,
			"levelType":   rm.LevelType,
			"playerCount": len(rm.Players),
		})
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleRoomState(w http.ResponseWriter, r *http.Request) {
	rm := h.manager.GetRoom(chi.URLParam(r, "roomID"))
	if rm == nil {
		writeError(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rm.Snapshot())
}

func (h *routerHandlers) handleRoomStats(w http.ResponseWriter, r *http.Request) {
	rm := h.manager.GetRoom(chi.URLParam(r, "roomID"))
	if rm == nil {
		writeError(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"id":          rm.ID,
		"phase":       rm.Phase,
		"tickCount":   rm.TickCount,
		"playerCount": len(rm.Players),
	})
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, config.WeaponTable())
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
