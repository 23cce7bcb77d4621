// internal/handlers/http.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/wordchain/internal/game"
)

// PingHandler is the health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RoomHandler serves GET /rooms/{code} with the same snapshot get-room returns.
func RoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/rooms/"), "/")
		if code == "" {
			http.Error(w, "missing room code in path (/rooms/{code})", http.StatusBadRequest)
			return
		}

		snap, err := gs.Engine.GetRoom(code)
		if errors.Is(err, game.ErrRoomNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(roomPayload{RoomCode: snap.Code, Room: snap})
	}
}

// Routes mounts every gateway endpoint on a new mux.
func Routes(gs *GameServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", PingHandler)
	mux.Handle("/rooms/", RoomHandler(gs))
	mux.Handle("/ws", WSHandler(gs))
	return mux
}
