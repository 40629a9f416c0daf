// internal/httpserver/routes_lobby.go
//
// Lobby room endpoints.
// Responsibilities:
//   - POST /rooms: create a room (optionally private with a passcode).
//   - GET  /rooms: public-room directory.
//   - GET  /rooms/{code}/ws: join a room's websocket hub.
//   - GET  /rooms/{code}/qr: PNG QR code for the room's join URL.

package httpserver

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/marksoc/spelling-nads/server/internal/lobby"
)

const lobbyCookieName = "nads_lobby_id"

func (s *Server) mountLobbyRoutes() {
	j := s.r.With(jsonContentType, chimw.Timeout(10*time.Second))

	j.Post("/rooms", s.handleCreateRoom)
	j.Get("/rooms", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(s.rooms.ListPublic())
	})
	s.r.Get("/rooms/{code}/ws", s.handleRoomWS)
	s.r.Get("/rooms/{code}/qr", s.handleRoomQR)
}

type createRoomReq struct {
	Name     string `json:"name"`
	Passcode string `json:"passcode,omitempty"`
}

type createRoomRes struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Spelling Nads"
	}
	room, err := s.rooms.Create(name, req.Passcode)
	if err != nil {
		log.Error().Err(err).Msg("create room")
		http.Error(w, `{"error":"create_failed"}`, http.StatusInternalServerError)
		return
	}
	log.Info().Str("room", room.Code).Bool("private", room.Private).Msg("room created")
	_ = json.NewEncoder(w).Encode(createRoomRes{Code: room.Code, Name: room.Name, Private: room.Private})
}

func (s *Server) handleRoomWS(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	room, err := s.rooms.Get(code)
	if err != nil {
		if errors.Is(err, lobby.ErrRoomNotFound) {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"lookup_failed"}`, http.StatusInternalServerError)
		return
	}

	id := getOrSetLobbyID(w, r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", code).Msg("ws upgrade")
		return
	}
	room.Attach(conn, id)
}

// handleRoomQR renders a join QR for sharing the room on another device.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if _, err := s.rooms.Get(code); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	joinURL := getEnv("CLIENT_ORIGIN", "http://localhost:3000") + "/lobby/" + code
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 320)
	if err != nil {
		http.Error(w, `{"error":"qr_failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// getOrSetLobbyID returns the caller's stable lobby identity cookie,
// creating one on first contact.
func getOrSetLobbyID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(lobbyCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Warn().Err(err).Msg("lobby id")
		return ""
	}
	id := hex.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     lobbyCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
