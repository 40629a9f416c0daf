// internal/httpserver/server.go
//
// HTTP server wiring for the Spelling Nads backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Solo session endpoints: POST /solo/new, GET /solo/{id}/ws (routes_solo.go).
//   - Lobby endpoints: /rooms/* (routes_lobby.go).
//   - Profile endpoints: wallet identity behind a JWT cookie.
//   - AI proxy endpoints (/api/get-speech, /api/get-word) so the Azure key
//     never reaches the browser.
//
// Notes:
//   - CORS is origin‑aware and credentials‑enabled (so cookies work).
//   - Optional auth decorates requests with a wallet when a valid token is
//     present; solo play still works for guests.
//   - Require‑auth middleware enforces presence and validity of a JWT.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/marksoc/spelling-nads/server/internal/ai"
	"github.com/marksoc/spelling-nads/server/internal/loader"
	"github.com/marksoc/spelling-nads/server/internal/lobby"
	"github.com/marksoc/spelling-nads/server/internal/profile"
	"github.com/marksoc/spelling-nads/server/internal/store"
	"github.com/marksoc/spelling-nads/server/internal/words"
)

// Server bundles router, session store, room manager, and service handles.
type Server struct {
	r        *chi.Mux
	sessions store.Store
	rooms    *lobby.Manager
	profiles *profile.Store
	ai       *ai.Client
	assets   *loader.Bundle
}

// New constructs a Server, installs middleware, and registers routes.
// The ai client may be nil (definitions and narration degrade gracefully).
func New(sessions store.Store, db *sql.DB, aiClient *ai.Client, assets *loader.Bundle) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		sessions: sessions,
		rooms:    lobby.NewManager(lobby.DefaultIdleTimeout),
		profiles: profile.NewStore(db),
		ai:       aiClient,
		assets:   assets,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(corsFromEnv)     // credentials-friendly CORS
	// No global timeout: the session and lobby sockets are long-lived.
	// JSON routes opt in below.

	// --- diagnostics ---
	s.r.With(jsonContentType).Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"spelling-nads-go","endpoints":["/health","POST /solo/new","GET /solo/{id}/ws","/rooms","/profile"]}`))
	})
	s.r.With(jsonContentType).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.With(jsonContentType).Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(words.Stats())
	})

	// Solo sessions — OPTIONAL AUTH (guests can play; results persist for wallets)
	s.r.With(jsonContentType, chimw.Timeout(10*time.Second), s.withOptionalAuth()).Post("/solo/new", s.handleNewSolo)
	s.r.Get("/solo/{id}/ws", s.handleSoloWS) // upgrades; no JSON header

	// Lobby rooms
	s.mountLobbyRoutes()

	// Profiles (wallet identity)
	s.mountProfileRoutes()

	// AI proxies
	s.r.With(chimw.Timeout(30*time.Second), s.requireAuth()).Post("/api/get-speech", s.handleGetSpeech)
	s.r.With(jsonContentType, chimw.Timeout(30*time.Second), s.withOptionalAuth()).Post("/api/get-word", s.handleGetWord)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:3000.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:3000"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ----------------------------- AI proxies ----------------------------------

type speechReq struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// handleGetSpeech synthesizes speech for arbitrary text (used by the client
// for menus and previews; in-game narration flows over the session socket).
func (s *Server) handleGetSpeech(w http.ResponseWriter, r *http.Request) {
	if s.ai == nil {
		http.Error(w, `{"error":"tts_unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	var req speechReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<14)).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	audio, err := s.ai.Speech(r.Context(), req.Text, req.Voice)
	if err != nil {
		log.Warn().Err(err).Msg("speech proxy")
		http.Error(w, `{"error":"tts_failed"}`, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(audio)
}

type defineReq struct {
	Word string `json:"word"`
}

// handleGetWord returns part-of-speech and definition for a word, with the
// same placeholder fallback the engine uses when the lookup fails.
func (s *Server) handleGetWord(w http.ResponseWriter, r *http.Request) {
	var req defineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Word == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	info := ai.WordInfo{Type: "?", Definition: "Could not load definition."}
	if s.ai != nil {
		if got, err := s.ai.Define(r.Context(), req.Word); err != nil {
			log.Warn().Err(err).Str("word", req.Word).Msg("define proxy")
		} else {
			info = got
		}
	}
	_ = json.NewEncoder(w).Encode(info)
}

// ------------------------------ profiles -----------------------------------

type profileReq struct {
	Wallet   string `json:"walletAddress"`
	Username string `json:"username"`
	Avatar   string `json:"pfpUrl"`
}

// mountProfileRoutes registers wallet identity endpoints:
//   - POST /profile/login  — issue a JWT cookie for a wallet address
//   - POST /profile        — create/update identity (gated)
//   - GET  /profile/me     — current profile; 401 with needsSetup when absent
//   - GET  /profile/matches — recent finished games (gated)
//   - POST /profile/logout — clear the cookie
func (s *Server) mountProfileRoutes() {
	j := s.r.With(jsonContentType, chimw.Timeout(10*time.Second))

	j.Post("/profile/login", func(w http.ResponseWriter, r *http.Request) {
		var body profileReq
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Wallet) == "" {
			http.Error(w, `{"error":"wallet_required"}`, http.StatusBadRequest)
			return
		}
		wallet := strings.TrimSpace(body.Wallet)
		tok, exp, err := signJWT(wallet)
		if err != nil {
			http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
			return
		}
		setAuthCookie(w, tok, exp)
		if p, err := s.profiles.Get(r.Context(), wallet); err == nil {
			_ = json.NewEncoder(w).Encode(p)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"walletAddress": wallet, "needsSetup": true})
	})

	j.With(s.requireAuth()).Post("/profile", func(w http.ResponseWriter, r *http.Request) {
		wallet, _ := r.Context().Value(ctxWalletKey{}).(string)
		var body profileReq
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
			return
		}
		p, err := s.profiles.Upsert(r.Context(), wallet, body.Username, body.Avatar)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	})

	j.With(s.requireAuth()).Get("/profile/me", func(w http.ResponseWriter, r *http.Request) {
		wallet, _ := r.Context().Value(ctxWalletKey{}).(string)
		p, err := s.profiles.Get(r.Context(), wallet)
		if errors.Is(err, profile.ErrNotFound) {
			// Client routes to identity setup on this shape.
			http.Error(w, `{"error":"no_profile","needsSetup":true}`, http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	})

	j.With(s.requireAuth()).Get("/profile/matches", func(w http.ResponseWriter, r *http.Request) {
		wallet, _ := r.Context().Value(ctxWalletKey{}).(string)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := s.profiles.RecentMatches(r.Context(), wallet, limit)
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(rows)
	})

	j.Post("/profile/logout", func(w http.ResponseWriter, r *http.Request) {
		clearAuthCookie(w)
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
}

// ------------------------------ JWT & cookies ------------------------------

// ctxWalletKey is the context key type for the authenticated wallet address.
type ctxWalletKey struct{}

// signJWT creates an HS256 JWT carrying the wallet address with a
// configurable expiry (JWT_EXPIRES_DAYS; default 14).
func signJWT(wallet string) (string, time.Time, error) {
	secret := getEnv("JWT_SECRET", "dev_secret_change_me")
	days := 14
	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"wallet": wallet,
		"exp":    exp.Unix(),
		"iat":    time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(secret))
	return ss, exp, err
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     getEnv("COOKIE_NAME", "nads_token"),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearAuthCookie deletes the auth token cookie.
func clearAuthCookie(w http.ResponseWriter) {
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     getEnv("COOKIE_NAME", "nads_token"),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a token from the Authorization header or cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(getEnv("COOKIE_NAME", "nads_token")); err == nil {
		return c.Value
	}
	return ""
}

// parseWallet validates a token and returns the wallet claim, or "".
func parseWallet(tok string) string {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
	})
	if err != nil || !t.Valid {
		return ""
	}
	wallet, _ := claims["wallet"].(string)
	return wallet
}

// withOptionalAuth decorates requests with the wallet when a valid JWT is
// present. It never 401s; guests pass through.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearerOrCookie(r); tok != "" {
				if wallet := parseWallet(tok); wallet != "" {
					r = r.WithContext(context.WithValue(r.Context(), ctxWalletKey{}, wallet))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid JWT and injects the wallet into context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerOrCookie(r)
			if tok == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			wallet := parseWallet(tok)
			if wallet == "" {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxWalletKey{}, wallet)))
		})
	}
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
