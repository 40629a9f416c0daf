// internal/httpserver/routes_solo.go
//
// Solo game sessions over a websocket.
// Responsibilities:
//   - POST /solo/new: build an engine from the requested settings and the
//     caller's profile, register the session, start the run loop.
//   - GET /solo/{id}/ws: attach a socket; stream render frames, sound cues,
//     narration clips, and the final result; accept typed input, answer
//     submissions, and repeat-word requests.
//
// The engine holds in LOADING_ASSETS until both the shared asset bundle has
// settled and a client socket has attached, so narration is never spoken
// into the void.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/marksoc/spelling-nads/server/internal/ai"
	"github.com/marksoc/spelling-nads/server/internal/game"
	"github.com/marksoc/spelling-nads/server/internal/narrator"
	"github.com/marksoc/spelling-nads/server/internal/store"
	"github.com/marksoc/spelling-nads/server/internal/words"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == getEnv("CLIENT_ORIGIN", "http://localhost:3000")
	},
}

// ----------------------------- engine wiring -------------------------------

// tierWords picks a round word: resolve the difficulty to a tier (Randomize
// re-rolls per turn), then draw from that tier's list.
type tierWords struct{}

func (tierWords) Word(difficulty string, rng *rand.Rand) string {
	return words.Random(words.PickTier(difficulty, rng), rng)
}

// definerAdapter bridges the Azure client to the engine's definition port.
type definerAdapter struct{ c *ai.Client }

func (d definerAdapter) Define(ctx context.Context, word string) (game.WordInfo, error) {
	info, err := d.c.Define(ctx, word)
	return game.WordInfo{Type: info.Type, Definition: info.Definition}, err
}

// sessionSink plays narration by shipping each clip down the session socket
// and holding the flow for the clip's estimated playback time, so the turn
// doesn't start while the word is still being spoken.
type sessionSink struct{ sess *store.Session }

func (s sessionSink) Play(ctx context.Context, clip narrator.Clip) error {
	s.sess.Send(audioMsg{
		Type:  "audio",
		Kind:  clip.Kind,
		Voice: clip.Voice,
		Data:  clip.Data,
	})
	d := estimateClipDuration(len(clip.Data))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// estimateClipDuration approximates mp3 playback time from the byte length
// (the TTS endpoint returns roughly 32 kbit/s mono).
func estimateClipDuration(n int) time.Duration {
	d := time.Duration(float64(n)/4000.0*float64(time.Second)) + 200*time.Millisecond
	if d > 15*time.Second {
		d = 15 * time.Second
	}
	return d
}

// wsSpeaker satisfies game.Speaker over the narrator player and session sink.
type wsSpeaker struct {
	player *narrator.Player
	sink   narrator.Sink
}

func (s wsSpeaker) Speak(ctx context.Context, word string, withIntro bool) {
	s.player.Speak(ctx, s.sink, word, withIntro)
}

// ------------------------------- messages ----------------------------------

type frameMsg struct {
	Type  string     `json:"type"` // "frame"
	Scene game.Scene `json:"scene"`
}

type eventMsg struct {
	Type string `json:"type"`           // "sound", "typing_start", "typing_stop"
	Name string `json:"name,omitempty"` // sound name
}

type audioMsg struct {
	Type  string `json:"type"` // "audio"
	Kind  string `json:"kind"` // "intro" | "word"
	Voice string `json:"voice"`
	Data  []byte `json:"data"` // base64 in JSON
}

type resultMsg struct {
	Type   string       `json:"type"` // "result"
	Result *game.Result `json:"result"`
}

type clientMsg struct {
	Type   string `json:"type"` // "input", "submit", "repeat"
	Text   string `json:"text,omitempty"`
	Answer string `json:"answer,omitempty"`
}

// ------------------------------- handlers ----------------------------------

type newSoloReq struct {
	Settings game.Settings `json:"settings"`
}

type newSoloRes struct {
	SessionID string `json:"sessionId"`
}

// handleNewSolo builds and starts a solo game for the caller.
func (s *Server) handleNewSolo(w http.ResponseWriter, r *http.Request) {
	var req newSoloReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	prof := game.Profile{Username: "Player"}
	wallet, _ := r.Context().Value(ctxWalletKey{}).(string)
	if wallet != "" {
		if p, err := s.profiles.Get(r.Context(), wallet); err == nil {
			prof = game.Profile{Username: p.Username, Avatar: p.Avatar, Wallet: p.Wallet}
		}
	}

	sess := store.NewSession(store.NewID())
	sess.Wallet = wallet

	runCtx, cancel := context.WithCancel(context.Background())
	sess.Cancel = cancel

	// Hold the engine until assets have settled AND a socket is attached.
	ready := make(chan struct{})
	var assetsDone <-chan struct{}
	if s.assets != nil {
		assetsDone = s.assets.Done()
	}
	go gateReady(runCtx, assetsDone, sess.Ready(), ready)

	var avatars []string
	var intros narrator.IntroSource
	if s.assets != nil {
		avatars = s.assets.AvatarKeys()
		intros = s.assets.NarratorClips
	}
	var synth narrator.Synth
	if s.ai != nil {
		synth = s.ai
	}
	var definer game.Definer
	if s.ai != nil {
		definer = definerAdapter{c: s.ai}
	}

	cfg := game.Config{
		Settings: req.Settings,
		Profile:  prof,
		Avatars:  avatars,
		Words:    tierWords{},
		Definer:  definer,
		Speaker: wsSpeaker{
			player: narrator.New(synth, intros, rand.New(rand.NewSource(time.Now().UnixNano()))),
			sink:   sessionSink{sess: sess},
		},
		Emit:  func(ev game.Event) { sess.Send(eventMsg{Type: ev.Type, Name: ev.Name}) },
		Ready: ready,
	}
	eng := game.New(cfg)
	sess.Engine = eng

	if err := s.sessions.Save(r.Context(), sess); err != nil {
		cancel()
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	go eng.Run(runCtx)
	go s.watchSession(sess)

	log.Info().Str("session", sess.ID).Str("mode", req.Settings.Mode).
		Str("difficulty", req.Settings.Difficulty).Bool("guest", wallet == "").Msg("solo session created")
	_ = json.NewEncoder(w).Encode(newSoloRes{SessionID: sess.ID})
}

// gateReady closes ready once the assets channel (when non-nil) and the
// attach channel have both fired. Cancelling ctx abandons the wait, so a
// session reaped before any socket attaches does not pin this goroutine.
func gateReady(ctx context.Context, assets, attached <-chan struct{}, ready chan<- struct{}) {
	if assets != nil {
		select {
		case <-assets:
		case <-ctx.Done():
			return
		}
	}
	select {
	case <-attached:
	case <-ctx.Done():
		return
	}
	close(ready)
}

// watchSession waits for the engine to finish, ships the result, persists
// the match for wallet players, and unregisters the session.
func (s *Server) watchSession(sess *store.Session) {
	// A session nobody attaches to would otherwise park in LOADING_ASSETS
	// forever.
	select {
	case <-sess.Ready():
	case <-time.After(2 * time.Minute):
		log.Info().Str("session", sess.ID).Msg("no client attached, reaping session")
		sess.Cancel()
		_ = s.sessions.Delete(context.Background(), sess.ID)
		return
	}

	<-sess.Engine.Done()

	res := sess.Engine.Result()
	if res != nil {
		sess.Send(resultMsg{Type: "result", Result: res})
		if sess.Wallet != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.profiles.RecordMatch(ctx, sess.Wallet, *res); err != nil {
				log.Warn().Err(err).Str("session", sess.ID).Msg("record match")
			}
			cancel()
		}
	}

	// Give the writer a moment to flush the result frame, then tear down.
	time.Sleep(2 * time.Second)
	sess.Cancel()
	_ = s.sessions.Delete(context.Background(), sess.ID)
}

// handleSoloWS attaches the client socket to a session.
func (s *Server) handleSoloWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"lookup_failed"}`, http.StatusInternalServerError)
		return
	}

	// One socket per session. A second attach would start a second render
	// loop and double the animation rate, so reject it outright.
	if !sess.MarkReady() {
		http.Error(w, `{"error":"already_attached"}`, http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("ws upgrade")
		return
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	// Frames are produced straight into the session queue; the writer below
	// is the only goroutine touching the socket.
	go sess.Engine.RunRenderLoop(connCtx, game.DefaultFrameInterval, func(scene game.Scene) {
		sess.Send(frameMsg{Type: "frame", Scene: scene})
	})

	go func() {
		defer conn.Close()
		for {
			select {
			case <-connCtx.Done():
				return
			case msg := <-sess.Outbound:
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}
	}()

	// Read loop; returning tears the whole session down (closing the tab
	// abandons the game).
	defer func() {
		sess.Cancel()
		_ = s.sessions.Delete(context.Background(), sess.ID)
		_ = conn.Close()
	}()
	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "input":
			sess.Engine.SetTypedText(msg.Text)
		case "submit":
			sess.Engine.SubmitHuman(msg.Answer)
		case "repeat":
			sess.Engine.RepeatWord(connCtx)
		default:
			// ignore unknown types
		}
	}
}
