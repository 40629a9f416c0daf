// internal/game/types.go
//
// Core type definitions for the solo game engine.
// Defines:
//   - Phase: the discrete game-flow states.
//   - Player: one participant (human or bot) and its visual state.
//   - Supporting records: word payloads, particles, elimination animations,
//     streak toasts, settings, profile, UI projection, emitted events.

package game

import "time"

// Phase is the current game-flow state. Transitions are driven by the
// engine's run loop; PhaseGameOver is terminal.
type Phase int

const (
	PhaseLoading Phase = iota // waiting for asset preload to settle
	PhaseSetup                // building the player roster
	PhaseStartRound           // filtering survivors, shuffling turn order
	PhaseNextTurn             // advancing the turn cursor
	PhaseFetchWord            // picking + defining the actor's word
	PhasePlayAudio            // narrating the word
	PhasePlayerAction         // waiting for an answer (human, bot, or timeout)
	PhaseProcessing           // showing the outcome before the next turn
	PhaseGameOver             // terminal: winner decided
)

var phaseNames = [...]string{
	"LOADING_ASSETS", "SETUP_GAME", "START_ROUND", "NEXT_TURN",
	"FETCH_WORD", "PLAY_AUDIO", "PLAYER_ACTION", "PROCESSING_ANSWER", "GAME_OVER",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

// Team tags a player for label coloring.
type Team string

const (
	TeamPlayer Team = "player"
	TeamEnemy  Team = "enemy"
)

// WordData is the word assigned to a player for one turn.
type WordData struct {
	Word       string `json:"word"`
	Type       string `json:"type"`
	Definition string `json:"definition"`
}

// Player is one participant. Mutated in place by the engine; elimination is
// a flag plus fade-out, never removal from the roster.
type Player struct {
	ID     int
	Name   string
	Avatar string
	Team   Team
	IsBot  bool

	X, Y             float64
	TargetX, TargetY float64
	Width, Height    float64

	Eliminated bool
	Floating   bool
	Alpha      float64
	FloatAngle float64

	Streak    int
	LastWPM   int
	TurnStart time.Time
	Word      *WordData

	// Bot-only parameters.
	Skill     float64       // probability of answering correctly
	CharDelay time.Duration // per-character typing delay
	Typing    bool
}

// Particle is ambient background decoration; recycled forever.
type Particle struct {
	X, Y    float64
	Size    float64
	Speed   float64
	Opacity float64
}

// Elimination is a transient cosmetic record created when a player is
// eliminated. Its visuals derive from elapsed time since Start; it is
// pruned once fully faded.
type Elimination struct {
	ID    int64
	X, Y0 float64
	Start time.Time
}

// StreakToast surfaces a running streak of 2 or more.
type StreakToast struct {
	ID     int64     `json:"id"`
	Streak int       `json:"streak"`
	Born   time.Time `json:"-"`
}

// Settings selects difficulty tier, game mode ("1v1" … "5v5",
// "Free For All") and canvas theme.
type Settings struct {
	Difficulty string `json:"difficulty"`
	Mode       string `json:"mode"`
	Theme      string `json:"theme"`
}

// Profile identifies the human player.
type Profile struct {
	Username string `json:"username"`
	Avatar   string `json:"pfpUrl"`
	Wallet   string `json:"walletAddress"`
}

// UIState is the ephemeral, render-only projection shown above the canvas.
// It is reconstructible from player/turn state plus timer progress and is
// never authoritative.
type UIState struct {
	TypedText    string        `json:"typedText"`
	Message      string        `json:"message"`
	MessageColor string        `json:"messageColor"`
	WordType     string        `json:"wordType"`
	Definition   string        `json:"definition"`
	TimerWidth   float64       `json:"timerWidth"`
	TimerColor   string        `json:"timerColor"`
	TimerText    string        `json:"timerText"`
	Streaks      []StreakToast `json:"streaks,omitempty"`
	ShowRepeat   bool          `json:"showRepeat"`
	BotTyping    bool          `json:"botTyping"`
	TypingName   string        `json:"typingName,omitempty"`
}

// Event is a cue emitted by the engine for the transport layer
// (sound effects, typing start/stop).
type Event struct {
	Type string `json:"type"` // "sound" | "typing_start" | "typing_stop"
	Name string `json:"name,omitempty"`
}

// Result summarizes a finished game.
type Result struct {
	Winner     string    `json:"winner"` // display name, or "Nobody"
	HumanWon   bool      `json:"humanWon"`
	TopWPM     int       `json:"topWpm"` // human's best correct-answer WPM
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
