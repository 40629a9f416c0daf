// internal/game/engine.go
//
// Turn/round state machine for a solo game session.
// Responsibilities:
//   - Advance through the game phases (see types.go) on a single run loop.
//   - Own all mutable player/turn/ui state behind one mutex; the render
//     loop and transport only ever see copies (see render.go).
//   - Accept at most one answer per turn, from whichever source is first:
//     human submit, bot simulator, or timer expiry.
//
// Concurrency model: one goroutine runs the state machine (Run). The turn
// timer and bot simulator run as helper goroutines that call back into the
// engine through guarded entry points; phase checks make late callbacks
// no-ops. Cancelling the context tears everything down.

package game

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// WordSource picks a word for a difficulty selection ("Randomize" included).
type WordSource interface {
	Word(difficulty string, rng *rand.Rand) string
}

// Definer enriches a word with part-of-speech and definition.
type Definer interface {
	Define(ctx context.Context, word string) (WordInfo, error)
}

// WordInfo is a definition lookup result.
type WordInfo struct {
	Type       string
	Definition string
}

// Speaker narrates a word, returning once playback has finished or failed.
type Speaker interface {
	Speak(ctx context.Context, word string, withIntro bool)
}

// Config wires a new engine. Zero durations take the tuning defaults;
// a zero Seed takes the wall clock.
type Config struct {
	Settings Settings
	Profile  Profile
	Avatars  []string // avatar pool for bots
	Words    WordSource
	Definer  Definer
	Speaker  Speaker
	Emit     func(Event)     // optional cue sink; may be nil
	Ready    <-chan struct{} // asset readiness gate; nil means ready

	Seed            int64
	TurnBudget      time.Duration
	TimerTick       time.Duration
	ProcessingPause time.Duration
	GameOverPause   time.Duration
}

// Engine runs one solo game. Construct with New, drive with Run.
type Engine struct {
	cfg Config
	rng *rand.Rand // owned by the run loop; helper goroutines never touch it

	mu        sync.Mutex
	phase     Phase
	players   []*Player
	order     []*Player // fixed snapshot for the current round
	cursor    int
	ui        UIState
	particles []Particle
	elims     []Elimination
	timer     *Countdown

	typingOn    bool
	typingTimer *time.Timer

	answered chan struct{}
	done     chan struct{}

	startedAt   time.Time
	humanTopWPM int
	nextAnimID  int64
	result      *Result
}

// New constructs an engine in PhaseLoading. Run starts the flow.
func New(cfg Config) *Engine {
	if cfg.TurnBudget <= 0 {
		cfg.TurnBudget = TurnBudget
	}
	if cfg.TimerTick <= 0 {
		cfg.TimerTick = TimerTick
	}
	if cfg.ProcessingPause < 0 {
		cfg.ProcessingPause = 0
	} else if cfg.ProcessingPause == 0 {
		cfg.ProcessingPause = ProcessingPause
	}
	if cfg.GameOverPause == 0 {
		cfg.GameOverPause = GameOverPause
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		phase:    PhaseLoading,
		ui:       UIState{MessageColor: colorMsgTurn, TimerWidth: 100, TimerColor: colorTimerOK},
		answered: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	e.particles = e.makeParticles(ParticleCount)
	return e
}

// Done closes when the run loop has exited (game over or cancelled).
func (e *Engine) Done() <-chan struct{} { return e.done }

// Result returns the game outcome, or nil before game over.
func (e *Engine) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// PhaseNow reports the current phase.
func (e *Engine) PhaseNow() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Run drives the state machine until game over or context cancellation.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	defer e.teardown()

	// LOADING_ASSETS: gated on the preloader settling, never on success.
	if e.cfg.Ready != nil {
		select {
		case <-e.cfg.Ready:
		case <-ctx.Done():
			return
		}
	}
	e.setPhase(PhaseSetup)

	for ctx.Err() == nil {
		switch e.PhaseNow() {
		case PhaseSetup:
			e.setup()
		case PhaseStartRound:
			e.startRound()
		case PhaseNextTurn:
			e.nextTurn()
		case PhaseFetchWord:
			e.fetchWord(ctx)
		case PhasePlayAudio:
			e.playAudio(ctx)
		case PhasePlayerAction:
			e.playerAction(ctx)
		case PhaseProcessing:
			e.processing(ctx)
		case PhaseGameOver:
			e.finish(ctx)
			return
		}
	}
}

// ----------------------------- transitions ---------------------------------

// setup builds the roster: one human from the profile plus N bots derived
// from the mode string ("Free For All" fixes N=3, otherwise the leading
// digit, e.g. "3v3" → 3).
func (e *Engine) setup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := e.cfg.Profile.Username
	if name == "" {
		name = "Player"
	}
	human := &Player{
		ID: 1, Name: name, Avatar: e.cfg.Profile.Avatar, Team: TeamPlayer,
		Alpha: 1, Width: PlayerSize, Height: PlayerSize,
	}
	e.players = []*Player{human}

	n := FreeForAllBots
	if mode := e.cfg.Settings.Mode; mode != "Free For All" && mode != "" {
		if v, err := strconv.Atoi(mode[:1]); err == nil {
			n = v
		}
	}
	for i := 0; i < n; i++ {
		avatar := ""
		if len(e.cfg.Avatars) > 0 {
			avatar = e.cfg.Avatars[e.rng.Intn(len(e.cfg.Avatars))]
		}
		e.players = append(e.players, &Player{
			ID: i + 2, Name: fmt.Sprintf("Bot %d", i+1), Avatar: avatar, Team: TeamEnemy, IsBot: true,
			Alpha: 1, Width: PlayerSize, Height: PlayerSize,
			Skill:     BotSkillMin + e.rng.Float64()*BotSkillSpan,
			CharDelay: BotDelayMin + time.Duration(e.rng.Float64()*float64(BotDelaySpan)),
		})
	}
	e.layoutPlayersLocked()
	e.startedAt = time.Now()
	e.phase = PhaseStartRound
	log.Info().Int("players", len(e.players)).Str("mode", e.cfg.Settings.Mode).
		Str("difficulty", e.cfg.Settings.Difficulty).Msg("game set up")
}

// startRound filters survivors, ends the game at ≤1, otherwise shuffles a
// fresh turn order and resets the cursor to before-first.
func (e *Engine) startRound() {
	e.mu.Lock()
	defer e.mu.Unlock()

	var active []*Player
	for _, p := range e.players {
		if !p.Eliminated {
			active = append(active, p)
		}
	}
	if len(active) <= 1 {
		e.phase = PhaseGameOver
		return
	}
	e.rng.Shuffle(len(active), func(i, j int) { active[i], active[j] = active[j], active[i] })
	e.order = active
	e.cursor = -1
	e.layoutPlayersLocked()
	e.phase = PhaseNextTurn
}

// nextTurn advances the cursor over the round's fixed order snapshot.
// Wrapping past the end re-enters START_ROUND so every round gets a fresh
// shuffle of the remaining survivors; a player eliminated mid-round keeps
// its slot but is skipped when its turn comes up.
func (e *Engine) nextTurn() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cursor++
	if e.cursor >= len(e.order) {
		e.phase = PhaseStartRound
		return
	}
	if e.order[e.cursor].Eliminated {
		return // stay in NEXT_TURN; the loop advances again
	}
	e.phase = PhaseFetchWord
}

// fetchWord assigns the actor a word for the selected difficulty and
// enriches it; lookup failures degrade to a placeholder definition.
func (e *Engine) fetchWord(ctx context.Context) {
	actor := e.actor()
	if actor == nil {
		e.setPhase(PhaseStartRound)
		return
	}

	word := "developer"
	if e.cfg.Words != nil {
		word = e.cfg.Words.Word(e.cfg.Settings.Difficulty, e.rng)
	}

	info := WordInfo{Type: "?", Definition: "Could not load definition."}
	if e.cfg.Definer != nil {
		if got, err := e.cfg.Definer.Define(ctx, word); err != nil {
			log.Warn().Err(err).Str("word", word).Msg("definition lookup failed")
		} else {
			info = got
		}
	}

	e.mu.Lock()
	actor.Word = &WordData{Word: word, Type: info.Type, Definition: info.Definition}
	e.ui.WordType = strings.ToUpper(info.Type)
	e.ui.Definition = info.Definition
	e.phase = PhasePlayAudio
	e.mu.Unlock()
}

// playAudio narrates the actor's word; the flow resumes when playback ends
// or fails.
func (e *Engine) playAudio(ctx context.Context) {
	actor := e.actor()
	if actor != nil && actor.Word != nil && e.cfg.Speaker != nil {
		e.cfg.Speaker.Speak(ctx, actor.Word.Word, true)
	}
	e.setPhase(PhasePlayerAction)
}

// playerAction records the turn start, arms the timer, and launches the bot
// simulator or opens human input. The next transition comes from submit.
func (e *Engine) playerAction(ctx context.Context) {
	e.mu.Lock()
	actor := e.actorLocked()
	if actor == nil {
		e.phase = PhaseStartRound
		e.mu.Unlock()
		return
	}
	actor.TurnStart = time.Now()
	e.ui.Message = actor.Name + "'s Turn!"
	e.ui.MessageColor = colorMsgTurn
	e.ui.TimerWidth = 100
	e.ui.TimerColor = colorTimerOK

	total := e.cfg.TurnBudget
	e.timer = NewCountdown(total, e.cfg.TimerTick,
		func(remaining time.Duration) { e.timerTick(total, remaining) },
		func() { e.submit(actor, "") },
	)
	e.timer.Start()

	var plan botPlan
	if actor.IsBot {
		plan = e.planBotLocked(actor)
	} else {
		e.ui.ShowRepeat = true
	}
	e.mu.Unlock()

	if actor.IsBot {
		go e.runBot(ctx, actor, plan)
	}

	select {
	case <-e.answered:
	case <-ctx.Done():
	}
}

// processing holds the outcome on screen briefly, then clears the message.
func (e *Engine) processing(ctx context.Context) {
	sleep(ctx, e.cfg.ProcessingPause)
	e.mu.Lock()
	e.ui.Message = ""
	e.phase = PhaseNextTurn
	e.mu.Unlock()
}

// finish announces the winner, pauses, and records the result.
func (e *Engine) finish(ctx context.Context) {
	e.mu.Lock()
	winner := "Nobody"
	humanWon := false
	for _, p := range e.players {
		if !p.Eliminated {
			winner = p.Name
			humanWon = !p.IsBot
			break
		}
	}
	e.ui.Message = winner + " WINS!"
	e.ui.MessageColor = colorMsgWin
	e.result = &Result{
		Winner:     winner,
		HumanWon:   humanWon,
		TopWPM:     e.humanTopWPM,
		StartedAt:  e.startedAt,
		FinishedAt: time.Now(),
	}
	e.mu.Unlock()

	e.emit(Event{Type: "sound", Name: "win"})
	log.Info().Str("winner", winner).Msg("game over")
	sleep(ctx, e.cfg.GameOverPause)
}

// ----------------------------- submissions ---------------------------------

// SubmitHuman accepts the human player's answer (Enter key). Ignored unless
// it is currently the human's turn.
func (e *Engine) SubmitHuman(answer string) bool {
	e.mu.Lock()
	actor := e.actorLocked()
	e.mu.Unlock()
	if actor == nil || actor.IsBot {
		return false
	}
	return e.submit(actor, answer)
}

// submit resolves one answer for the acting player. The phase guard makes
// it at-most-once per turn: late timer expiries, double Enters, and bot
// completions after a timeout all fall through silently.
func (e *Engine) submit(p *Player, answer string) bool {
	e.mu.Lock()
	if e.phase != PhasePlayerAction || p != e.actorLocked() {
		e.mu.Unlock()
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.stopTypingCueLocked()
	e.ui.ShowRepeat = false
	e.ui.TypedText = ""
	e.ui.BotTyping = false
	e.ui.TypingName = ""
	p.Typing = false

	correct := p.Word != nil && strings.TrimSpace(strings.ToLower(answer)) == p.Word.Word
	var cue string
	if correct {
		elapsed := time.Since(p.TurnStart)
		if elapsed < time.Millisecond {
			elapsed = time.Millisecond
		}
		p.LastWPM = int(math.Round(float64(len(p.Word.Word)) / 5 / elapsed.Minutes()))
		p.Streak++
		if !p.IsBot && p.LastWPM > e.humanTopWPM {
			e.humanTopWPM = p.LastWPM
		}
		if p.Streak > 1 {
			e.ui.Streaks = append(e.ui.Streaks, StreakToast{
				ID: time.Now().UnixMilli(), Streak: p.Streak, Born: time.Now(),
			})
		}
		e.ui.Message = fmt.Sprintf("CORRECT! (+%d WPM)", p.LastWPM)
		e.ui.MessageColor = colorMsgCorrect
		cue = "correct"
	} else {
		p.Streak = 0
		p.LastWPM = 0
		p.Eliminated = true
		p.Floating = true
		e.nextAnimID++
		e.elims = append(e.elims, Elimination{ID: e.nextAnimID, X: p.X, Y0: p.Y, Start: time.Now()})
		e.ui.Message = "ELIMINATED!"
		e.ui.MessageColor = colorMsgWrong
		cue = "wrong"
		log.Info().Str("player", p.Name).Msg("player eliminated")
	}
	e.phase = PhaseProcessing
	e.mu.Unlock()

	e.emit(Event{Type: "sound", Name: cue})
	select {
	case e.answered <- struct{}{}:
	default:
	}
	return true
}

// SetTypedText updates the live-typed-text projection (human keystrokes or
// bot reveal) and manages the typing sound cue.
func (e *Engine) SetTypedText(text string) {
	e.mu.Lock()
	if e.phase != PhasePlayerAction {
		e.mu.Unlock()
		return
	}
	e.ui.TypedText = text
	start := !e.typingOn
	e.typingOn = true
	if e.typingTimer != nil {
		e.typingTimer.Stop()
	}
	e.typingTimer = time.AfterFunc(TypingSoundHold, func() {
		e.mu.Lock()
		was := e.typingOn
		e.typingOn = false
		e.mu.Unlock()
		if was {
			e.emit(Event{Type: "typing_stop"})
		}
	})
	e.mu.Unlock()

	if start {
		e.emit(Event{Type: "typing_start"})
	}
}

// RepeatWord replays the pronunciation clip only. Gated to the human's
// active turn.
func (e *Engine) RepeatWord(ctx context.Context) {
	e.mu.Lock()
	actor := e.actorLocked()
	ok := e.phase == PhasePlayerAction && actor != nil && !actor.IsBot && actor.Word != nil
	var word string
	if ok {
		word = actor.Word.Word
	}
	e.mu.Unlock()

	if ok && e.cfg.Speaker != nil {
		go e.cfg.Speaker.Speak(ctx, word, false)
	}
}

// ------------------------------- helpers -----------------------------------

func (e *Engine) timerTick(total, remaining time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlayerAction {
		return
	}
	width := float64(remaining) / float64(total) * 100
	e.ui.TimerWidth = width
	e.ui.TimerText = fmt.Sprintf("%.1f", remaining.Seconds())
	switch {
	case width > 50:
		e.ui.TimerColor = colorTimerOK
	case width > 25:
		e.ui.TimerColor = colorTimerWarn
	default:
		e.ui.TimerColor = colorTimerDanger
	}
}

func (e *Engine) actor() *Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actorLocked()
}

func (e *Engine) actorLocked() *Player {
	if e.cursor < 0 || e.cursor >= len(e.order) {
		return nil
	}
	return e.order[e.cursor]
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

func (e *Engine) emit(ev Event) {
	if e.cfg.Emit != nil {
		e.cfg.Emit(ev)
	}
}

func (e *Engine) stopTypingCueLocked() {
	if e.typingTimer != nil {
		e.typingTimer.Stop()
	}
	e.typingOn = false
}

// teardown stops the periodic helpers and closes the phase guard so any
// in-flight continuation (late timer tick, bot submit, stray Enter) becomes
// a no-op.
func (e *Engine) teardown() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.stopTypingCueLocked()
	e.phase = PhaseGameOver
	e.mu.Unlock()
}

// layoutPlayersLocked spaces the surviving players evenly along the stage
// row. Eliminated players keep their last position and float away.
func (e *Engine) layoutPlayersLocked() {
	var active []*Player
	for _, p := range e.players {
		if !p.Eliminated {
			active = append(active, p)
		}
	}
	spacing := CanvasWidth / float64(len(active)+1)
	for i, p := range active {
		p.X = spacing * float64(i+1)
		p.Y = CanvasHeight * PlayerRowY
		p.TargetX, p.TargetY = p.X, p.Y
	}
}

// sleep is a context-aware pause.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
