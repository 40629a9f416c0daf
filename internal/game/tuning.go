package game

import "time"

// Gameplay tuning. Values mirror the balance the game shipped with.
const (
	CanvasWidth  = 1280.0
	CanvasHeight = 720.0
	PlayerSize   = 100.0
	PlayerRowY   = 0.88 // fraction of canvas height where players stand

	TurnBudget      = 10 * time.Second
	TimerTick       = 10 * time.Millisecond
	ProcessingPause = 2 * time.Second
	GameOverPause   = 5 * time.Second

	FreeForAllBots = 3
	BotSkillMin    = 0.5
	BotSkillSpan   = 0.4 // skill ∈ [0.5, 0.9)
	BotDelayMin    = 80 * time.Millisecond
	BotDelaySpan   = 100 * time.Millisecond // per-char delay ∈ [80, 180) ms
	BotSettleMin   = 500 * time.Millisecond
	BotSettleSpan  = 500 * time.Millisecond // settle ∈ [500, 1000) ms
	FailToken      = "fail"

	ParticleCount = 150

	FloatFadeStep  = 0.005 // alpha lost per frame once floating
	FloatRiseStep  = 0.5   // px per frame
	FloatSwayAmp   = 0.5   // px per frame, sinusoidal
	FloatAngleStep = 0.02

	ElimRiseSpeed = 20.0 // px per second of elapsed time
	ElimFadeTime  = 2.0  // seconds to fully fade
	ElimGrowRate  = 0.5  // size gained per second

	TypingSoundHold = 350 * time.Millisecond
	ToastTTL        = 3 * time.Second
)

// Timer bar color banding: ≥50% lime, 25–50% amber, <25% red.
const (
	colorTimerOK     = "#a3e635"
	colorTimerWarn   = "#f59e0b"
	colorTimerDanger = "#ef4444"

	colorMsgTurn    = "#facc15"
	colorMsgCorrect = "#22c55e"
	colorMsgWrong   = "#ef4444"
	colorMsgWin     = "#f59e0b"
)
