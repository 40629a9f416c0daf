// internal/game/render.go
//
// Render loop for a game session. Each frame advances the purely cosmetic
// state (ambient particles, floating-away eliminated players, elimination
// animations, expired streak toasts) and produces a read-only Scene
// snapshot for the client to paint. The loop never mutates game-flow state
// and stops when its context is cancelled.

package game

import (
	"context"
	"math"
	"time"
)

// DefaultFrameInterval approximates a 60fps display.
const DefaultFrameInterval = 16 * time.Millisecond

// Scene is a complete drawable snapshot of one frame.
type Scene struct {
	Phase     string         `json:"phase"`
	Theme     string         `json:"theme"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Particles []ParticleView `json:"particles"`
	Players   []PlayerView   `json:"players"`
	Elims     []ElimView     `json:"eliminations,omitempty"`
	UI        UIState        `json:"ui"`
}

type ParticleView struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Size    float64 `json:"size"`
	Opacity float64 `json:"opacity"`
}

type PlayerView struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Avatar  string  `json:"pfpUrl"`
	Team    Team    `json:"team"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Alpha   float64 `json:"alpha"`
	Streak  int     `json:"streak"`
	LastWPM int     `json:"lastWpm"`
	Typing  bool    `json:"typing"`
}

type ElimView struct {
	ID    int64   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Alpha float64 `json:"alpha"`
	Size  float64 `json:"size"`
}

// RunRenderLoop ticks at the given interval, advancing cosmetic state and
// handing a fresh Scene to emit each frame until ctx is cancelled.
func (e *Engine) RunRenderLoop(ctx context.Context, interval time.Duration, emit func(Scene)) {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.Advance(now)
			emit(e.Snapshot())
		}
	}
}

// Advance moves the cosmetic state one frame forward.
func (e *Engine) Advance(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Ambient particles drift upward and wrap.
	for i := range e.particles {
		p := &e.particles[i]
		p.Y -= p.Speed
		if p.Y < 0 {
			p.Y = CanvasHeight
		}
	}

	// Eliminated players float away: fade, rise, sway.
	for _, p := range e.players {
		if p.Floating && p.Alpha > 0 {
			p.Alpha = math.Max(0, p.Alpha-FloatFadeStep)
			p.Y -= FloatRiseStep
			p.FloatAngle += FloatAngleStep
			p.X += math.Sin(p.FloatAngle) * FloatSwayAmp
		}
	}

	// Prune finished elimination animations (fully faded).
	kept := e.elims[:0]
	for _, a := range e.elims {
		if now.Sub(a.Start).Seconds() < ElimFadeTime {
			kept = append(kept, a)
		}
	}
	e.elims = kept

	// Expire streak toasts.
	toasts := e.ui.Streaks[:0]
	for _, s := range e.ui.Streaks {
		if now.Sub(s.Born) < ToastTTL {
			toasts = append(toasts, s)
		}
	}
	e.ui.Streaks = toasts
}

// Snapshot copies the current drawable state. Players whose fade-out has
// completed are excluded from rendering.
func (e *Engine) Snapshot() Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Scene{
		Phase:  e.phase.String(),
		Theme:  e.cfg.Settings.Theme,
		Width:  CanvasWidth,
		Height: CanvasHeight,
		UI:     e.ui,
	}
	s.UI.Streaks = append([]StreakToast(nil), e.ui.Streaks...)

	s.Particles = make([]ParticleView, len(e.particles))
	for i, p := range e.particles {
		s.Particles[i] = ParticleView{X: p.X, Y: p.Y, Size: p.Size, Opacity: p.Opacity}
	}

	for _, p := range e.players {
		if p.Alpha <= 0 {
			continue
		}
		s.Players = append(s.Players, PlayerView{
			ID: p.ID, Name: p.Name, Avatar: p.Avatar, Team: p.Team,
			X: p.X, Y: p.Y, Width: p.Width, Height: p.Height,
			Alpha: p.Alpha, Streak: p.Streak, LastWPM: p.LastWPM, Typing: p.Typing,
		})
	}

	now := time.Now()
	for _, a := range e.elims {
		elapsed := now.Sub(a.Start).Seconds()
		alpha := math.Max(0, 1-elapsed/ElimFadeTime)
		if alpha <= 0 {
			continue
		}
		s.Elims = append(s.Elims, ElimView{
			ID:    a.ID,
			X:     a.X,
			Y:     a.Y0 - ElimRiseSpeed*elapsed,
			Alpha: alpha,
			Size:  1 + ElimGrowRate*elapsed,
		})
	}
	return s
}

// makeParticles seeds the ambient starfield once at engine construction.
func (e *Engine) makeParticles(n int) []Particle {
	out := make([]Particle, n)
	for i := range out {
		out[i] = Particle{
			X:       e.rng.Float64() * CanvasWidth,
			Y:       e.rng.Float64() * CanvasHeight,
			Size:    e.rng.Float64() * 2,
			Speed:   e.rng.Float64()*0.5 + 0.1,
			Opacity: e.rng.Float64()*0.5 + 0.2,
		}
	}
	return out
}
