package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceWrapsParticlesVertically(t *testing.T) {
	e := New(testConfig())
	e.particles = []Particle{{X: 100, Y: 0.05, Speed: 0.3, Opacity: 0.4}}

	e.Advance(time.Now())

	assert.Equal(t, float64(CanvasHeight), e.particles[0].Y, "particle leaving the top re-enters at the bottom")
}

func TestAdvanceFadesFloatingPlayers(t *testing.T) {
	e := New(testConfig())
	p := newHuman(1, "mark")
	p.Floating = true
	p.X, p.Y = 400, 600
	e.players = []*Player{p}

	y0 := p.Y
	e.Advance(time.Now())

	assert.InDelta(t, 1-FloatFadeStep, p.Alpha, 1e-9)
	assert.Equal(t, y0-FloatRiseStep, p.Y)
	assert.NotZero(t, p.FloatAngle)

	// Alpha bottoms out at zero and stays there.
	p.Alpha = 0.001
	e.Advance(time.Now())
	assert.Zero(t, p.Alpha)
}

func TestAdvancePrunesFinishedEliminations(t *testing.T) {
	e := New(testConfig())
	e.elims = []Elimination{
		{ID: 1, Start: time.Now()},
		{ID: 2, Start: time.Now().Add(-time.Duration(ElimFadeTime*float64(time.Second)) - time.Second)},
	}

	e.Advance(time.Now())

	require.Len(t, e.elims, 1)
	assert.Equal(t, int64(1), e.elims[0].ID)
}

func TestAdvanceExpiresStreakToasts(t *testing.T) {
	e := New(testConfig())
	e.ui.Streaks = []StreakToast{
		{ID: 1, Streak: 2, Born: time.Now()},
		{ID: 2, Streak: 3, Born: time.Now().Add(-ToastTTL - time.Second)},
	}

	e.Advance(time.Now())

	require.Len(t, e.ui.Streaks, 1)
	assert.Equal(t, int64(1), e.ui.Streaks[0].ID)
}

func TestSnapshotExcludesFullyFadedPlayers(t *testing.T) {
	e := New(testConfig())
	vis := newHuman(1, "mark")
	gone := newBot(2, "Bot 1")
	gone.Alpha = 0
	e.players = []*Player{vis, gone}

	s := e.Snapshot()

	require.Len(t, s.Players, 1)
	assert.Equal(t, "mark", s.Players[0].Name)
}

func TestSnapshotEliminationViewsFollowTheCurve(t *testing.T) {
	e := New(testConfig())
	e.elims = []Elimination{{ID: 7, X: 300, Y0: 500, Start: time.Now().Add(-time.Second)}}

	s := e.Snapshot()

	require.Len(t, s.Elims, 1)
	v := s.Elims[0]
	assert.InDelta(t, 500-ElimRiseSpeed*1.0, v.Y, 2.0)
	assert.InDelta(t, 1-1.0/ElimFadeTime, v.Alpha, 0.05)
	assert.InDelta(t, 1+ElimGrowRate*1.0, v.Size, 0.05)
}

func TestSnapshotCarriesSceneFraming(t *testing.T) {
	e := New(testConfig())
	s := e.Snapshot()

	assert.Equal(t, "LOADING_ASSETS", s.Phase)
	assert.Equal(t, "Spaceship", s.Theme)
	assert.Equal(t, float64(CanvasWidth), s.Width)
	assert.Equal(t, float64(CanvasHeight), s.Height)
	assert.Len(t, s.Particles, ParticleCount)
}

func TestRenderLoopEmitsFramesUntilCancelled(t *testing.T) {
	e := New(testConfig())
	frames := make(chan Scene, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.RunRenderLoop(ctx, 5*time.Millisecond, func(s Scene) {
			select {
			case frames <- s:
			default:
			}
		})
		close(done)
	}()

	select {
	case <-frames:
	case <-time.After(5 * time.Second):
		t.Fatal("no frames emitted")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("render loop did not stop on cancel")
	}
}
