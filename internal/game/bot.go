// internal/game/bot.go
//
// Bot answer simulator: reveals a target string keystroke by keystroke at
// the bot's typing speed, then submits it after a randomized settle delay.
// The target is the real word when the skill roll succeeds, otherwise a
// fixed failure token. Phase checks between characters stop the simulation
// cleanly if the turn already resolved (timeout, game over, teardown).

package game

import (
	"context"
	"time"
)

type botPlan struct {
	target string
	settle time.Duration
}

// planBotLocked rolls the bot's outcome up front so the simulation goroutine
// never touches the engine rng. Caller holds e.mu.
func (e *Engine) planBotLocked(bot *Player) botPlan {
	target := FailToken
	if bot.Word != nil && e.rng.Float64() < bot.Skill {
		target = bot.Word.Word
	}
	return botPlan{
		target: target,
		settle: BotSettleMin + time.Duration(e.rng.Float64()*float64(BotSettleSpan)),
	}
}

// runBot simulates the bot typing plan.target and submits it.
func (e *Engine) runBot(ctx context.Context, bot *Player, plan botPlan) {
	e.mu.Lock()
	bot.Typing = true
	e.ui.BotTyping = true
	e.ui.TypingName = bot.Name
	e.mu.Unlock()

	for i := 0; i < len(plan.target); i++ {
		if !sleepAlive(ctx, bot.CharDelay) {
			return
		}
		if e.PhaseNow() != PhasePlayerAction {
			return // turn already resolved; drop the simulation
		}
		e.SetTypedText(plan.target[:i+1])
	}

	if !sleepAlive(ctx, plan.settle) {
		return
	}

	e.mu.Lock()
	e.ui.BotTyping = false
	e.ui.TypingName = ""
	e.mu.Unlock()
	e.submit(bot, plan.target)
}

// sleepAlive pauses for d; reports false if the context died first.
func sleepAlive(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
