// internal/narrator/narrator.go
//
// Two-stage word narration: an optional pre-recorded "get ready" intro clip
// for the chosen voice, then a synthesized pronunciation clip for the word.
// Each stage is awaited to completion through a playback Sink. Playback or
// synthesis failures are logged and treated as completed so the game flow
// never hangs on audio.

package narrator

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/marksoc/spelling-nads/server/internal/ai"
)

// Clip is one unit of audio handed to a Sink.
type Clip struct {
	Kind  string // "intro" | "word"
	Voice string
	Data  []byte
}

// Sink plays one clip and returns once playback has finished (or failed).
type Sink interface {
	Play(ctx context.Context, c Clip) error
}

// Synth produces a synthesized pronunciation clip. *ai.Client satisfies it.
type Synth interface {
	Speech(ctx context.Context, text, voice string) ([]byte, error)
}

// IntroSource returns the pre-recorded intro clips for a voice.
// loader.Bundle.NarratorClips satisfies it.
type IntroSource func(voice string) [][]byte

// Player sequences narration for words. Safe for concurrent use.
type Player struct {
	synth  Synth
	intros IntroSource

	mu  sync.Mutex
	rng *rand.Rand
}

func New(synth Synth, intros IntroSource, rng *rand.Rand) *Player {
	if intros == nil {
		intros = func(string) [][]byte { return nil }
	}
	return &Player{synth: synth, intros: intros, rng: rng}
}

// Speak narrates a word through the sink: random voice, optional intro clip,
// then the synthesized pronunciation. Always returns once the sequence is
// over; failures only log.
func (p *Player) Speak(ctx context.Context, sink Sink, word string, withIntro bool) {
	voice := p.pickVoice()

	if withIntro {
		if clips := p.intros(voice); len(clips) > 0 {
			intro := clips[p.pick(len(clips))]
			if err := sink.Play(ctx, Clip{Kind: "intro", Voice: voice, Data: intro}); err != nil {
				log.Warn().Err(err).Str("voice", voice).Msg("intro playback failed")
			}
		}
	}

	if p.synth == nil {
		return
	}
	data, err := p.synth.Speech(ctx, word, voice)
	if err != nil {
		log.Warn().Err(err).Str("voice", voice).Msg("could not synthesize word audio")
		return
	}
	if err := sink.Play(ctx, Clip{Kind: "word", Voice: voice, Data: data}); err != nil {
		log.Warn().Err(err).Str("voice", voice).Msg("word playback failed")
	}
}

func (p *Player) pickVoice() string {
	return ai.Voices[p.pick(len(ai.Voices))]
}

func (p *Player) pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}
