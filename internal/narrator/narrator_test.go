package narrator

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	clips []Clip
	err   error
}

func (s *recordSink) Play(ctx context.Context, c Clip) error {
	s.clips = append(s.clips, c)
	return s.err
}

type stubSynth struct {
	data []byte
	err  error
}

func (s stubSynth) Speech(ctx context.Context, text, voice string) ([]byte, error) {
	return s.data, s.err
}

func TestSpeakPlaysIntroThenWord(t *testing.T) {
	intros := func(voice string) [][]byte { return [][]byte{[]byte("ready")} }
	p := New(stubSynth{data: []byte("pronunciation")}, intros, rand.New(rand.NewSource(1)))

	sink := &recordSink{}
	p.Speak(context.Background(), sink, "obstacle", true)

	assert.Len(t, sink.clips, 2)
	assert.Equal(t, "intro", sink.clips[0].Kind)
	assert.Equal(t, "word", sink.clips[1].Kind)
	assert.Equal(t, sink.clips[0].Voice, sink.clips[1].Voice)
}

func TestSpeakWithoutIntroSkipsStageOne(t *testing.T) {
	intros := func(voice string) [][]byte { return [][]byte{[]byte("ready")} }
	p := New(stubSynth{data: []byte("pronunciation")}, intros, rand.New(rand.NewSource(2)))

	sink := &recordSink{}
	p.Speak(context.Background(), sink, "obstacle", false)

	assert.Len(t, sink.clips, 1)
	assert.Equal(t, "word", sink.clips[0].Kind)
}

func TestSpeakReturnsDespiteFailures(t *testing.T) {
	p := New(stubSynth{err: errors.New("tts down")}, nil, rand.New(rand.NewSource(3)))
	sink := &recordSink{err: errors.New("playback broken")}

	// Must not hang or panic: failures are treated as completed.
	p.Speak(context.Background(), sink, "obstacle", true)
	assert.Empty(t, sink.clips)
}
