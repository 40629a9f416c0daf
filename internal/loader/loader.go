// internal/loader/loader.go
//
// Concurrent preloader for game assets: avatar and effect images, sound
// effects, pre-recorded narrator intro clips, and the tiered word lists.
//
// Readiness semantics: every preload attempt settles on its own (success or
// logged failure) and the aggregate Done channel closes once all attempts
// have settled. A 0% success rate still produces a ready bundle; gameplay
// degrades (no avatars, silent cues) instead of blocking.

package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/marksoc/spelling-nads/server/internal/ai"
	"github.com/marksoc/spelling-nads/server/internal/words"
)

const (
	avatarCount       = 93
	narratorClipCount = 5
)

// SoundNames are the sound-effect cues the engine can emit.
var SoundNames = []string{"typing", "correct", "wrong", "win"}

// ThemeBackgrounds maps a theme name to its background image path under the
// public directory.
var ThemeBackgrounds = map[string]string{
	"Spaceship":  "effects/background/spaceship.avif",
	"Underwater": "effects/background/underwater.jpg",
	"Volcano":    "effects/background/volcano.jpg",
	"Ice":        "effects/background/ice.jpg",
	"Desert":     "effects/background/desert.jpg",
}

// Bundle holds every preloaded asset. Maps are written only while loading;
// once Done is closed the bundle is read-only.
type Bundle struct {
	mu       sync.Mutex
	images   map[string][]byte   // keyed by public-relative path
	sounds   map[string][]byte   // keyed by cue name
	narrator map[string][][]byte // voice -> intro clips

	done   chan struct{}
	loaded int
	failed int
}

// Preload starts loading everything under publicDir concurrently and
// returns the bundle immediately. Use Done to gate on readiness.
func Preload(publicDir string) *Bundle {
	b := &Bundle{
		images:   make(map[string][]byte),
		sounds:   make(map[string][]byte),
		narrator: make(map[string][][]byte),
		done:     make(chan struct{}),
	}

	var wg sync.WaitGroup

	loadFile := func(rel string, store func(data []byte)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := os.ReadFile(filepath.Join(publicDir, filepath.FromSlash(rel)))
			b.mu.Lock()
			defer b.mu.Unlock()
			if err != nil {
				b.failed++
				log.Error().Err(err).Str("asset", rel).Msg("failed to load asset")
				return
			}
			b.loaded++
			store(data)
		}()
	}

	for i := 1; i <= avatarCount; i++ {
		rel := fmt.Sprintf("profile-pics/%d.png", i)
		loadFile(rel, func(data []byte) { b.images[rel] = data })
	}
	for _, rel := range []string{"effects/background/angel-wings.png", "effects/background/mic-stand.png"} {
		rel := rel
		loadFile(rel, func(data []byte) { b.images[rel] = data })
	}
	for _, rel := range ThemeBackgrounds {
		rel := rel
		loadFile(rel, func(data []byte) { b.images[rel] = data })
	}
	for _, name := range SoundNames {
		name := name
		loadFile("effects/audio/"+name+".mp3", func(data []byte) { b.sounds[name] = data })
	}
	for _, voice := range ai.Voices {
		voice := voice
		for i := 1; i <= narratorClipCount; i++ {
			rel := fmt.Sprintf("effects/narrator/%s%d.mp3", voice, i)
			loadFile(rel, func(data []byte) { b.narrator[voice] = append(b.narrator[voice], data) })
		}
	}

	// Word lists settle the same way: failures inside Init are logged and
	// fall back to embedded defaults.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = words.Init()
	}()

	go func() {
		wg.Wait()
		b.mu.Lock()
		loaded, failed := b.loaded, b.failed
		b.mu.Unlock()
		log.Info().Int("loaded", loaded).Int("failed", failed).Msg("asset preload settled")
		close(b.done)
	}()

	return b
}

// Done closes once every preload attempt has settled.
func (b *Bundle) Done() <-chan struct{} { return b.done }

// AvatarKeys returns the avatar image paths that loaded successfully,
// in stable order.
func (b *Bundle) AvatarKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.images {
		if filepath.Dir(k) == "profile-pics" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Image returns the bytes for a public-relative image path, or nil.
func (b *Bundle) Image(rel string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.images[rel]
}

// Sound returns the bytes for a sound-effect cue, or nil.
func (b *Bundle) Sound(name string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sounds[name]
}

// NarratorClips returns the loaded intro clips for a voice (possibly empty).
func (b *Bundle) NarratorClips(voice string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.narrator[voice]
}

// Counts reports (loaded, failed) attempt totals. Meaningful after Done.
func (b *Bundle) Counts() (loaded, failed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded, b.failed
}
