// internal/words/words.go
//
// Provides difficulty-tiered word lists for the game engine.
//
// Responsibilities:
//   - Load one word list per difficulty tier from an environment-provided
//     directory or fall back to embedded defaults.
//   - Supply utility functions like Random, ForTier, PickTier, and Stats.
//
// Word Lists:
//   - One newline-delimited text file per tier (beginner.txt … master.txt).
//   - Lines are lowercased word candidates; blank lines are filtered.
//
// Initialization behavior (Init):
//   1. If WORDS_DIR is set, each tier is loaded from <dir>/<tier>.txt.
//      A missing or unreadable tier file is logged and falls back to the
//      embedded default for that tier (never fatal).
//   2. If WORDS_DIR is unset, embedded defaults are used for every tier.
//
// Environment variables:
//   WORDS_DIR=/path/to/wordlists
//
// Constraints:
//   • Words are normalized to lowercase; blanks are dropped.
//   • An empty tier falls back to a single default word at pick time.
//   • Initialization is run once (sync.Once).

package words

import (
	"bufio"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/marksoc/spelling-nads/server/assets"
)

// Tiers lists the difficulty tiers, easiest first. "Randomize" is not a
// tier: it resolves to a uniform pick over the three easiest tiers per turn.
var Tiers = []string{"Beginner", "Novice", "Moderate", "Advanced", "Expert", "Genius", "Master"}

// FallbackWord is returned when a tier has no usable words.
const FallbackWord = "developer"

var (
	initOnce sync.Once
	lists    map[string][]string // keyed by tier name as in Tiers
)

// Init loads every tier's word list exactly once. It never fails hard:
// tiers that cannot be loaded are left empty and fall back at pick time.
func Init() error {
	initOnce.Do(func() {
		lists = make(map[string][]string, len(Tiers))
		dir := os.Getenv("WORDS_DIR")
		for _, tier := range Tiers {
			if dir != "" {
				ws, err := readWordFile(filepath.Join(dir, strings.ToLower(tier)+".txt"))
				if err == nil {
					lists[tier] = ws
					continue
				}
				log.Warn().Err(err).Str("tier", tier).Msg("tier file unreadable, using embedded default")
			}
			ws, err := assets.WordList(tier)
			if err != nil {
				log.Warn().Err(err).Str("tier", tier).Msg("no embedded list for tier")
				continue
			}
			lists[tier] = ws
		}
	})
	return nil
}

// readWordFile loads one word per line from a file, lowercased and trimmed,
// dropping blanks.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(strings.ToLower(sc.Text()))
		if w != "" {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// ForTier returns the loaded word list for a tier (nil if unknown/empty).
func ForTier(tier string) []string {
	return lists[tier]
}

// PickTier resolves a selected difficulty to a concrete tier for one turn.
// "Randomize" picks uniformly among the three easiest tiers.
func PickTier(difficulty string, rng *rand.Rand) string {
	if difficulty == "Randomize" {
		return Tiers[rng.Intn(3)]
	}
	return difficulty
}

// Random returns a random word from the tier's list, or FallbackWord when
// the tier is empty or unknown.
func Random(tier string, rng *rand.Rand) string {
	ws := lists[tier]
	if len(ws) == 0 {
		return FallbackWord
	}
	return strings.ToLower(ws[rng.Intn(len(ws))])
}

// Stats returns the number of loaded words per tier.
func Stats() map[string]int {
	out := make(map[string]int, len(lists))
	for tier, ws := range lists {
		out[tier] = len(ws)
	}
	return out
}
