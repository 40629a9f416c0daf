package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed wordlists/*.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// WordList returns the embedded default list for a difficulty tier,
// e.g. WordList("beginner").
func WordList(tier string) ([]string, error) {
	return readLines("wordlists/" + strings.ToLower(tier) + ".txt")
}
