package en

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
)

// ReadWhitelist parses tab-separated written/spoken pairs. Blank lines and
// lines starting with '#' are skipped.
func ReadWhitelist(r io.Reader) (map[string]string, error) {
	entries := make(map[string]string)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		written, spoken, ok := strings.Cut(text, "\t")
		written, spoken = strings.TrimSpace(written), strings.TrimSpace(spoken)
		if !ok || written == "" || spoken == "" {
			return nil, fmt.Errorf("en: whitelist line %d: want written<TAB>spoken", line)
		}
		entries[written] = spoken
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("en: read whitelist: %w", err)
	}
	return entries, nil
}

// LoadWhitelist reads the whitelist file at path.
func LoadWhitelist(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("en: open whitelist: %w", err)
	}
	defer f.Close()
	return ReadWhitelist(f)
}

// whitelistEntries merges the built-in entries with extra, which wins on
// conflicts. With lower-cased input every key is also accepted in lower
// case.
func whitelistEntries(builtin, extra map[string]string, inputCase registry.InputCase) map[string]string {
	entries := make(map[string]string, len(builtin)+len(extra))
	maps.Copy(entries, builtin)
	maps.Copy(entries, extra)
	if inputCase == registry.LowerCased {
		lower := cases.Lower(language.English)
		for k, v := range maps.Clone(entries) {
			if lk := lower.String(k); lk != k {
				if _, exists := entries[lk]; !exists {
					entries[lk] = v
				}
			}
		}
	}
	return entries
}

func whitelistPack(entries map[string]string) (grammar.Pack, error) {
	return grammar.Build("whitelist", weightWhitelist, func() (*fst.FST, *fst.FST, error) {
		if len(entries) == 0 {
			return nil, nil, fmt.Errorf("no entries")
		}
		spoken := fst.Compose(grammar.Words(entries), fst.Plus(grammar.Escape(fst.AnyRune())))
		classify := grammar.Wrap("whitelist", grammar.Field("name", spoken))
		verbalize := grammar.Unwrap("whitelist", grammar.Read("name", nil))
		return classify, verbalize, nil
	})
}
