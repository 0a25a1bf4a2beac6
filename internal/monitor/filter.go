package monitor

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/collie/internal/domain"
)

// FilterEntries keeps entries whose text fuzzy-matches every word of query.
// A word of the form "level:<name>" matches the entry level instead.
// An empty query returns entries unchanged.
func FilterEntries(entries []domain.LogEntry, query string) []domain.LogEntry {
	words := strings.Fields(query)
	if len(words) == 0 {
		return entries
	}

	var out []domain.LogEntry
	for _, e := range entries {
		if matchesAll(e, words) {
			out = append(out, e)
		}
	}
	return out
}

func matchesAll(e domain.LogEntry, words []string) bool {
	for _, w := range words {
		if lvl, ok := strings.CutPrefix(strings.ToLower(w), "level:"); ok {
			if e.Level != domain.ParseLogLevel(lvl) {
				return false
			}
			continue
		}
		if !fuzzy.MatchNormalizedFold(w, e.Text) {
			return false
		}
	}
	return true
}
