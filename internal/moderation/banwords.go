package moderation

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Word boundary for banword matching. RE2's \b is ASCII-only, which would
// never fire around cyrillic phrases, so boundaries are expressed as
// "not a unicode letter, digit or underscore" on each side of the phrase.
const notWord = `[^\p{L}\p{N}_]`

type BanwordMatcher struct {
	path string
}

func NewBanwordMatcher(path string) *BanwordMatcher {
	return &BanwordMatcher{path: path}
}

// Matches reports whether text contains any configured banned phrase as a
// whole word, case-insensitively. Multi-word phrases anchor on word
// boundaries only at the phrase's start and end.
func (m *BanwordMatcher) Matches(text string) bool {
	if text == "" {
		return false
	}
	for _, word := range m.snapshot() {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		pattern := `(?i)(?:^|` + notWord + `)` + regexp.QuoteMeta(word) + `(?:` + notWord + `|$)`
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.WithField("word", word).WithError(err).Warn("skipping uncompilable banword")
			continue
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// snapshot reloads the word list on every check. A missing or unreadable
// source means "no restrictions", not an error.
func (m *BanwordMatcher) snapshot() []string {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return nil
	}
	var payload struct {
		Words []string `json:"words"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.WithField("path", m.path).WithError(err).Warn("cant parse banwords file")
		return nil
	}
	return payload.Words
}
