package dialogue

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Normalize lowercases s and strips everything except letters, digits and
// single spaces.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '-', r == '_', r == '/', r == '\'':
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))
}

// Matcher maps a recognised utterance onto one of a question's answers.
type Matcher struct {
	// Fuzzy accepts near-miss transcriptions when exactly one answer is
	// within the edit-distance limit.
	Fuzzy bool
}

// Match returns the answer the utterance names.
func (m Matcher) Match(q Question, utterance string) (Answer, bool) {
	in := Normalize(utterance)
	if in == "" {
		return Answer{}, false
	}
	for _, a := range q.Answers {
		for _, alias := range aliases(a) {
			if in == alias {
				return a, true
			}
		}
	}
	if !m.Fuzzy || utf8.RuneCountInString(in) < 3 {
		return Answer{}, false
	}

	hit := -1
	for i, a := range q.Answers {
		for _, alias := range aliases(a) {
			if levenshtein.ComputeDistance(in, alias) <= distanceLimit(utf8.RuneCountInString(alias)) {
				if hit >= 0 && hit != i {
					return Answer{}, false
				}
				hit = i
				break
			}
		}
	}
	if hit < 0 {
		return Answer{}, false
	}
	return q.Answers[hit], true
}

func aliases(a Answer) []string {
	out := make([]string, 0, len(a.Synonyms)+1)
	out = append(out, Normalize(a.Key))
	for _, s := range a.Synonyms {
		out = append(out, Normalize(s))
	}
	return out
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
