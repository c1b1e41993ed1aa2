// Package dialogue holds the question scripts and the answer-resolution
// state machine driving each garden question.
package dialogue

import (
	"errors"
	"fmt"
	"strings"

	"gnome-garden/domain/garden"
)

var (
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrNoQuestions        = errors.New("no questions for category")
)

// Asset is what an accepted answer plants.
type Asset struct {
	ID       string          `json:"id" yaml:"id" validate:"required"`
	Category garden.Category `json:"category" yaml:"category" validate:"required"`
	Label    string          `json:"label" yaml:"label"`
}

// Answer is one of the two choices offered by a question.
type Answer struct {
	Key            string   `json:"key" yaml:"key" validate:"required"`
	Synonyms       []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	ResponseSpeech string   `json:"responseSpeech" yaml:"responseSpeech"`
	ResponseText   string   `json:"responseText" yaml:"responseText"`
	Plants         Asset    `json:"plants" yaml:"plants"`
}

// Question is an authored prompt with exactly two answers.
type Question struct {
	PromptSpeech string   `json:"promptSpeech" yaml:"promptSpeech" validate:"required"`
	PromptText   string   `json:"promptText" yaml:"promptText" validate:"required"`
	Answers      []Answer `json:"answers" yaml:"answers" validate:"len=2,dive"`
}

// Keys returns the answer keys in authored order.
func (q Question) Keys() []string {
	keys := make([]string, len(q.Answers))
	for i, a := range q.Answers {
		keys[i] = a.Key
	}
	return keys
}

// Line is a fixed piece of scene dialogue.
type Line struct {
	Speech      string   `json:"speech" yaml:"speech"`
	Text        string   `json:"text" yaml:"text"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// Script is the authored conversation content.
type Script struct {
	Questions map[garden.Category][]Question `json:"questions" yaml:"questions" validate:"required,dive,min=1,dive"`
	Lines     map[string]Line                `json:"lines" yaml:"lines"`
	Variants  map[string][]string            `json:"variants" yaml:"variants"`
	Sounds    map[string]string              `json:"sounds" yaml:"sounds"`
}

// Validate checks that every answer plants into its question's category.
func (s *Script) Validate() error {
	for c, qs := range s.Questions {
		if !c.Valid() {
			return fmt.Errorf("questions: %w %q", garden.ErrUnknownCategory, c)
		}
		for i, q := range qs {
			for _, a := range q.Answers {
				if a.Plants.Category != c {
					return fmt.Errorf("%s question %d answer %q plants into %q", c, i, a.Key, a.Plants.Category)
				}
			}
		}
	}
	return nil
}

// Count returns the number of questions authored for c.
func (s *Script) Count(c garden.Category) int {
	return len(s.Questions[c])
}

// Line returns a named line, or an empty line when it is not authored.
func (s *Script) Line(name string) Line {
	return s.Lines[name]
}

// Variant picks one of the named variants at random.
func (s *Script) Variant(name string, rng garden.Random) string {
	vs := s.Variants[name]
	if len(vs) == 0 {
		return ""
	}
	return vs[rng.IntN(len(vs))]
}

// Sound returns the SSML snippet for a named sound cue.
func (s *Script) Sound(name string) string {
	return s.Sounds[name]
}

// Expand replaces a placeholder in every speech string.
func (s *Script) Expand(placeholder, value string) {
	r := strings.NewReplacer(placeholder, value)
	for k, v := range s.Sounds {
		s.Sounds[k] = r.Replace(v)
	}
	for k, l := range s.Lines {
		l.Speech = r.Replace(l.Speech)
		s.Lines[k] = l
	}
	for k, vs := range s.Variants {
		for i := range vs {
			vs[i] = r.Replace(vs[i])
		}
		s.Variants[k] = vs
	}
	for c, qs := range s.Questions {
		for i := range qs {
			qs[i].PromptSpeech = r.Replace(qs[i].PromptSpeech)
			for j := range qs[i].Answers {
				qs[i].Answers[j].ResponseSpeech = r.Replace(qs[i].Answers[j].ResponseSpeech)
			}
		}
		s.Questions[c] = qs
	}
}
